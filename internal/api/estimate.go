package api

import "fmt"

// emailsPerMinute is the empirical throughput used for sync estimates.
const emailsPerMinute = 60

// Estimate is a rough pre-sync projection shown to admins before a first run.
type Estimate struct {
	TotalEmails      int    `json:"total_emails"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	EstimatedDisplay string `json:"estimated_time_display"`
	BatchCount       int    `json:"batch_count"`
	EmailsPerMinute  int    `json:"emails_per_minute"`
}

// EstimateSync projects how long syncing emailCount messages will take.
func EstimateSync(emailCount, batchSize int) Estimate {
	if emailCount < 0 {
		emailCount = 0
	}

	totalMinutes := emailCount / emailsPerMinute
	hours := totalMinutes / 60
	minutes := totalMinutes % 60

	display := fmt.Sprintf("%dm", minutes)
	if hours > 0 {
		display = fmt.Sprintf("%dh%dm", hours, minutes)
	}

	return Estimate{
		TotalEmails:      emailCount,
		EstimatedMinutes: totalMinutes,
		EstimatedDisplay: display,
		BatchCount:       (emailCount + batchSize - 1) / batchSize,
		EmailsPerMinute:  emailsPerMinute,
	}
}
