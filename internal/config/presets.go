package config

// Preset describes the IMAP endpoint of a well-known mail provider.
type Preset struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Security string `json:"security"`
	Note     string `json:"note,omitempty"`
}

// Presets returns connection presets for common providers. Credentials and
// folder selection still come from the environment and config file.
func Presets() map[string]Preset {
	return map[string]Preset{
		"gmail": {
			Host:     "imap.gmail.com",
			Port:     993,
			Security: SecurityTLS,
			Note:     "requires an app password when 2FA is enabled",
		},
		"outlook": {
			Host:     "outlook.office365.com",
			Port:     993,
			Security: SecurityTLS,
		},
		"yahoo": {
			Host:     "imap.mail.yahoo.com",
			Port:     993,
			Security: SecurityTLS,
			Note:     "requires an app password",
		},
		"qq": {
			Host:     "imap.qq.com",
			Port:     993,
			Security: SecurityTLS,
			Note:     "requires an authorization code instead of the account password",
		},
		"163": {
			Host:     "imap.163.com",
			Port:     993,
			Security: SecurityTLS,
			Note:     "requires an authorization code instead of the account password",
		},
	}
}
