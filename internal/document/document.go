package document

import (
	"fmt"
	"time"

	"github.com/driftlock/mailsync/internal/message"
)

// SourceIMAP tags every document emitted by this connector.
const SourceIMAP = "imap"

// NoSubjectPlaceholder is used as the title when a message has no subject.
const NoSubjectPlaceholder = "(no subject)"

// Section is one addressable chunk of document content.
type Section struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// ExpertInfo attributes a document to a mail participant.
type ExpertInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Document is the normalized unit handed to the downstream indexing system.
// ID is unique per (folder, uid) for the lifetime of the folder's UIDVALIDITY.
type Document struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Sections        []Section         `json:"sections"`
	Source          string            `json:"source"`
	Metadata        map[string]string `json:"metadata"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`
	PrimaryOwners   []ExpertInfo      `json:"primary_owners,omitempty"`
	SecondaryOwners []ExpertInfo      `json:"secondary_owners,omitempty"`
}

// Assemble maps a decoded message onto a Document. It never fails: absent
// fields degrade to placeholders, and the body section always exists even
// when the body text is empty.
func Assemble(decoded *message.DecodedMessage, folder string, uid uint32, serverHost string) Document {
	title := decoded.Subject
	if title == "" {
		title = NoSubjectPlaceholder
	}

	headerBlock := fmt.Sprintf("Subject: %s\n", title)
	headerBlock += fmt.Sprintf("From: %s\n", decoded.From)
	if decoded.To != "" {
		headerBlock += fmt.Sprintf("To: %s\n", decoded.To)
	}
	if decoded.Cc != "" {
		headerBlock += fmt.Sprintf("Cc: %s\n", decoded.Cc)
	}
	headerBlock += fmt.Sprintf("Date: %s\n", decoded.Date)
	headerBlock += fmt.Sprintf("Folder: %s\n", folder)

	// Mail servers expose no stable web link, so sections carry a synthetic
	// imap:// locator instead.
	link := fmt.Sprintf("imap://%s/%s/%d", serverHost, folder, uid)

	sections := []Section{{Text: headerBlock + "\n" + decoded.Body, Link: link}}
	for _, att := range decoded.Attachments {
		sections = append(sections, Section{Text: att.Content, Link: link})
	}

	messageID := decoded.MessageID
	if messageID == "" {
		messageID = fmt.Sprintf("%d@%s", uid, folder)
	}

	return Document{
		ID:       fmt.Sprintf("%s_%d", folder, uid),
		Title:    title,
		Sections: sections,
		Source:   SourceIMAP,
		Metadata: map[string]string{
			"folder":     folder,
			"uid":        fmt.Sprintf("%d", uid),
			"message_id": messageID,
			"from":       decoded.From,
			"to":         decoded.To,
			"cc":         decoded.Cc,
			"date":       decoded.Date,
			"server":     serverHost,
		},
		UpdatedAt:       decoded.SentAt,
		PrimaryOwners:   owners(message.ExtractAddresses(decoded.From)),
		SecondaryOwners: owners(message.ExtractAddresses(decoded.To + " " + decoded.Cc)),
	}
}

func owners(addresses []message.Address) []ExpertInfo {
	if len(addresses) == 0 {
		return nil
	}
	out := make([]ExpertInfo, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, ExpertInfo{
			Email:     addr.Email,
			FirstName: addr.FirstName,
			LastName:  addr.LastName,
		})
	}
	return out
}
