package message

import "time"

// DecodedMessage is the structured parse of one raw mail message. Body is
// always set (possibly empty), never conditional on the MIME layout.
type DecodedMessage struct {
	Subject   string
	From      string
	To        string
	Cc        string
	Date      string
	MessageID string

	// SentAt is the Date header normalized to UTC. Missing or unparsable
	// dates leave it nil rather than fabricating a timestamp.
	SentAt *time.Time

	Body        string
	Attachments []Attachment
}

// Attachment is one retained attachment. Content holds the literal decoded
// text for plain-text attachments and a descriptive placeholder for
// everything else.
type Attachment struct {
	Filename  string
	Extension string
	Size      int64
	Content   string
}

// Options bounds attachment extraction.
type Options struct {
	MaxAttachmentSize int64
	AllowedTypes      []string
}
