package message

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// go-message only registers a small charset set by default; enterprise
	// mail still arrives in legacy Windows codepages.
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("cp1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("latin1", charmap.ISO8859_1)

	// An unknown charset degrades to reading the part raw; readPartText then
	// replaces whatever turns out invalid. Losing the whole part over an
	// unrecognized label would be worse than a lossy decode.
	gomessage.CharsetReader = func(name string, input io.Reader) (io.Reader, error) {
		r, err := charset.Reader(name, input)
		if err != nil {
			return input, nil
		}
		return r, nil
	}
}

// htmlTagRe strips tags from an HTML body when no plain-text part exists.
// This is a documented lossy fallback, not an HTML-to-text converter.
var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// Decode parses raw RFC 5322 bytes into a DecodedMessage. It is a pure
// function of the input bytes and opts; callers drop the message (and log the
// identifier) when an error is returned.
func Decode(raw []byte, opts Options) (*DecodedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "parse message")
	}
	defer mr.Close() //nolint:errcheck

	header := mr.Header

	subject, err := header.Subject()
	if err != nil || subject == "" {
		subject = DecodeHeader(header.Get("Subject"))
	}

	decoded := &DecodedMessage{
		Subject:   subject,
		From:      DecodeHeader(header.Get("From")),
		To:        DecodeHeader(header.Get("To")),
		Cc:        DecodeHeader(header.Get("Cc")),
		Date:      header.Get("Date"),
		MessageID: header.Get("Message-Id"),
	}

	if date, err := header.Date(); err == nil && !date.IsZero() {
		utc := date.UTC()
		decoded.SentAt = &utc
	}

	var plainBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				if plainBody == "" {
					plainBody = readPartText(part.Body)
				}
			case strings.HasPrefix(contentType, "text/html"):
				if htmlBody == "" {
					htmlBody = readPartText(part.Body)
				}
			}
		case *mail.AttachmentHeader:
			if att, ok := extractAttachment(h, part.Body, opts); ok {
				decoded.Attachments = append(decoded.Attachments, att)
			}
		}
	}

	if plainBody != "" {
		decoded.Body = strings.TrimSpace(plainBody)
	} else if htmlBody != "" {
		decoded.Body = strings.TrimSpace(htmlTagRe.ReplaceAllString(htmlBody, ""))
	}

	return decoded, nil
}

// extractAttachment applies the extension allow-list and size ceiling. A
// rejected attachment is simply omitted; the message itself is still emitted.
func extractAttachment(h *mail.AttachmentHeader, body io.Reader, opts Options) (Attachment, bool) {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		filename = DecodeHeader(rawFilename(h))
	}
	if filename == "" {
		return Attachment{}, false
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionAllowed(ext, opts.AllowedTypes) {
		return Attachment{}, false
	}

	payload, err := io.ReadAll(body)
	if err != nil && len(payload) == 0 {
		return Attachment{}, false
	}
	size := int64(len(payload))
	if opts.MaxAttachmentSize > 0 && size > opts.MaxAttachmentSize {
		return Attachment{}, false
	}

	content := "Attachment: " + filename + "\n"
	if ext == ".txt" {
		content += strings.ToValidUTF8(string(payload), "�")
	} else {
		content += fmt.Sprintf("File type: %s, size: %d bytes", ext, size)
	}

	return Attachment{
		Filename:  filename,
		Extension: ext,
		Size:      size,
		Content:   content,
	}, true
}

func extensionAllowed(ext string, allowed []string) bool {
	if ext == "" {
		return false
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}

// readPartText reads a decoded part body, keeping whatever was read before a
// mid-stream decode error and replacing invalid byte sequences.
func readPartText(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return strings.ToValidUTF8(string(b), "�")
}

// DecodeHeader decodes a possibly RFC 2047 encoded header value, falling back
// to the raw text when the declared encoding is unusable.
func DecodeHeader(value string) string {
	if value == "" {
		return ""
	}
	dec := mime.WordDecoder{CharsetReader: charset.Reader}
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func rawFilename(h *mail.AttachmentHeader) string {
	_, params, err := h.ContentDisposition()
	if err == nil {
		if name, ok := params["filename"]; ok {
			return name
		}
	}
	_, params, err = h.ContentType()
	if err == nil {
		if name, ok := params["name"]; ok {
			return name
		}
	}
	return ""
}

