package message

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{
		MaxAttachmentSize: 10 * 1024 * 1024,
		AllowedTypes:      []string{".pdf", ".doc", ".docx", ".txt"},
	}
}

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func TestDecodePlainText(t *testing.T) {
	raw := crlf(
		"From: Alice Smith <alice@example.com>",
		"To: Bob <bob@example.org>",
		"Subject: Quarterly numbers",
		"Date: Mon, 03 Jun 2024 10:30:00 +0000",
		"Message-ID: <abc123@example.com>",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"The numbers are up.",
	)

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Quarterly numbers", decoded.Subject)
	assert.Contains(t, decoded.From, "alice@example.com")
	assert.Contains(t, decoded.To, "bob@example.org")
	assert.Equal(t, "The numbers are up.", decoded.Body)
	assert.Equal(t, "<abc123@example.com>", decoded.MessageID)

	require.NotNil(t, decoded.SentAt)
	assert.Equal(t, time.Date(2024, 6, 3, 10, 30, 0, 0, time.UTC), *decoded.SentAt)
}

func TestDecodeMultipartPrefersPlainText(t *testing.T) {
	raw := crlf(
		"From: a@example.com",
		"To: b@example.com",
		"Subject: Multipart",
		"Date: Mon, 03 Jun 2024 10:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=BOUND",
		"",
		"--BOUND",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain wins",
		"--BOUND",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html <b>loses</b></p>",
		"--BOUND--",
	)

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "plain wins", decoded.Body)
}

func TestDecodeHTMLOnlyStripsTags(t *testing.T) {
	raw := crlf(
		"From: a@example.com",
		"To: b@example.com",
		"Subject: HTML only",
		"Date: Mon, 03 Jun 2024 10:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><p>hello</p> <b>world</b></body></html>",
	)

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "hello world", decoded.Body)
	assert.NotContains(t, decoded.Body, "<")
}

func TestDecodeEncodedSubject(t *testing.T) {
	raw := crlf(
		"From: a@example.com",
		"To: b@example.com",
		"Subject: =?UTF-8?B?5Lit5paH5Li76aKY?=",
		"Date: Mon, 03 Jun 2024 10:30:00 +0000",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"body",
	)

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "中文主题", decoded.Subject)
}

func TestDecodeMissingDate(t *testing.T) {
	raw := crlf(
		"From: a@example.com",
		"To: b@example.com",
		"Subject: No date",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"body",
	)

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	assert.Nil(t, decoded.SentAt)
}

func TestDecodeUnknownCharsetKeepsBody(t *testing.T) {
	t.Run("multipart", func(t *testing.T) {
		raw := crlf(
			"From: a@example.com",
			"To: b@example.com",
			"Subject: Strange encoding",
			"Date: Mon, 03 Jun 2024 10:30:00 +0000",
			"MIME-Version: 1.0",
			"Content-Type: multipart/alternative; boundary=BOUND",
			"",
			"--BOUND",
			"Content-Type: text/plain; charset=x-mystery-charset",
			"",
			"salvage me",
			"--BOUND--",
		)

		decoded, err := Decode(raw, defaultOptions())
		require.NoError(t, err)
		assert.Equal(t, "salvage me", decoded.Body)
	})

	t.Run("single part", func(t *testing.T) {
		raw := crlf(
			"From: a@example.com",
			"To: b@example.com",
			"Subject: Strange encoding",
			"Date: Mon, 03 Jun 2024 10:30:00 +0000",
			"Content-Type: text/plain; charset=x-mystery-charset",
			"",
			"salvage me too",
		)

		decoded, err := Decode(raw, defaultOptions())
		require.NoError(t, err)
		assert.Equal(t, "salvage me too", decoded.Body)
	})
}

func TestDecodeIsIdempotent(t *testing.T) {
	raw := crlf(
		"From: Alice <alice@example.com>",
		"To: b@example.com",
		"Subject: Stable",
		"Date: Mon, 03 Jun 2024 10:30:00 +0000",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"same every time",
	)

	first, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	second, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func attachmentMessage(filename, contentType, payload string) []byte {
	return crlf(
		"From: a@example.com",
		"To: b@example.com",
		"Subject: With attachment",
		"Date: Mon, 03 Jun 2024 10:30:00 +0000",
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=BOUND",
		"",
		"--BOUND",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"see attached",
		"--BOUND",
		"Content-Type: "+contentType+"; name=\""+filename+"\"",
		"Content-Disposition: attachment; filename=\""+filename+"\"",
		"",
		payload,
		"--BOUND--",
	)
}

func TestDecodeTxtAttachmentInlinesContent(t *testing.T) {
	raw := attachmentMessage("notes.txt", "text/plain", "meeting notes here")

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)

	require.Len(t, decoded.Attachments, 1)
	att := decoded.Attachments[0]
	assert.Equal(t, "notes.txt", att.Filename)
	assert.Equal(t, ".txt", att.Extension)
	assert.Contains(t, att.Content, "Attachment: notes.txt")
	assert.Contains(t, att.Content, "meeting notes here")
}

func TestDecodePdfAttachmentGetsPlaceholder(t *testing.T) {
	raw := attachmentMessage("report.pdf", "application/pdf", "%PDF-1.4 fake")

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)

	require.Len(t, decoded.Attachments, 1)
	att := decoded.Attachments[0]
	assert.Equal(t, ".pdf", att.Extension)
	assert.Contains(t, att.Content, "File type: .pdf")
	assert.NotContains(t, att.Content, "%PDF")
}

func TestDecodeDisallowedAttachmentOmitted(t *testing.T) {
	raw := attachmentMessage("malware.exe", "application/octet-stream", "MZ...")

	decoded, err := Decode(raw, defaultOptions())
	require.NoError(t, err)
	assert.Empty(t, decoded.Attachments)
	assert.Equal(t, "see attached", decoded.Body)
}

func TestDecodeOversizeAttachmentOmitted(t *testing.T) {
	opts := defaultOptions()
	opts.MaxAttachmentSize = 8

	raw := attachmentMessage("notes.txt", "text/plain", "this payload is longer than eight bytes")

	decoded, err := Decode(raw, opts)
	require.NoError(t, err)
	assert.Empty(t, decoded.Attachments)
}

func TestDecodeHeaderFallsBackToRaw(t *testing.T) {
	assert.Equal(t, "plain text", DecodeHeader("plain text"))
	assert.Equal(t, "", DecodeHeader(""))
	assert.Equal(t, "héllo", DecodeHeader("=?ISO-8859-1?Q?h=E9llo?="))
}
