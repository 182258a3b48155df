package imap

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	_ "github.com/emersion/go-message/charset"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// undecodableBody replaces a text part that cannot be read as UTF-8.
const undecodableBody = "[Could not decode body]"

var errStopWalk = errors.New("stop walk")

// parseMessage extracts headers and the plain-text body from a raw message.
// A nil or unparseable literal yields an Email with no headers and the
// undecodable-body marker.
func parseMessage(r io.Reader) Email {
	if r == nil {
		return Email{}
	}

	entity, err := message.Read(r)
	if entity == nil {
		return Email{Body: undecodableBody}
	}
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return Email{Body: undecodableBody}
	}

	h := mail.Header{Header: entity.Header}
	subject, err := h.Subject()
	if err != nil {
		subject = h.Get("Subject")
	}
	from, err := h.Text("From")
	if err != nil {
		from = h.Get("From")
	}

	return Email{
		Subject:   subject,
		From:      from,
		MessageID: h.Get("Message-Id"),
		Body:      extractBody(entity),
	}
}

// extractBody returns the first text/plain part that is not an attachment.
// A single-part message is decoded whatever its content type.
func extractBody(entity *message.Entity) string {
	if !isMultipart(entity.Header) {
		return decodeBody(entity.Body)
	}

	body := ""
	_ = entity.Walk(func(path []int, part *message.Entity, err error) error {
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			return err
		}
		if isMultipart(part.Header) {
			return nil
		}

		mediaType, _, _ := part.Header.ContentType()
		if mediaType != "text/plain" {
			return nil
		}
		if strings.Contains(strings.ToLower(part.Header.Get("Content-Disposition")), "attachment") {
			return nil
		}

		body = decodeBody(part.Body)
		return errStopWalk
	})

	return body
}

func isMultipart(h message.Header) bool {
	mediaType, _, _ := h.ContentType()
	return strings.HasPrefix(mediaType, "multipart/")
}

func decodeBody(r io.Reader) string {
	data, err := io.ReadAll(r)
	if err != nil || !utf8.Valid(data) {
		return undecodableBody
	}
	return string(data)
}
