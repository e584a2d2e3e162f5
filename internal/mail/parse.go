package mail

import (
	"bytes"
	"io"
	"strings"

	gomail "github.com/emersion/go-message/mail"

	_ "github.com/emersion/go-message/charset"
)

// Fallbacks used when a message carries no decodable subject or body.
const (
	FallbackSubject = "(No Subject)"
	FallbackBody    = "(No content)"
)

// ParsedMessage is the header and body material the filter evaluates.
// Sender is the bare From address when one could be extracted, otherwise the
// raw header value; normalization happens in the filter. Recipients collects
// lowercased addresses from every recipient-related header.
type ParsedMessage struct {
	MessageID  string
	Sender     string
	Subject    string
	Body       string
	Recipients []string
	IsReply    bool
}

var recipientHeaders = []string{"To", "Cc", "Delivered-To", "X-Original-To"}

// Parse decodes a raw RFC 822 message. Missing or undecodable subject and
// body degrade to placeholder text; only a message whose envelope cannot be
// read at all yields an error, which callers treat as a filter rejection.
func Parse(raw []byte) (*ParsedMessage, error) {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	header := mr.Header
	msg := &ParsedMessage{}

	if id, err := header.MessageID(); err == nil {
		msg.MessageID = id
	}

	if addrs, err := header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.Sender = addrs[0].Address
	} else {
		msg.Sender = header.Get("From")
	}

	for _, key := range recipientHeaders {
		addrs, err := header.AddressList(key)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			msg.Recipients = append(msg.Recipients, strings.ToLower(a.Address))
		}
	}

	msg.IsReply = header.Get("In-Reply-To") != "" || header.Get("References") != ""

	subject, err := header.Subject()
	if err != nil || strings.TrimSpace(subject) == "" {
		subject = FallbackSubject
	}
	msg.Subject = subject

	msg.Body = extractPlainText(mr)
	return msg, nil
}

// extractPlainText returns the first text/plain part of the message, or the
// fallback placeholder when none can be read.
func extractPlainText(mr *gomail.Reader) string {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		inline, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err != nil {
			continue
		}
		if contentType != "text/plain" {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil || strings.TrimSpace(string(body)) == "" {
			break
		}
		return string(body)
	}
	return FallbackBody
}
