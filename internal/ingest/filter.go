// Package ingest implements the email-to-ticket pipeline: filtering and
// classification of fetched messages, idempotent ticket materialization and
// the mailbox poll loop that drives both.
package ingest

import (
	netmail "net/mail"
	"strings"

	"github.com/spec-kit/ticket-ingest/internal/config"
	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/mail"
)

// Envelope is an accepted message, ready for materialization.
type Envelope struct {
	Sender    string
	Subject   string
	Body      string
	Priority  domain.TicketPriority
	MessageID string
}

// Filter is the pure decision function over a parsed message and the static
// allow-list configuration. With StrictRecipients off it degrades to a flat
// sender allow-set with no recipient check.
type Filter struct {
	allowedSenders   map[string]struct{}
	allowedDomains   map[string]struct{}
	monitored        map[string]struct{}
	internalDomain   string
	strictRecipients bool
}

// NewFilter builds a filter from configuration; all match sets are
// case-insensitive.
func NewFilter(cfg config.IngestConfig) *Filter {
	return &Filter{
		allowedSenders:   lowerSet(cfg.AllowedSenders),
		allowedDomains:   lowerSet(cfg.AllowedDomains),
		monitored:        lowerSet(cfg.MonitoredRecipients),
		internalDomain:   strings.ToLower(cfg.InternalDomain),
		strictRecipients: cfg.StrictRecipients,
	}
}

// Evaluate runs the short-circuiting rejection pipeline. It returns the
// accepted envelope, or nil plus the reason the message was rejected.
func (f *Filter) Evaluate(msg *mail.ParsedMessage) (*Envelope, string) {
	sender := NormalizeSender(msg.Sender)
	if sender == "" {
		return nil, "unparseable sender"
	}
	if f.internalDomain != "" && strings.HasSuffix(sender, "@"+f.internalDomain) {
		return nil, "internal sender"
	}
	if !f.allowedClient(sender) {
		return nil, "sender not in allow-list"
	}
	if f.strictRecipients && !f.sentToMonitored(msg.Recipients) {
		return nil, "no monitored recipient"
	}
	if msg.IsReply || strings.HasPrefix(strings.ToLower(msg.Subject), "re:") {
		return nil, "reply"
	}

	return &Envelope{
		Sender:    sender,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Priority:  ClassifyPriority(msg.Subject, msg.Body),
		MessageID: msg.MessageID,
	}, ""
}

func (f *Filter) allowedClient(sender string) bool {
	if _, ok := f.allowedSenders[sender]; ok {
		return true
	}
	if at := strings.LastIndex(sender, "@"); at >= 0 {
		if _, ok := f.allowedDomains[sender[at+1:]]; ok {
			return true
		}
	}
	return false
}

func (f *Filter) sentToMonitored(recipients []string) bool {
	for _, r := range recipients {
		if _, ok := f.monitored[strings.ToLower(r)]; ok {
			return true
		}
	}
	return false
}

// Senders arrive wrapped in display names and occasionally padded with
// zero-width characters; strip both before any comparison.
var senderCleaner = strings.NewReplacer(
	" ", "",
	"​", "",
	"‌", "",
	"‍", "",
	"⁠", "",
)

// NormalizeSender extracts the bare address from a raw From value,
// lower-cases it and removes whitespace and zero-width characters.
func NormalizeSender(raw string) string {
	if addr, err := netmail.ParseAddress(raw); err == nil {
		raw = addr.Address
	} else if start := strings.LastIndex(raw, "<"); start >= 0 {
		if end := strings.LastIndex(raw, ">"); end > start {
			raw = raw[start+1 : end]
		}
	}
	return senderCleaner.Replace(strings.ToLower(strings.TrimSpace(raw)))
}

var (
	highKeywords   = []string{"urgent", "asap", "critical"}
	mediumKeywords = []string{"important", "soon"}
)

// ClassifyPriority scans subject and body for urgency keywords,
// case-insensitively. The High tier wins over Medium regardless of keyword
// order or count; anything else is Low.
func ClassifyPriority(subject, body string) domain.TicketPriority {
	text := strings.ToLower(subject + " " + body)
	for _, keyword := range highKeywords {
		if strings.Contains(text, keyword) {
			return domain.TicketPriorityHigh
		}
	}
	for _, keyword := range mediumKeywords {
		if strings.Contains(text, keyword) {
			return domain.TicketPriorityMedium
		}
	}
	return domain.TicketPriorityLow
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
