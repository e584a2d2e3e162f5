package ingest

import (
	"testing"

	"github.com/spec-kit/ticket-ingest/internal/config"
	"github.com/spec-kit/ticket-ingest/internal/domain"
	"github.com/spec-kit/ticket-ingest/internal/mail"
)

func testFilterConfig() config.IngestConfig {
	return config.IngestConfig{
		AllowedSenders:      []string{"client@x.com"},
		AllowedDomains:      []string{"partner.io"},
		MonitoredRecipients: []string{"madison@leaders.st", "cain@leaders.st"},
		InternalDomain:      "leaders.st",
		StrictRecipients:    true,
	}
}

func TestNormalizeSender(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"client@x.com", "client@x.com"},
		{"CLIENT@X.COM", "client@x.com"},
		{"Jane Client <client@x.com>", "client@x.com"},
		{" client@x.com ", "client@x.com"},
		{"cli​ent@x.com", "client@x.com"},
		{"cli‌ent@⁠x.com", "client@x.com"},
	}
	for _, tc := range cases {
		if got := NormalizeSender(tc.in); got != tc.want {
			t.Errorf("NormalizeSender(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEvaluateAccept(t *testing.T) {
	f := NewFilter(testFilterConfig())

	env, reason := f.Evaluate(&mail.ParsedMessage{
		MessageID:  "abc123",
		Sender:     "client@x.com",
		Subject:    "Urgent: billing issue",
		Body:       "Please help.",
		Recipients: []string{"madison@leaders.st"},
	})
	if env == nil {
		t.Fatalf("expected accept, got rejection %q", reason)
	}
	if env.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want High", env.Priority)
	}
	if env.Sender != "client@x.com" || env.MessageID != "abc123" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestEvaluateRejectsInternalSender(t *testing.T) {
	f := NewFilter(testFilterConfig())

	env, reason := f.Evaluate(&mail.ParsedMessage{
		Sender:     "madison@leaders.st",
		Subject:    "internal thread",
		Recipients: []string{"cain@leaders.st"},
	})
	if env != nil {
		t.Fatal("expected rejection for internal sender")
	}
	if reason != "internal sender" {
		t.Errorf("reason = %q", reason)
	}
}

func TestEvaluateRejectsUnknownSender(t *testing.T) {
	f := NewFilter(testFilterConfig())

	env, _ := f.Evaluate(&mail.ParsedMessage{
		Sender:     "stranger@elsewhere.org",
		Subject:    "hello",
		Recipients: []string{"madison@leaders.st"},
	})
	if env != nil {
		t.Fatal("expected rejection for sender outside allow-list")
	}
}

func TestEvaluateAllowsByDomain(t *testing.T) {
	f := NewFilter(testFilterConfig())

	env, reason := f.Evaluate(&mail.ParsedMessage{
		Sender:     "anyone@partner.io",
		Subject:    "hello",
		Recipients: []string{"madison@leaders.st"},
	})
	if env == nil {
		t.Fatalf("expected accept for allowed domain, got %q", reason)
	}
}

func TestEvaluateRecipientCheck(t *testing.T) {
	f := NewFilter(testFilterConfig())

	env, reason := f.Evaluate(&mail.ParsedMessage{
		Sender:     "client@x.com",
		Subject:    "hello",
		Recipients: []string{"unrelated@leaders.st"},
	})
	if env != nil {
		t.Fatal("expected rejection when no monitored recipient matches")
	}
	if reason != "no monitored recipient" {
		t.Errorf("reason = %q", reason)
	}

	// Flat allow-set mode skips the recipient check entirely.
	cfg := testFilterConfig()
	cfg.StrictRecipients = false
	relaxed := NewFilter(cfg)
	if env, _ := relaxed.Evaluate(&mail.ParsedMessage{
		Sender:  "client@x.com",
		Subject: "hello",
	}); env == nil {
		t.Fatal("expected accept in flat allow-set mode")
	}
}

func TestEvaluateRejectsReplies(t *testing.T) {
	f := NewFilter(testFilterConfig())

	byHeader := &mail.ParsedMessage{
		Sender:     "client@x.com",
		Subject:    "ticket update",
		Recipients: []string{"madison@leaders.st"},
		IsReply:    true,
	}
	if env, _ := f.Evaluate(byHeader); env != nil {
		t.Fatal("expected rejection for message with reply headers")
	}

	bySubject := &mail.ParsedMessage{
		Sender:     "client@x.com",
		Subject:    "Re: ticket update",
		Recipients: []string{"madison@leaders.st"},
	}
	if env, reason := f.Evaluate(bySubject); env != nil || reason != "reply" {
		t.Fatalf("expected reply rejection, got env=%v reason=%q", env, reason)
	}

	caseInsensitive := &mail.ParsedMessage{
		Sender:     "client@x.com",
		Subject:    "RE: ticket update",
		Recipients: []string{"madison@leaders.st"},
	}
	if env, _ := f.Evaluate(caseInsensitive); env != nil {
		t.Fatal("expected rejection for upper-case reply marker")
	}
}

func TestClassifyPriority(t *testing.T) {
	cases := []struct {
		subject string
		body    string
		want    domain.TicketPriority
	}{
		{"URGENT: server down", "", domain.TicketPriorityHigh},
		{"hello", "need this ASAP", domain.TicketPriorityHigh},
		{"critical outage", "", domain.TicketPriorityHigh},
		{"please respond soon", "", domain.TicketPriorityMedium},
		{"hello", "this is important", domain.TicketPriorityMedium},
		{"hello", "just checking in", domain.TicketPriorityLow},
		// High wins over Medium when keywords from both tiers appear.
		{"important", "but also urgent", domain.TicketPriorityHigh},
	}
	for _, tc := range cases {
		if got := ClassifyPriority(tc.subject, tc.body); got != tc.want {
			t.Errorf("ClassifyPriority(%q, %q) = %q, want %q", tc.subject, tc.body, got, tc.want)
		}
	}
}
