package mail

import (
	"strings"
	"testing"
)

func TestParseSinglePartMessage(t *testing.T) {
	raw := []byte("From: Jane Client <client@x.com>\r\n" +
		"To: Madison <madison@leaders.st>\r\n" +
		"Cc: cain@leaders.st\r\n" +
		"Subject: Urgent: billing issue\r\n" +
		"Message-ID: <abc123@x.com>\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Please help, this is urgent.\r\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.MessageID != "abc123@x.com" {
		t.Errorf("message id = %q", msg.MessageID)
	}
	if msg.Sender != "client@x.com" {
		t.Errorf("sender = %q", msg.Sender)
	}
	if msg.Subject != "Urgent: billing issue" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Please help") {
		t.Errorf("body = %q", msg.Body)
	}
	if len(msg.Recipients) != 2 {
		t.Fatalf("recipients = %v", msg.Recipients)
	}
	if msg.Recipients[0] != "madison@leaders.st" || msg.Recipients[1] != "cain@leaders.st" {
		t.Errorf("recipients = %v", msg.Recipients)
	}
	if msg.IsReply {
		t.Error("plain message flagged as reply")
	}
}

func TestParseMultipartPicksPlainText(t *testing.T) {
	raw := []byte("From: client@x.com\r\n" +
		"To: madison@leaders.st\r\n" +
		"Subject: mixed content\r\n" +
		"Message-ID: <multi@x.com>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"frontier\"\r\n" +
		"\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		"<p>rich text</p>\r\n" +
		"--frontier\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"plain text wins\r\n" +
		"--frontier--\r\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(msg.Body, "plain text wins") {
		t.Errorf("body = %q, want the text/plain part", msg.Body)
	}
	if strings.Contains(msg.Body, "rich text") {
		t.Errorf("body contains html part: %q", msg.Body)
	}
}

func TestParseEncodedSubject(t *testing.T) {
	raw := []byte("From: client@x.com\r\n" +
		"To: madison@leaders.st\r\n" +
		"Subject: =?UTF-8?Q?Probl=C3=A8me_de_facturation?=\r\n" +
		"Message-ID: <enc@x.com>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"bonjour\r\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.Subject != "Problème de facturation" {
		t.Errorf("subject = %q", msg.Subject)
	}
}

func TestParseFallbacks(t *testing.T) {
	raw := []byte("From: client@x.com\r\n" +
		"To: madison@leaders.st\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"   \r\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.Subject != FallbackSubject {
		t.Errorf("subject = %q, want %q", msg.Subject, FallbackSubject)
	}
	if msg.Body != FallbackBody {
		t.Errorf("body = %q, want %q", msg.Body, FallbackBody)
	}
	if msg.MessageID != "" {
		t.Errorf("message id = %q, want empty for the caller to substitute", msg.MessageID)
	}
}

func TestParseReplyDetection(t *testing.T) {
	raw := []byte("From: client@x.com\r\n" +
		"To: madison@leaders.st\r\n" +
		"Subject: anything\r\n" +
		"In-Reply-To: <abc123@x.com>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"following up\r\n")

	msg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !msg.IsReply {
		t.Error("In-Reply-To header should mark the message as a reply")
	}

	withReferences := []byte("From: client@x.com\r\n" +
		"To: madison@leaders.st\r\n" +
		"Subject: anything\r\n" +
		"References: <abc123@x.com>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"thread tail\r\n")

	msg, err = Parse(withReferences)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !msg.IsReply {
		t.Error("References header should mark the message as a reply")
	}
}
