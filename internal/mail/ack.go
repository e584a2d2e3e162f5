package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/config"
)

// Seam for tests; net/smtp carries no interface to fake.
var smtpSendMail = smtp.SendMail

// AckMailer sends the plain-text acknowledgement reply to a requester after
// their ticket is created, threaded onto the original message via
// In-Reply-To/References.
type AckMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

// NewAckMailer builds the mailer.
func NewAckMailer(cfg config.SMTPConfig, logger *zap.Logger) *AckMailer {
	return &AckMailer{cfg: cfg, logger: logger}
}

// Send submits the acknowledgement. Failures are logged and reported as a
// boolean so a broken SMTP relay never disturbs the ingestion loop.
func (m *AckMailer) Send(to, subject, ticketCode, messageID string) bool {
	if m.cfg.Host == "" || m.cfg.From == "" {
		m.logger.Warn("smtp not configured; skipping acknowledgement",
			zap.String("ticket_code", ticketCode))
		return false
	}

	msg := buildAck(m.cfg.From, to, subject, ticketCode, messageID)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtpSendMail(m.cfg.Addr(), auth, m.cfg.From, []string{to}, msg); err != nil {
		m.logger.Error("send acknowledgement",
			zap.String("to", to),
			zap.String("ticket_code", ticketCode),
			zap.Error(err))
		return false
	}

	m.logger.Info("acknowledgement sent",
		zap.String("to", to),
		zap.String("ticket_code", ticketCode))
	return true
}

func buildAck(from, to, subject, ticketCode, messageID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sanitizeHeader(from))
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeHeader(to))
	fmt.Fprintf(&b, "Subject: Re: %s\r\n", sanitizeHeader(subject))
	if messageID != "" {
		fmt.Fprintf(&b, "In-Reply-To: <%s>\r\n", sanitizeHeader(messageID))
		fmt.Fprintf(&b, "References: <%s>\r\n", sanitizeHeader(messageID))
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Hello,\r\n\r\n"+
		"We have received your request and created ticket %s.\r\n"+
		"Our support team will get back to you as soon as possible.\r\n\r\n"+
		"Please keep the ticket code in any follow-up correspondence.\r\n",
		ticketCode)
	return []byte(b.String())
}

// sanitizeHeader removes CR and LF so untrusted values cannot inject headers.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", "")
	return strings.ReplaceAll(v, "\n", "")
}
