package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ingest/internal/config"
)

func TestSlackAlerterPostsTextPayload(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewSlackAlerter(config.AlertConfig{WebhookURL: srv.URL}, zap.NewNop())
	if !a.Alert(context.Background(), "ticket TCK-00001 is overdue") {
		t.Fatal("expected delivery to succeed")
	}
	if !strings.Contains(body, `"text":"ticket TCK-00001 is overdue"`) {
		t.Errorf("payload = %s", body)
	}
}

func TestSlackAlerterSoftFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewSlackAlerter(config.AlertConfig{WebhookURL: srv.URL}, zap.NewNop())
	if a.Alert(context.Background(), "boom") {
		t.Error("server error should report false")
	}

	unconfigured := NewSlackAlerter(config.AlertConfig{}, zap.NewNop())
	if unconfigured.Alert(context.Background(), "boom") {
		t.Error("missing webhook URL should report false")
	}
}
