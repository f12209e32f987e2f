package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/comandaqr/ticket-gateway/internal/config"
)

func TestSendPostsNormalizedNumber(t *testing.T) {
	var got sendTextRequest
	var path, apikey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apikey = r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := New(config.NotifierConfig{
		BaseURL:    srv.URL,
		APIKey:     "secret",
		Instance:   "cozinha",
		PublicHost: "pedidos.example.com",
		DelayMs:    1200,
		Presence:   "composing",
	}, zap.NewNop())

	if err := n.Send(context.Background(), "+55 11 91234-5678", "Feijoada Completa"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if path != "/message/sendText/cozinha" {
		t.Fatalf("path = %q", path)
	}
	if apikey != "secret" {
		t.Fatalf("apikey header = %q", apikey)
	}
	if got.Number != "5511912345678" {
		t.Fatalf("number = %q, want 5511912345678", got.Number)
	}
	if got.Options.Delay != 1200 || got.Options.Presence != "composing" {
		t.Fatalf("options = %+v", got.Options)
	}
	if !strings.Contains(got.TextMessage.Text, "Feijoada Completa") {
		t.Fatalf("body %q missing dish name", got.TextMessage.Text)
	}
	if !strings.Contains(got.TextMessage.Text, "pedidos.example.com") {
		t.Fatalf("body %q missing deep link host", got.TextMessage.Text)
	}
}

func TestInstanceDefault(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))
	defer srv.Close()

	n := New(config.NotifierConfig{BaseURL: srv.URL, APIKey: "k"}, zap.NewNop())
	if err := n.Send(context.Background(), "5511900000000", "Prato"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/message/sendText/main" {
		t.Fatalf("path = %q, want default instance", path)
	}
}

func TestSendGatewayErrorReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"instance offline"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(config.NotifierConfig{BaseURL: srv.URL, APIKey: "k"}, zap.NewNop())
	err := n.Send(context.Background(), "5511900000000", "Prato")
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if !strings.Contains(err.Error(), "status=500") || !strings.Contains(err.Error(), "instance offline") {
		t.Fatalf("error %q missing gateway diagnostics", err)
	}
}

func TestNotifyAbsorbsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	n := New(config.NotifierConfig{BaseURL: srv.URL, APIKey: "k"}, zap.New(core))

	// Must return immediately and never propagate the failure.
	n.Notify("5511900000000", "Prato")

	deadline := time.After(5 * time.Second)
	for logs.FilterMessage("notification failed").Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("failure was not logged")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBreakerSuppressesAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := New(config.NotifierConfig{
		BaseURL: srv.URL,
		APIKey:  "k",
		Breaker: config.BreakerConfig{FailThreshold: 3, OpenForMs: 60000},
	}, zap.NewNop())

	for i := 0; i < 3; i++ {
		if err := n.Send(context.Background(), "5511900000000", "Prato"); err == nil {
			t.Fatalf("attempt %d: expected gateway error", i)
		}
	}
	if calls != 3 {
		t.Fatalf("gateway called %d times before open, want 3", calls)
	}

	// Breaker is open now: the send is dropped without a network call
	// and without surfacing an error.
	if err := n.Send(context.Background(), "5511900000000", "Prato"); err != nil {
		t.Fatalf("suppressed send must not fail: %v", err)
	}
	if calls != 3 {
		t.Fatalf("gateway called %d times after open, want 3", calls)
	}
}

func TestMissingCredentialsSkips(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	// API key intentionally absent: the base URL alone must not be used.
	n := New(config.NotifierConfig{BaseURL: srv.URL}, zap.New(core))

	if err := n.Send(context.Background(), "5511900000000", "Prato"); err != nil {
		t.Fatalf("skip must not fail: %v", err)
	}
	if calls != 0 {
		t.Fatalf("gateway called %d times, want 0", calls)
	}
	if logs.FilterMessage("notification skipped, gateway credentials not configured").Len() != 1 {
		t.Fatal("expected one skip warning")
	}
}
