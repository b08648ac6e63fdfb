package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRouter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_events_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	var hooked bool
	r := NewRouter(Options{
		Gatherer:    reg,
		WebhookPath: "/hook",
		Webhook: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hooked = true
			w.WriteHeader(http.StatusOK)
		}),
	})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK, "OK"},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "test_events_total 1"},
		{"webhook get", http.MethodGet, "/hook", http.StatusMethodNotAllowed, ""},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
		if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("%s: body %q does not contain %q", tt.name, rec.Body.String(), tt.wantBody)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !hooked {
		t.Errorf("webhook: status = %d, hooked = %v", rec.Code, hooked)
	}
}

func TestRouterWithoutWebhook(t *testing.T) {
	t.Parallel()

	r := NewRouter(Options{Gatherer: prometheus.NewRegistry()})
	req := httptest.NewRequest(http.MethodPost, DefaultWebhookPath, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWebhookPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://relay.example.com/tg/updates": "/tg/updates",
		"https://relay.example.com/":           DefaultWebhookPath,
		"https://relay.example.com":            DefaultWebhookPath,
		"":                                     DefaultWebhookPath,
	}
	for in, want := range tests {
		if got := WebhookPath(in); got != want {
			t.Errorf("WebhookPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(addr, NewRouter(Options{Gatherer: prometheus.NewRegistry()}), log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
