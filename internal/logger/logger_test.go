package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	t.Parallel()

	var jsonBuf bytes.Buffer
	newLogger(&jsonBuf, "info", true).Info("hello", "k", "v")
	var entry map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &entry); err != nil {
		t.Fatalf("json output is not valid JSON: %v (%q)", err, jsonBuf.String())
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("unexpected json entry: %v", entry)
	}

	var textBuf bytes.Buffer
	l := newLogger(&textBuf, "warn", false)
	l.Info("dropped")
	l.Warn("kept")
	out := textBuf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info entry logged at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=kept") {
		t.Errorf("text output missing warn entry: %q", out)
	}
}

func TestUpdateType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *models.Update
		want   string
	}{
		{"nil", nil, "nil"},
		{"message", &models.Update{Message: &models.Message{}}, "message"},
		{"edited", &models.Update{EditedMessage: &models.Message{}}, "edited_message"},
		{"callback", &models.Update{CallbackQuery: &models.CallbackQuery{}}, "callback_query"},
		{"empty", &models.Update{}, "other"},
	}
	for _, tt := range tests {
		if got := UpdateType(tt.update); got != tt.want {
			t.Errorf("%s: UpdateType() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMiddlewareCallsNextAndLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "debug", true)

	called := false
	next := func(ctx context.Context, b *bot.Bot, update *models.Update) { called = true }

	update := &models.Update{
		ID: 42,
		Message: &models.Message{
			ID:   7,
			Chat: models.Chat{ID: -100},
			From: &models.User{ID: 5},
			Text: strings.Repeat("a", 80),
		},
	}
	Middleware(log)(next)(context.Background(), nil, update)

	if !called {
		t.Fatal("middleware did not call next handler")
	}
	out := buf.String()
	for _, want := range []string{`"update_id":42`, `"chat_id":-100`, `"update_type":"message"`, `..."`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateString("héllo wörld", 8); got != "héllo..." {
		t.Errorf("got %q, want rune-safe truncation", got)
	}
	if got := truncateString("abcdef", 2); got != "..." {
		t.Errorf("got %q", got)
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback logger")
	}
	if got := FromContext(context.Background(), nil); got != slog.Default() {
		t.Error("expected default logger")
	}

	var buf bytes.Buffer
	scoped := slog.New(slog.NewJSONHandler(&buf, nil)).With("request_id", "abc")
	ctx := WithContext(context.Background(), scoped)
	FromContext(ctx, fallback).Info("hello")

	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Errorf("scoped logger not used: %s", buf.String())
	}
}
