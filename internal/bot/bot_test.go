package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/ai"
	"github.com/edgard/gptrelay/internal/bot/handlers"
	"github.com/edgard/gptrelay/internal/bot/tasks"
	"github.com/edgard/gptrelay/internal/config"
	"github.com/edgard/gptrelay/internal/telegram"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeSender struct {
	mu       sync.Mutex
	messages []*tgbot.SendMessageParams
}

func (f *fakeSender) SendMessage(_ context.Context, p *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, p)
	return &models.Message{ID: len(f.messages)}, nil
}

func (f *fakeSender) SendChatAction(context.Context, *tgbot.SendChatActionParams) (bool, error) {
	return true, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, m.Text)
	}
	return out
}

type completerFunc func(ctx context.Context, model string, messages []ai.Message) (string, error)

func (f completerFunc) Complete(ctx context.Context, model string, messages []ai.Message) (string, error) {
	return f(ctx, model, messages)
}

func echoCompleter() ai.Completer {
	return completerFunc(func(_ context.Context, _ string, msgs []ai.Message) (string, error) {
		return "echo: " + msgs[len(msgs)-1].Content, nil
	})
}

func testDeps(c ai.Completer) handlers.HandlerDeps {
	return handlers.HandlerDeps{
		Logger: discard,
		Settings: &config.Settings{
			Model:              "test-model",
			Greeting:           config.DefaultGreeting("test-model"),
			ErrorMessage:       config.DefaultErrorMessage,
			EmptyPromptMessage: config.DefaultEmptyPromptMessage,
		},
		Identity:  telegram.Identity{ID: 999, Username: "relay_bot"},
		Completer: c,
	}
}

func textUpdate(id int64, chatID int64, msgText string, entities ...models.MessageEntity) *models.Update {
	return &models.Update{
		ID: id,
		Message: &models.Message{
			ID:       int(id),
			From:     &models.User{ID: 1},
			Chat:     models.Chat{ID: chatID, Type: models.ChatTypeGroup},
			Text:     msgText,
			Entities: entities,
		},
	}
}

func commandUpdate(id int64, cmd string) *models.Update {
	return textUpdate(id, 1, cmd, models.MessageEntity{
		Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: len(cmd),
	})
}

func TestDispatcherRoutes(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	d := NewDispatcher(testDeps(echoCompleter()), 4)

	ctx := context.Background()
	d.Handle(ctx, sender, commandUpdate(1, "/start"))
	d.Handle(ctx, sender, commandUpdate(2, "/help@relay_bot"))
	d.Handle(ctx, sender, commandUpdate(3, "/start@other_bot"))
	d.Handle(ctx, sender, textUpdate(4, 1, "@relay_bot ping"))
	d.Handle(ctx, sender, textUpdate(5, 1, "just chatting"))
	d.Handle(ctx, sender, &models.Update{ID: 6, EditedMessage: &models.Message{Text: "@relay_bot edited"}})
	d.Handle(ctx, sender, &models.Update{ID: 7, Message: &models.Message{Chat: models.Chat{ID: 1}}})
	d.Handle(ctx, sender, nil)
	d.Wait()

	got := sender.texts()
	greetings, echoes := 0, 0
	for _, text := range got {
		switch {
		case strings.HasPrefix(text, "Hello!"):
			greetings++
		case text == "echo: ping":
			echoes++
		default:
			t.Errorf("unexpected reply %q", text)
		}
	}
	if greetings != 2 || echoes != 1 {
		t.Errorf("greetings = %d, echoes = %d; replies %q", greetings, echoes, got)
	}

	stats := d.Stats()
	// Text counts "/start@other_bot", "@relay_bot ping" and "just chatting";
	// only one of them gets a reply.
	want := DispatchStats{Received: 7, Commands: 2, Text: 3, Unhandled: 2}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
	for _, a := range stats.LogValue().Group() {
		if a.Key == "mentions" {
			t.Errorf("stats log a %q counter that includes messages without a mention", a.Key)
		}
	}
}

func TestDispatcherDoesNotBlockOnSlowCompletions(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var started atomic.Int32
	slow := completerFunc(func(context.Context, string, []ai.Message) (string, error) {
		started.Add(1)
		<-release
		return "done", nil
	})

	sender := &fakeSender{}
	d := NewDispatcher(testDeps(slow), 0)

	returned := make(chan struct{})
	go func() {
		for i := int64(1); i <= 3; i++ {
			d.Handle(context.Background(), sender, textUpdate(i, i, "@relay_bot go"))
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle blocked on slow completions")
	}

	deadline := time.Now().Add(2 * time.Second)
	for started.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if started.Load() != 3 {
		t.Fatalf("started = %d, want 3 concurrent completions", started.Load())
	}

	close(release)
	d.Wait()
	if n := len(sender.texts()); n != 3 {
		t.Errorf("sent %d replies, want 3", n)
	}
}

func TestDispatcherLimitsConcurrency(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	c := completerFunc(func(context.Context, string, []ai.Message) (string, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return "ok", nil
	})

	d := NewDispatcher(testDeps(c), 2)
	sender := &fakeSender{}
	for i := int64(1); i <= 6; i++ {
		d.Handle(context.Background(), sender, textUpdate(i, i, "@relay_bot hi"))
	}
	d.Wait()

	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
	if n := len(sender.texts()); n != 6 {
		t.Errorf("sent %d replies, want 6", n)
	}
}

func TestDispatcherRecoversPanics(t *testing.T) {
	t.Parallel()

	boom := completerFunc(func(context.Context, string, []ai.Message) (string, error) {
		panic("boom")
	})

	d := NewDispatcher(testDeps(boom), 1)
	sender := &fakeSender{}
	d.Handle(context.Background(), sender, textUpdate(1, 1, "@relay_bot crash"))
	d.Handle(context.Background(), sender, commandUpdate(2, "/help"))
	d.Wait()

	stats := d.Stats()
	if stats.Panics != 1 || stats.InFlight != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if n := len(sender.texts()); n != 1 {
		t.Errorf("sent %d replies, want 1 greeting after the panic", n)
	}
}

func TestDispatcherTasksSurviveCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := completerFunc(func(ctx context.Context, _ string, _ []ai.Message) (string, error) {
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "finished", nil
	})

	d := NewDispatcher(testDeps(c), 0)
	sender := &fakeSender{}
	ctx, cancel := context.WithCancel(context.Background())
	d.Handle(ctx, sender, textUpdate(1, 1, "@relay_bot work"))
	cancel()
	close(release)
	d.Wait()

	if got := sender.texts(); len(got) != 1 || got[0] != "finished" {
		t.Errorf("sent %q", got)
	}
}

type fakeReceiver struct {
	polled    atomic.Bool
	webhooks  atomic.Bool
	stopEarly bool
}

func (r *fakeReceiver) Start(ctx context.Context) {
	r.polled.Store(true)
	if !r.stopEarly {
		<-ctx.Done()
	}
}

func (r *fakeReceiver) StartWebhook(ctx context.Context) {
	r.webhooks.Store(true)
	<-ctx.Done()
}

func (r *fakeReceiver) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
}

type fakeServer struct {
	ran atomic.Bool
	err error
}

func (s *fakeServer) Run(ctx context.Context) error {
	s.ran.Store(true)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func runFor(t *testing.T, b *Bot, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	select {
	case err := <-done:
		return err
	case <-time.After(d + 5*time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

func TestRunPollingShutsDownGracefully(t *testing.T) {
	t.Parallel()

	r := &fakeReceiver{}
	srv := &fakeServer{}
	sched, err := NewScheduler(discard, map[string]string{tasks.Heartbeat: "*/1 * * * * *"},
		tasks.RegisterAllTasks(tasks.TaskDeps{Logger: discard}))
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	b, err := NewBot(discard, r, NewDispatcher(testDeps(echoCompleter()), 1), Options{Scheduler: sched, Server: srv})
	if err != nil {
		t.Fatalf("NewBot() error = %v", err)
	}
	if err := runFor(t, b, 100*time.Millisecond); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if !r.polled.Load() || r.webhooks.Load() || !srv.ran.Load() {
		t.Errorf("polled = %v, webhooks = %v, server ran = %v", r.polled.Load(), r.webhooks.Load(), srv.ran.Load())
	}
}

func TestRunWebhookMode(t *testing.T) {
	t.Parallel()

	if _, err := NewBot(discard, &fakeReceiver{}, NewDispatcher(testDeps(echoCompleter()), 1), Options{Webhook: true}); err == nil {
		t.Error("NewBot() without server should fail in webhook mode")
	}

	r := &fakeReceiver{}
	b, err := NewBot(discard, r, NewDispatcher(testDeps(echoCompleter()), 1), Options{Webhook: true, Server: &fakeServer{}})
	if err != nil {
		t.Fatalf("NewBot() error = %v", err)
	}
	if err := runFor(t, b, 50*time.Millisecond); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if !r.webhooks.Load() || r.polled.Load() {
		t.Errorf("webhooks = %v, polled = %v", r.webhooks.Load(), r.polled.Load())
	}
}

func TestRunReportsComponentFailures(t *testing.T) {
	t.Parallel()

	t.Run("receiver stops", func(t *testing.T) {
		t.Parallel()
		b, _ := NewBot(discard, &fakeReceiver{stopEarly: true}, NewDispatcher(testDeps(echoCompleter()), 1), Options{})
		if err := runFor(t, b, time.Second); err == nil {
			t.Error("expected error when receiver stops on its own")
		}
	})

	t.Run("server fails", func(t *testing.T) {
		t.Parallel()
		srv := &fakeServer{err: errors.New("address in use")}
		b, _ := NewBot(discard, &fakeReceiver{}, NewDispatcher(testDeps(echoCompleter()), 1), Options{Server: srv})
		if err := runFor(t, b, time.Second); err == nil || !strings.Contains(err.Error(), "address in use") {
			t.Errorf("Run() error = %v", err)
		}
	})

	t.Run("bad schedule", func(t *testing.T) {
		t.Parallel()
		sched, err := NewScheduler(discard, map[string]string{tasks.Heartbeat: "not a cron"},
			tasks.RegisterAllTasks(tasks.TaskDeps{Logger: discard}))
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}
		b, _ := NewBot(discard, &fakeReceiver{}, NewDispatcher(testDeps(echoCompleter()), 1), Options{Scheduler: sched})
		if err := runFor(t, b, time.Second); err == nil {
			t.Error("expected error for invalid cron expression")
		}
	})
}

func TestSchedulerSkipsUnknownTasks(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discard, map[string]string{"unknown": "0 * * * * *", tasks.Heartbeat: "0 0 * * * *"},
		tasks.RegisterAllTasks(tasks.TaskDeps{Logger: discard}))
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if n := s.Jobs(); n != 1 {
		t.Errorf("Jobs() = %d, want 1", n)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
}
