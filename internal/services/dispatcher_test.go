package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peanut/internal/config"
	"peanut/internal/history"
	"peanut/internal/intent"
	"peanut/internal/models"
	"peanut/internal/session"
	"peanut/internal/store"
	"peanut/internal/trigger"
)

type dispatcherFixture struct {
	dispatcher *Dispatcher
	sessions   *session.Manager
	todos      *store.TodoStore
	notes      *store.NoteStore
	links      *store.LinkStore
	history    *history.Store
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()

	source, err := config.NewKeywordSource("")
	if err != nil {
		t.Fatalf("Failed to build keyword source: %v", err)
	}
	return newDispatcherFixtureWith(t, source)
}

func newDispatcherFixtureWith(t *testing.T, source *config.KeywordSource) *dispatcherFixture {
	t.Helper()

	dir := t.TempDir()
	hist, err := history.Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	t.Cleanup(func() { hist.Close() })

	sessions := session.NewManager(session.DefaultIdleTimeout)
	todos := store.NewTodoStore(filepath.Join(dir, "todos"))
	notes := store.NewNoteStore(filepath.Join(dir, "notes"))
	links := store.NewLinkStore(filepath.Join(dir, "links"))
	metrics := NewMetrics(prometheus.NewRegistry())

	d := NewDispatcher(
		sessions,
		trigger.NewDetector(source),
		intent.NewRuleClassifier(source),
		source,
		todos, notes, links, hist, metrics,
	)
	return &dispatcherFixture{dispatcher: d, sessions: sessions, todos: todos, notes: notes, links: links, history: hist}
}

func TestWakeWordOpensConversation(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "花生", t0)
	if !res.Handled {
		t.Fatal("Expected bare wake word to be handled")
	}
	if res.ReplyText == "" {
		t.Error("Expected a help reply for a bare wake word")
	}
	if !f.sessions.IsActive("u1", t0.Add(10*time.Second)) {
		t.Error("Expected conversation to be open after wake word")
	}
}

func TestFollowUpWithinTimeoutCreatesTodo(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	f.dispatcher.Handle(context.Background(), "u1", "花生", t0)

	res := f.dispatcher.Handle(context.Background(), "u1", "明天要開會", t0.Add(10*time.Second))
	if !res.Handled {
		t.Fatal("Expected follow-up within the idle window to be handled")
	}
	if !strings.Contains(res.ReplyText, "開會") {
		t.Errorf("Expected confirmation to echo the content, got %q", res.ReplyText)
	}

	pending := f.todos.Query("u1", store.TodoFilter{Status: models.TodoStatusPending})
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending todo, got %d", len(pending))
	}
	if pending[0].DueDate == nil {
		t.Fatal("Expected 明天 to set a due date")
	}
	tomorrow := time.Now().AddDate(0, 0, 1)
	if pending[0].DueDate.Day() != tomorrow.Day() || pending[0].DueDate.Month() != tomorrow.Month() {
		t.Errorf("Expected due date %v, got %v", tomorrow, *pending[0].DueDate)
	}
}

func TestMessageAfterIdleTimeoutIsIgnored(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	f.dispatcher.Handle(context.Background(), "u1", "花生", t0)

	res := f.dispatcher.Handle(context.Background(), "u1", "明天要開會", t0.Add(301*time.Second))
	if res.Handled {
		t.Fatal("Expected message after idle timeout to pass through")
	}
	if got := f.todos.Query("u1", store.TodoFilter{}); len(got) != 0 {
		t.Errorf("Expected no todo stored after timeout, got %d", len(got))
	}
}

func TestEndCommandClosesConversation(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	f.dispatcher.Handle(context.Background(), "u1", "花生", t0)

	res := f.dispatcher.Handle(context.Background(), "u1", "結束", t0.Add(5*time.Second))
	if !res.Handled || res.ReplyText == "" {
		t.Fatal("Expected end command to be handled with a closing reply")
	}
	if f.sessions.IsActive("u1", t0.Add(6*time.Second)) {
		t.Error("Expected conversation to be closed after the end command")
	}
}

func TestEndCommandWithoutConversationIsIgnored(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "結束", t0)
	if res.Handled {
		t.Error("Expected end command outside a conversation to pass through")
	}
}

func TestTodoListAndCompletion(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)
	ctx := context.Background()

	f.dispatcher.Handle(ctx, "u1", "花生", t0)
	f.dispatcher.Handle(ctx, "u1", "要買牛奶", t0.Add(time.Second))

	res := f.dispatcher.Handle(ctx, "u1", "待辦清單", t0.Add(2*time.Second))
	if !strings.Contains(res.ReplyText, "買牛奶") {
		t.Errorf("Expected list to include the pending item, got %q", res.ReplyText)
	}

	res = f.dispatcher.Handle(ctx, "u1", "買牛奶完成了", t0.Add(3*time.Second))
	if !strings.Contains(res.ReplyText, "完成") {
		t.Errorf("Expected completion confirmation, got %q", res.ReplyText)
	}
	if pending := f.todos.Query("u1", store.TodoFilter{Status: models.TodoStatusPending}); len(pending) != 0 {
		t.Errorf("Expected no pending todos after completion, got %d", len(pending))
	}
}

func TestCompletionFollowsCustomKeywordTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	if err := os.WriteFile(path, []byte("todo:\n  update:\n    - 处理完毕\n"), 0o644); err != nil {
		t.Fatalf("Failed to write keywords file: %v", err)
	}
	source, err := config.NewKeywordSource(path)
	if err != nil {
		t.Fatalf("Failed to load custom keyword source: %v", err)
	}

	f := newDispatcherFixtureWith(t, source)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)
	ctx := context.Background()

	f.dispatcher.Handle(ctx, "u1", "花生", t0)
	f.dispatcher.Handle(ctx, "u1", "要買牛奶", t0.Add(time.Second))

	// The customized update phrase must be stripped before keyword matching,
	// not just recognized for routing
	res := f.dispatcher.Handle(ctx, "u1", "牛奶处理完毕", t0.Add(2*time.Second))
	if !strings.Contains(res.ReplyText, "完成") {
		t.Errorf("Expected completion confirmation with custom update keyword, got %q", res.ReplyText)
	}
	if pending := f.todos.Query("u1", store.TodoFilter{Status: models.TodoStatusPending}); len(pending) != 0 {
		t.Errorf("Expected no pending todos after custom-keyword completion, got %d", len(pending))
	}
}

func TestCompletionWithNoMatchReplies(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "花生 買牛奶完成了", t0)
	if !res.Handled {
		t.Fatal("Expected update with no match to still be handled")
	}
	if !strings.Contains(res.ReplyText, "找不到") {
		t.Errorf("Expected not-found reply, got %q", res.ReplyText)
	}
}

func TestLinkIsSaved(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "花生 https://example.com/post 好文章", t0)
	if !res.Handled {
		t.Fatal("Expected link message to be handled")
	}
	saved := f.links.Query("u1", store.LinkFilter{})
	if len(saved) != 1 {
		t.Fatalf("Expected 1 saved link, got %d", len(saved))
	}
	if saved[0].URL != "https://example.com/post" {
		t.Errorf("Unexpected URL: %s", saved[0].URL)
	}
	if saved[0].Title != "好文章" {
		t.Errorf("Expected surrounding text as title, got %q", saved[0].Title)
	}
}

func TestSaveContentStoresNote(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "花生 心得：今天學到了 Go 的 context", t0)
	if !res.Handled {
		t.Fatal("Expected save-content message to be handled")
	}
	notes := f.notes.Query("u1", store.NoteFilter{Type: models.NoteTypeInsight})
	if len(notes) != 1 {
		t.Fatalf("Expected 1 insight note, got %d", len(notes))
	}
}

func TestQueryDefersToExternalReply(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)
	ctx := context.Background()

	f.dispatcher.Handle(ctx, "u1", "花生 原來 Go 的 map 不能併發寫入", t0)

	res := f.dispatcher.Handle(ctx, "u1", "我存過哪些知識", t0.Add(time.Second))
	if !res.NeedsExternalReply {
		t.Fatal("Expected knowledge query to need an external reply")
	}
	if !strings.Contains(res.Context, "map") {
		t.Errorf("Expected stored note in query context, got %q", res.Context)
	}
}

func TestChatDefersToExternalReply(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "花生 今天心情不錯", t0)
	if !res.NeedsExternalReply {
		t.Error("Expected plain chat to need an external reply")
	}
}

type panicClassifier struct{}

func (panicClassifier) Classify(context.Context, string) intent.Result {
	panic("classifier exploded")
}

func TestPanicProducesSafeReply(t *testing.T) {
	f := newDispatcherFixture(t)
	f.dispatcher.classifier = panicClassifier{}
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	res := f.dispatcher.Handle(context.Background(), "u1", "花生 明天要開會", t0)
	if !res.Handled || res.ReplyText == "" {
		t.Error("Expected a safe default reply when handling panics")
	}
}

func TestUsersAreIsolated(t *testing.T) {
	f := newDispatcherFixture(t)
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)

	f.dispatcher.Handle(context.Background(), "u1", "花生", t0)

	res := f.dispatcher.Handle(context.Background(), "u2", "明天要開會", t0.Add(time.Second))
	if res.Handled {
		t.Error("Expected u1's conversation not to admit u2's message")
	}
}
