package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"peanut/internal/config"
	"peanut/internal/history"
	"peanut/internal/intent"
	"peanut/internal/models"
	"peanut/internal/session"
	"peanut/internal/store"
	"peanut/internal/trigger"
)

// Canned replies
const (
	replyHelp    = "我在聽！直接跟我說就可以了，例如：「明天要開會」、「待辦清單」，或丟個連結給我 🥜"
	replyNoOp    = "叫我一聲「花生」我就會開始聽囉 🥜"
	replyClosing = "好的，下次再聊！👋"
	replyError   = "嗯…我這邊出了點狀況，等一下再試試 🙏"
)

// Dispatcher composes the detector, session manager, classifier, and domain
// stores. One Handle call processes one inbound message end to end; messages
// from the same user are serialized, different users proceed in parallel.
type Dispatcher struct {
	sessions   *session.Manager
	detector   *trigger.Detector
	classifier intent.Classifier
	keywords   *config.KeywordSource
	todos      *store.TodoStore
	notes      *store.NoteStore
	links      *store.LinkStore
	history    *history.Store
	metrics    *Metrics

	userLocks sync.Map // user id -> *sync.Mutex
}

// NewDispatcher wires the message-handling pipeline. The keyword source is the
// same one the detector and classifier read, so routing and payload stripping
// always see one set of tables.
func NewDispatcher(
	sessions *session.Manager,
	detector *trigger.Detector,
	classifier intent.Classifier,
	keywords *config.KeywordSource,
	todos *store.TodoStore,
	notes *store.NoteStore,
	links *store.LinkStore,
	historyStore *history.Store,
	metrics *Metrics,
) *Dispatcher {
	return &Dispatcher{
		sessions:   sessions,
		detector:   detector,
		classifier: classifier,
		keywords:   keywords,
		todos:      todos,
		notes:      notes,
		links:      links,
		history:    historyStore,
		metrics:    metrics,
	}
}

// Handle processes one inbound message. Any panic while handling converts to
// a safe default reply plus a logged diagnostic; one bad message never takes
// down the process or affects other users.
func (d *Dispatcher) Handle(ctx context.Context, userID, rawText string, now time.Time) (result models.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ [DISPATCH] Panic while handling message from %s: %v", userID, r)
			d.metrics.MessagesHandled.WithLabelValues("error").Inc()
			result = models.DispatchResult{ReplyText: replyError, Handled: true}
		}
	}()

	mu := d.lockUser(userID)
	defer mu.Unlock()

	trimmed := strings.TrimSpace(rawText)

	// Explicit end command closes an open conversation
	if d.detector.IsEndCommand(trimmed) && d.sessions.IsActive(userID, now) {
		d.sessions.End(userID)
		d.metrics.MessagesHandled.WithLabelValues("handled").Inc()
		return models.DispatchResult{ReplyText: replyClosing, Handled: true}
	}

	active := d.sessions.IsActive(userID, now)
	triggered, payload := d.detector.Detect(rawText)

	// Not addressed to the assistant: a static no-op reply the transport may
	// surface or drop, never a generation call
	if !active && !triggered {
		d.metrics.MessagesHandled.WithLabelValues("ignored").Inc()
		return models.DispatchResult{ReplyText: replyNoOp, Handled: false}
	}
	if triggered {
		d.metrics.Triggers.Inc()
	}
	if !triggered {
		// Session is open: the whole message is the payload
		payload = trimmed
	}

	d.sessions.Touch(userID, now)

	// A bare wake word just opens the conversation
	if strings.TrimSpace(payload) == "" {
		d.metrics.MessagesHandled.WithLabelValues("handled").Inc()
		return models.DispatchResult{ReplyText: replyHelp, Handled: true}
	}

	if err := d.history.Append(userID, history.RoleUser, payload); err != nil {
		log.Printf("⚠️  [DISPATCH] Failed to record history for %s: %v", userID, err)
	}

	classified := d.classifier.Classify(ctx, payload)
	d.metrics.Intents.WithLabelValues(classified.Intent).Inc()
	log.Printf("🧭 [DISPATCH] User %s intent=%s/%s%s (confidence %.2f)",
		userID, classified.Intent, classified.SubIntent, classified.QueryType, classified.Confidence)

	result = d.route(userID, payload, classified, now)
	d.metrics.MessagesHandled.WithLabelValues("handled").Inc()
	return result
}

func (d *Dispatcher) lockUser(userID string) *sync.Mutex {
	actual, _ := d.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu
}

func (d *Dispatcher) route(userID, payload string, classified intent.Result, now time.Time) models.DispatchResult {
	switch classified.Intent {
	case intent.IntentTodo:
		return d.handleTodo(userID, payload, classified)

	case intent.IntentLink:
		return d.handleLink(userID, payload)

	case intent.IntentSaveContent:
		return d.handleSaveContent(userID, payload, classified)

	case intent.IntentQuery:
		return d.handleQuery(userID, classified)

	default: // chat
		return models.DispatchResult{NeedsExternalReply: true, Handled: true}
	}
}

func (d *Dispatcher) handleTodo(userID, payload string, classified intent.Result) models.DispatchResult {
	switch classified.SubIntent {
	case intent.SubIntentQuery:
		pending := d.todos.Query(userID, store.TodoFilter{Status: models.TodoStatusPending, Limit: 10})
		if len(pending) == 0 {
			return models.DispatchResult{ReplyText: "目前沒有待辦事項 🎉", Handled: true}
		}
		return models.DispatchResult{ReplyText: "📋 待辦清單：\n" + formatTodos(pending), Handled: true}

	case intent.SubIntentUpdate:
		keyword := d.updateKeyword(payload)
		if keyword == "" {
			return models.DispatchResult{ReplyText: "要把哪一件事標成完成呢？", Handled: true}
		}
		res := d.todos.UpdateStatus(userID, keyword, models.TodoStatusCompleted)
		if !res.Success {
			return models.DispatchResult{ReplyText: fmt.Sprintf("找不到符合「%s」的待辦事項", keyword), Handled: true}
		}
		return models.DispatchResult{ReplyText: fmt.Sprintf("✅ 已完成 %d 件待辦", res.Count), Handled: true}

	default: // create
		todo, err := d.todos.Create(userID, payload)
		if err != nil {
			return models.DispatchResult{ReplyText: replyError, Handled: true}
		}
		reply := "📝 已加入待辦：" + todo.Content
		if todo.DueDate != nil {
			reply += fmt.Sprintf("（期限 %d/%d）", int(todo.DueDate.Month()), todo.DueDate.Day())
		}
		return models.DispatchResult{ReplyText: reply, Handled: true}
	}
}

func (d *Dispatcher) handleLink(userID, payload string) models.DispatchResult {
	url := intent.ExtractURL(payload)
	if url == "" {
		return models.DispatchResult{NeedsExternalReply: true, Handled: true}
	}
	title := strings.TrimSpace(strings.Replace(payload, url, "", 1))

	if _, err := d.links.Create(userID, url, title); err != nil {
		return models.DispatchResult{ReplyText: replyError, Handled: true}
	}
	return models.DispatchResult{ReplyText: "🔗 連結收好了！", Handled: true}
}

func (d *Dispatcher) handleSaveContent(userID, payload string, classified intent.Result) models.DispatchResult {
	note, err := d.notes.Create(userID, payload, classified.ContentType, nil)
	if err != nil {
		return models.DispatchResult{ReplyText: replyError, Handled: true}
	}
	return models.DispatchResult{ReplyText: fmt.Sprintf("💾 已收藏這則%s", noteTypeLabel(note.Type)), Handled: true}
}

// handleQuery gathers any stored context and defers the generation call to
// the layer that owns the reply channel.
func (d *Dispatcher) handleQuery(userID string, classified intent.Result) models.DispatchResult {
	var contextText string

	switch classified.QueryType {
	case intent.QueryKnowledge:
		notes := d.notes.Query(userID, store.NoteFilter{Type: models.NoteTypeKnowledge, Limit: 5})
		contextText = formatNotes(notes)

	case intent.QueryContent:
		notes := d.notes.Query(userID, store.NoteFilter{Limit: 5})
		contextText = formatNotes(notes)

	case intent.QueryChatHistory:
		turns, err := d.history.Recent(userID, 10)
		if err != nil {
			log.Printf("⚠️  [DISPATCH] Failed to load history for %s: %v", userID, err)
		}
		contextText = formatTurns(turns)
	}

	return models.DispatchResult{NeedsExternalReply: true, Context: contextText, Handled: true}
}

// updateKeyword strips the update phrasing from the payload, leaving the
// keyword to match pending to-dos against. It reads the same table the
// classifier matched on, so a customized keyword file cannot leave the
// phrase behind in the keyword.
func (d *Dispatcher) updateKeyword(payload string) string {
	keyword := payload
	for _, k := range d.keywords.Current().Todo.Update {
		keyword = strings.ReplaceAll(keyword, k, "")
	}
	return strings.Trim(keyword, " ，,。.！!～~")
}

func formatTodos(todos []models.Todo) string {
	var b strings.Builder
	for i, t := range todos {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Content)
		if t.DueDate != nil {
			fmt.Fprintf(&b, "（%d/%d）", int(t.DueDate.Month()), t.DueDate.Day())
		}
		if i < len(todos)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatNotes(notes []models.Note) string {
	if len(notes) == 0 {
		return ""
	}
	var b strings.Builder
	for i, n := range notes {
		fmt.Fprintf(&b, "- [%s] %s", noteTypeLabel(n.Type), n.Content)
		if i < len(notes)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatTurns(turns []history.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, t := range turns {
		fmt.Fprintf(&b, "%s: %s", t.Role, t.Content)
		if i < len(turns)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func noteTypeLabel(noteType string) string {
	switch noteType {
	case models.NoteTypeInsight:
		return "心得"
	case models.NoteTypeKnowledge:
		return "知識"
	case models.NoteTypeMemory:
		return "回憶"
	case models.NoteTypeMusic:
		return "音樂"
	case models.NoteTypeLife:
		return "生活"
	default:
		return "筆記"
	}
}
