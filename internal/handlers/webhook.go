package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"peanut/internal/governor"
	"peanut/internal/history"
	"peanut/internal/models"
	"peanut/internal/services"
)

const replyQuotaExhausted = "今天聊得有點多了，讓我休息一下，明天再繼續吧 😴"

// WebhookHandler receives inbound chat messages and drives the full
// message pipeline: dispatch, optional generation, reply delivery.
type WebhookHandler struct {
	dispatcher *services.Dispatcher
	llm        *services.LLMService
	reply      *services.ReplyService
	history    *history.Store
}

// NewWebhookHandler creates the message webhook handler
func NewWebhookHandler(
	dispatcher *services.Dispatcher,
	llm *services.LLMService,
	reply *services.ReplyService,
	historyStore *history.Store,
) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		llm:        llm,
		reply:      reply,
		history:    historyStore,
	}
}

// HandleMessage handles one inbound chat message
// POST /api/webhook
func (h *WebhookHandler) HandleMessage(c *fiber.Ctx) error {
	var msg models.InboundMessage
	if err := c.BodyParser(&msg); err != nil {
		log.Printf("❌ [WEBHOOK] Malformed payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid payload format",
		})
	}
	if strings.TrimSpace(msg.UserID) == "" || strings.TrimSpace(msg.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and message are required",
		})
	}

	ctx := c.UserContext()
	result := h.dispatcher.Handle(ctx, msg.UserID, msg.Message, time.Now())

	if !result.Handled {
		// Not addressed to the assistant: nothing is pushed outbound, the
		// static no-op reply only travels back in the webhook response
		return c.JSON(fiber.Map{
			"received": true,
			"handled":  false,
			"reply":    result.ReplyText,
		})
	}

	replyText := result.ReplyText
	if result.NeedsExternalReply {
		replyText = h.generateReply(c, msg.UserID, msg.Message, result)
	}

	if replyText != "" {
		if err := h.reply.Send(ctx, msg.ReplyToken, replyText); err != nil {
			log.Printf("⚠️  [WEBHOOK] Reply delivery failed for user %s: %v", msg.UserID, err)
		}
	}

	return c.JSON(fiber.Map{
		"received": true,
		"handled":  true,
		"reply":    replyText,
	})
}

// generateReply produces a conversational answer for intents the local
// stores cannot satisfy on their own. Quota exhaustion and generation
// failures both degrade to a canned reply rather than an error status.
func (h *WebhookHandler) generateReply(c *fiber.Ctx, userID, message string, result models.DispatchResult) string {
	turns, err := h.history.Recent(userID, 10)
	if err != nil {
		log.Printf("⚠️  [WEBHOOK] Failed to load history for user %s: %v", userID, err)
	}
	// The dispatcher already appended the current user message, and it goes
	// out again as the prompt itself, so drop it from the history window.
	turns = historyWindow(turns)

	prompt := message
	if result.Context != "" {
		prompt = fmt.Sprintf("以下是這位使用者相關的紀錄：\n%s\n\n使用者說：%s", result.Context, message)
	}

	replyText, err := h.llm.GenerateWithHistory(c.UserContext(), prompt, turns)
	if err != nil {
		if errors.Is(err, governor.ErrDailyQuota) {
			log.Printf("🛑 [WEBHOOK] Daily quota reached, refusing generation for user %s", userID)
			return replyQuotaExhausted
		}
		log.Printf("❌ [WEBHOOK] Generation failed for user %s: %v", userID, err)
		return "我現在腦袋有點打結，等等再問我一次 🙏"
	}

	if err := h.history.Append(userID, history.RoleAssistant, replyText); err != nil {
		log.Printf("⚠️  [WEBHOOK] Failed to record assistant turn for user %s: %v", userID, err)
	}
	return replyText
}

// historyWindow trims a trailing user turn from a recent-history window.
func historyWindow(turns []history.Turn) []history.Turn {
	if n := len(turns); n > 0 && turns[n-1].Role == history.RoleUser {
		return turns[:n-1]
	}
	return turns
}
