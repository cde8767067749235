package automation

import (
	"context"
	"fmt"
	"log"
	"time"

	"club-crm/internal/llm"
	"club-crm/internal/locking"
	"club-crm/internal/models"
	"club-crm/internal/notify"
	"club-crm/internal/whatsapp"

	"gorm.io/gorm"
)

// Engine decides per inbound message whether to escalate, draft a suggested
// reply, or reply automatically. It keeps no state between invocations: the
// settings snapshot, conversation state and reply-streak are re-derived from
// the store on every call, so it survives restarts and replays.
type Engine struct {
	db       *gorm.DB
	gateway  whatsapp.API
	llm      llm.Client
	notifier notify.AdminNotifier
	locks    *locking.KeyedMutex
	timeout  time.Duration
	now      func() time.Time
}

func NewEngine(db *gorm.DB, gateway whatsapp.API, llmClient llm.Client, notifier notify.AdminNotifier, timeout time.Duration) *Engine {
	return &Engine{
		db:       db,
		gateway:  gateway,
		llm:      llmClient,
		notifier: notifier,
		locks:    locking.NewKeyedMutex(),
		timeout:  timeout,
		now:      time.Now,
	}
}

// ProcessInbound evaluates one inbound message. Evaluations for the same
// conversation are serialized so concurrent webhooks cannot double-send.
// All errors end the turn with a log entry; the conversation is left as-is.
func (e *Engine) ProcessInbound(ctx context.Context, conversationID, messageID uint) {
	lockKey := fmt.Sprintf("conv:%d", conversationID)
	e.locks.Lock(lockKey)
	defer e.locks.Unlock(lockKey)

	var msg models.Message
	if err := e.db.First(&msg, messageID).Error; err != nil {
		log.Printf("[AutoReply] Message %d not found: %v", messageID, err)
		return
	}
	if msg.Type != models.TypeText || msg.Direction != models.DirectionInbound {
		return
	}

	var settings models.ClubSettings
	if err := e.db.First(&settings, 1).Error; err != nil {
		log.Printf("[AutoReply] Failed to load settings: %v", err)
		return
	}

	if settings.AutomationLevel == models.LevelManual {
		return
	}

	var conv models.Conversation
	if err := e.db.First(&conv, conversationID).Error; err != nil {
		log.Printf("[AutoReply] Conversation %d not found: %v", conversationID, err)
		return
	}

	var player models.Player
	if err := e.db.First(&player, conv.PlayerID).Error; err != nil {
		log.Printf("[AutoReply] Player %d not found: %v", conv.PlayerID, err)
		return
	}

	// Demo mode always drafts and never dispatches, regardless of level
	if settings.DemoMode {
		e.storeDraft(ctx, &conv, &msg)
		log.Printf("[AutoReply] DEMO MODE: draft generated, nothing sent")
		return
	}

	if !conv.IsAIBotActive {
		return
	}

	if e.inSilenceWindow(&settings) {
		log.Printf("[AutoReply] In silence window, skipping")
		return
	}

	escalate, reason := e.checkEscalation(conv.ID, msg.Content, &settings)
	if escalate {
		e.escalate(&conv, &player, reason)
		return
	}

	switch settings.AutomationLevel {
	case models.LevelAssisted:
		e.storeDraft(ctx, &conv, &msg)
		log.Printf("[AutoReply] ASSISTED: draft stored for message %d", msg.ID)
	case models.LevelSemiAuto:
		if isSimpleMessage(msg.Content) {
			e.autoSend(ctx, &conv, &player)
			log.Printf("[AutoReply] SEMI_AUTO: auto-sent (simple message)")
		} else {
			e.storeDraft(ctx, &conv, &msg)
			log.Printf("[AutoReply] SEMI_AUTO: draft stored (complex message)")
		}
	case models.LevelFullAuto:
		e.autoSend(ctx, &conv, &player)
	}
}

// escalate hands the conversation to a human and alerts the admins
func (e *Engine) escalate(conv *models.Conversation, player *models.Player, reason string) {
	log.Printf("[AutoReply] Escalating conversation %d: %s", conv.ID, reason)

	if err := e.db.Model(conv).Update("status", models.ConversationPending).Error; err != nil {
		log.Printf("[AutoReply] Failed to mark conversation pending: %v", err)
		return
	}

	err := e.notifier.NotifyAdmins(
		"ESCALATION",
		"Conversacion escalada",
		fmt.Sprintf("%s %s: %s", player.FirstName, player.LastName, reason),
		"/inbox",
		map[string]interface{}{"conversation_id": conv.ID, "player_id": player.ID},
	)
	if err != nil {
		log.Printf("[AutoReply] Notification error: %v", err)
	}
}

// storeDraft generates a suggestion and stages it on the inbound message
func (e *Engine) storeDraft(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	draft, err := e.GenerateReply(ctx, conv.ID)
	if err != nil {
		log.Printf("[AutoReply] Draft error for conversation %d: %v", conv.ID, err)
		return
	}
	if draft == "" {
		return
	}
	if err := e.db.Model(msg).Update("ai_draft", draft).Error; err != nil {
		log.Printf("[AutoReply] Failed to store draft: %v", err)
	}
}

// autoSend generates a reply, dispatches it and mirrors it into the ledger
func (e *Engine) autoSend(ctx context.Context, conv *models.Conversation, player *models.Player) {
	replyText, err := e.GenerateReply(ctx, conv.ID)
	if err != nil {
		log.Printf("[AutoReply] Reply generation failed for conversation %d: %v", conv.ID, err)
		return
	}
	if replyText == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messageID, err := e.gateway.SendText(sendCtx, player.Phone, replyText)
	if err != nil {
		log.Printf("[AutoReply] Gateway send failed for conversation %d: %v", conv.ID, err)
		return
	}

	now := e.now()
	outbound := models.Message{
		ConversationID:    conv.ID,
		WhatsAppMessageID: messageID,
		Direction:         models.DirectionOutbound,
		Type:              models.TypeText,
		Content:           replyText,
		Status:            models.StatusSent,
		SentAt:            &now,
		Timestamp:         now,
		SentBy:            "ai",
		IsAIGenerated:     true,
	}
	if err := e.db.Create(&outbound).Error; err != nil {
		log.Printf("[AutoReply] Failed to persist outbound message: %v", err)
		return
	}

	preview := replyText
	if len(preview) > 255 {
		preview = preview[:255]
	}
	err = e.db.Model(conv).Updates(map[string]interface{}{
		"last_message_at":      now,
		"last_message_preview": preview,
	}).Error
	if err != nil {
		log.Printf("[AutoReply] Failed to refresh conversation: %v", err)
	}
}
