package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"club-crm/internal/locking"
	"club-crm/internal/models"
	"club-crm/internal/whatsapp"
	payloads "club-crm/pkg/models"

	"gorm.io/gorm"
)

// AutomationEngine is the handoff point for a possible automated reply
type AutomationEngine interface {
	ProcessInbound(ctx context.Context, conversationID, messageID uint)
}

// Processor applies webhook payloads to the ledger. The HTTP handler
// enqueues and returns; a worker drains the queue so gateway retries and
// timeouts never depend on our processing latency.
type Processor struct {
	db      *gorm.DB
	gateway whatsapp.API
	engine  AutomationEngine
	locks   *locking.KeyedMutex
	queue   chan payloads.WebhookPayload
	timeout time.Duration
}

func NewProcessor(db *gorm.DB, gateway whatsapp.API, engine AutomationEngine, timeout time.Duration) *Processor {
	return &Processor{
		db:      db,
		gateway: gateway,
		engine:  engine,
		locks:   locking.NewKeyedMutex(),
		queue:   make(chan payloads.WebhookPayload, 256),
		timeout: timeout,
	}
}

// Enqueue hands a payload to the background worker
func (p *Processor) Enqueue(payload payloads.WebhookPayload) {
	p.queue <- payload
}

// Run drains the queue until the context is cancelled. Started once from main.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-p.queue:
			p.ProcessPayload(ctx, payload)
		}
	}
}

// ProcessPayload walks every entry/change and dispatches messages and status
// events. All errors are logged only: the callback was already acknowledged.
func (p *Processor) ProcessPayload(ctx context.Context, payload payloads.WebhookPayload) {
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			value := change.Value

			var contact *payloads.ContactInfo
			if len(value.Contacts) > 0 {
				contact = &value.Contacts[0]
			}

			for _, msg := range value.Messages {
				if err := p.handleIncomingMessage(ctx, msg, contact); err != nil {
					log.Printf("[Webhook] Error processing message %s: %v", msg.ID, err)
				}
			}

			for _, status := range value.Statuses {
				if err := p.handleStatusUpdate(status); err != nil {
					log.Printf("[Webhook] Error processing status for %s: %v", status.ID, err)
				}
			}
		}
	}
}

// handleIncomingMessage runs the inbound pipeline: find-or-create player and
// conversation, extract content, persist idempotently, update rolling
// conversation fields, ack the read receipt and hand off to automation.
func (p *Processor) handleIncomingMessage(ctx context.Context, msg payloads.InboundMessage, contact *payloads.ContactInfo) error {
	senderPhone := whatsapp.NormalizePhoneForDB(msg.From)

	// Serialize per player so two near-simultaneous messages cannot both
	// create a conversation.
	p.locks.Lock(senderPhone)
	defer p.locks.Unlock(senderPhone)

	player, err := p.findOrCreatePlayer(senderPhone, msg.From, contact)
	if err != nil {
		return fmt.Errorf("find-or-create player: %w", err)
	}

	conversation, err := p.findOrCreateConversation(player.ID)
	if err != nil {
		return fmt.Errorf("find-or-create conversation: %w", err)
	}

	// Idempotency: a redelivered event is a no-op
	var existing models.Message
	err = p.db.Where("whatsapp_message_id = ?", msg.ID).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	msgType, content, mediaURL, mediaMime := p.extractContent(ctx, msg)

	timestamp := time.Now()
	if msg.Timestamp != "" {
		if unix, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
			timestamp = time.Unix(unix, 0)
		}
	}

	record := models.Message{
		ConversationID:    conversation.ID,
		WhatsAppMessageID: msg.ID,
		Direction:         models.DirectionInbound,
		Type:              msgType,
		Content:           content,
		MediaURL:          mediaURL,
		MediaMimeType:     mediaMime,
		Status:            models.StatusDelivered,
		Timestamp:         timestamp,
	}
	if err := p.db.Create(&record).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	preview := content
	if len(preview) > 255 {
		preview = preview[:255]
	}
	err = p.db.Model(&models.Conversation{}).Where("id = ?", conversation.ID).Updates(map[string]interface{}{
		"last_message_at":      timestamp,
		"last_message_preview": preview,
		"unread_count":         gorm.Expr("unread_count + 1"),
		"status":               models.ConversationOpen,
	}).Error
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	// Read receipt back to the gateway, non-fatal
	ackCtx, cancel := context.WithTimeout(ctx, p.timeout)
	if err := p.gateway.MarkRead(ackCtx, msg.ID); err != nil {
		log.Printf("[Webhook] Mark-read failed for %s: %v", msg.ID, err)
	}
	cancel()

	log.Printf("[Webhook] Incoming %s from %s: %.50s", msgType, senderPhone, content)

	if p.engine != nil {
		p.engine.ProcessInbound(ctx, conversation.ID, record.ID)
	}
	return nil
}

func (p *Processor) findOrCreatePlayer(phone, whatsappID string, contact *payloads.ContactInfo) (*models.Player, error) {
	var player models.Player
	err := p.db.Where("phone = ? OR whatsapp_id = ?", phone, whatsappID).First(&player).Error
	if err == nil {
		if player.WhatsAppID == "" {
			if err := p.db.Model(&player).Update("whatsapp_id", whatsappID).Error; err != nil {
				return nil, err
			}
			player.WhatsAppID = whatsappID
		}
		return &player, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	firstName := "WhatsApp"
	lastName := phone
	if contact != nil && contact.Profile.Name != "" {
		parts := strings.Fields(contact.Profile.Name)
		firstName = parts[0]
		if len(parts) > 1 {
			lastName = strings.Join(parts[1:], " ")
		}
	}

	player = models.Player{
		FirstName:         firstName,
		LastName:          lastName,
		Phone:             phone,
		WhatsAppID:        whatsappID,
		Source:            "whatsapp",
		EngagementLevel:   "NEW",
		PreferredLanguage: "ES",
		IsActive:          true,
	}
	if err := p.db.Create(&player).Error; err != nil {
		return nil, err
	}
	log.Printf("[Webhook] Auto-created player: %s %s (%s)", firstName, lastName, phone)
	return &player, nil
}

func (p *Processor) findOrCreateConversation(playerID uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := p.db.
		Where("player_id = ? AND status IN ?", playerID, []string{models.ConversationOpen, models.ConversationPending}).
		Order("last_message_at DESC").
		First(&conversation).Error
	if err == nil {
		return &conversation, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	conversation = models.Conversation{
		PlayerID:      playerID,
		Status:        models.ConversationOpen,
		Channel:       "whatsapp",
		IsAIBotActive: true,
		LastMessageAt: time.Now(),
	}
	if err := p.db.Create(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// extractContent normalizes the type-specific payload into (type, content,
// mediaURL, mimeType). Media URL resolution is best-effort: ingestion never
// fails because the gateway would not hand out a download link.
func (p *Processor) extractContent(ctx context.Context, msg payloads.InboundMessage) (string, string, string, string) {
	switch msg.Type {
	case "text":
		body := ""
		if msg.Text != nil {
			body = msg.Text.Body
		}
		return models.TypeText, body, "", ""

	case "image", "video", "audio", "document":
		var media *payloads.MediaMessage
		var msgType string
		switch msg.Type {
		case "image":
			media, msgType = msg.Image, models.TypeImage
		case "video":
			media, msgType = msg.Video, models.TypeVideo
		case "audio":
			media, msgType = msg.Audio, models.TypeAudio
		case "document":
			media, msgType = msg.Document, models.TypeDocument
		}
		if media == nil {
			return msgType, "[" + msg.Type + "]", "", ""
		}

		var url string
		mediaCtx, cancel := context.WithTimeout(ctx, p.timeout)
		if resolved, err := p.gateway.MediaURL(mediaCtx, media.ID); err == nil {
			url = resolved
		} else {
			log.Printf("[Webhook] Media URL fetch failed for %s: %v", media.ID, err)
		}
		cancel()

		content := media.Caption
		if content == "" {
			content = "[" + msg.Type + "]"
		}
		return msgType, content, url, media.MimeType

	case "location":
		if msg.Location == nil {
			return models.TypeLocation, "[location]", "", ""
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"latitude":  msg.Location.Latitude,
			"longitude": msg.Location.Longitude,
			"name":      msg.Location.Name,
			"address":   msg.Location.Address,
		})
		return models.TypeLocation, string(payload), "", ""

	case "reaction":
		emoji := ""
		if msg.Reaction != nil {
			emoji = msg.Reaction.Emoji
		}
		return models.TypeReaction, emoji, "", ""

	case "interactive":
		content := "[interactive]"
		if msg.Interactive != nil {
			if msg.Interactive.ButtonReply != nil {
				content = msg.Interactive.ButtonReply.Title
			} else if msg.Interactive.ListReply != nil {
				content = msg.Interactive.ListReply.Title
			}
		}
		return models.TypeInteractive, content, "", ""

	default:
		kind := msg.Type
		if kind == "" {
			kind = "unknown"
		}
		return models.TypeText, "[" + kind + "]", "", ""
	}
}
