package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"club-crm/internal/models"
	"club-crm/internal/whatsapp"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrAlreadySending   = errors.New("campaign already sent or in progress")
	ErrTemplateNotFound = errors.New("campaign template not found")
)

// SegmentQuery is the structured audience filter of a campaign. Every
// dimension is optional; present dimensions are ANDed together. Only active
// players are ever eligible.
type SegmentQuery struct {
	EngagementLevels []string `json:"engagement_levels,omitempty"`
	Languages        []string `json:"languages,omitempty"`
	HandicapMin      *float64 `json:"handicap_min,omitempty"`
	HandicapMax      *float64 `json:"handicap_max,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	TournamentIDs    []uint   `json:"tournament_ids,omitempty"`
}

// Sender resolves campaign segments and fans out template sends. Send runs
// as a background job; multiple campaigns may send concurrently.
type Sender struct {
	db       *gorm.DB
	gateway  whatsapp.API
	interval time.Duration
	timeout  time.Duration
}

func NewSender(db *gorm.DB, gateway whatsapp.API, interval, timeout time.Duration) *Sender {
	return &Sender{db: db, gateway: gateway, interval: interval, timeout: timeout}
}

// PlayerFilter applies the segment constraints to a player query. Both
// PreviewRecipients and Send go through here, so the previewed set and the
// materialized recipient set can never diverge on the same snapshot.
func PlayerFilter(db *gorm.DB, segment SegmentQuery) *gorm.DB {
	q := db.Model(&models.Player{}).Where("players.is_active = ?", true)

	if len(segment.EngagementLevels) > 0 {
		q = q.Where("players.engagement_level IN ?", segment.EngagementLevels)
	}
	if len(segment.Languages) > 0 {
		q = q.Where("players.preferred_language IN ?", segment.Languages)
	}
	if segment.HandicapMin != nil {
		q = q.Where("players.handicap >= ?", *segment.HandicapMin)
	}
	if segment.HandicapMax != nil {
		q = q.Where("players.handicap <= ?", *segment.HandicapMax)
	}
	if len(segment.Tags) > 0 {
		q = q.Where("players.id IN (?)",
			db.Model(&models.PlayerTag{}).Select("player_id").Where("tag IN ?", segment.Tags))
	}
	if len(segment.TournamentIDs) > 0 {
		q = q.Where("players.id IN (?)",
			db.Model(&models.TournamentRegistration{}).Select("player_id").
				Where("tournament_id IN ? AND status IN ?", segment.TournamentIDs,
					[]string{models.RegistrationRegistered, models.RegistrationConfirmed}))
	}

	return q
}

// PreviewRecipients returns the players a segment currently matches
func (s *Sender) PreviewRecipients(segment SegmentQuery) ([]models.Player, int, error) {
	var players []models.Player
	err := PlayerFilter(s.db, segment).Order("last_name ASC").Find(&players).Error
	if err != nil {
		return nil, 0, err
	}
	return players, len(players), nil
}

// Send executes a campaign: guard the status, resolve the template, create
// the recipient rows, then walk them sequentially with a fixed pause. Per
// recipient failures are recorded and the batch continues; only a missing
// template aborts the whole send (reverting the campaign to DRAFT).
func (s *Sender) Send(ctx context.Context, campaignID uint) error {
	var campaign models.Campaign
	if err := s.db.First(&campaign, campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCampaignNotFound
		}
		return err
	}

	// Guarded transition: only one caller can move DRAFT/SCHEDULED to
	// SENDING, so a concurrent second send fails here.
	now := time.Now()
	res := s.db.Model(&models.Campaign{}).
		Where("id = ? AND status IN ?", campaignID, []string{models.CampaignDraft, models.CampaignScheduled}).
		Updates(map[string]interface{}{"status": models.CampaignSending, "sent_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadySending
	}

	var template models.MessageTemplate
	err := s.db.Where("name = ? AND is_active = ?", campaign.TemplateName, true).First(&template).Error
	if err != nil {
		// No partial send without a valid template
		s.db.Model(&models.Campaign{}).Where("id = ?", campaignID).
			Updates(map[string]interface{}{"status": models.CampaignDraft, "sent_at": nil})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, campaign.TemplateName)
		}
		return err
	}

	var segment SegmentQuery
	if campaign.SegmentQuery != "" {
		if err := json.Unmarshal([]byte(campaign.SegmentQuery), &segment); err != nil {
			log.Printf("[Campaign] Invalid segment for campaign %d: %v", campaignID, err)
		}
	}

	var players []models.Player
	if err := PlayerFilter(s.db, segment).Find(&players).Error; err != nil {
		return err
	}

	if len(players) == 0 {
		completedAt := time.Now()
		log.Printf("[Campaign] %q matched no recipients", campaign.Name)
		return s.db.Model(&models.Campaign{}).Where("id = ?", campaignID).
			Updates(map[string]interface{}{
				"status":           models.CampaignCompleted,
				"completed_at":     completedAt,
				"total_recipients": 0,
			}).Error
	}

	// Bulk-create PENDING rows; the (campaign, player) unique pair makes a
	// re-run after a partial failure safe.
	recipients := make([]models.CampaignRecipient, 0, len(players))
	for _, p := range players {
		recipients = append(recipients, models.CampaignRecipient{
			CampaignID: campaignID,
			PlayerID:   p.ID,
			Status:     models.StatusPending,
		})
	}
	err = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&recipients).Error
	if err != nil {
		return err
	}

	playersByID := make(map[uint]models.Player, len(players))
	for _, p := range players {
		playersByID[p.ID] = p
	}

	var pending []models.CampaignRecipient
	err = s.db.Where("campaign_id = ? AND status = ?", campaignID, models.StatusPending).Find(&pending).Error
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	language := whatsapp.MapLanguageCode(template.Language)

	for _, recipient := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		player, ok := playersByID[recipient.PlayerID]
		if !ok || player.Phone == "" {
			s.failRecipient(recipient.ID, "no phone number")
			continue
		}

		components := buildComponents(template.Body, player.FirstName)

		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		messageID, err := s.gateway.SendTemplate(sendCtx, player.Phone, template.Name, language, components)
		cancel()
		if err != nil {
			log.Printf("[Campaign] Send to %s failed: %v", player.Phone, err)
			s.failRecipient(recipient.ID, err.Error())
			continue
		}

		sentAt := time.Now()
		err = s.db.Model(&models.CampaignRecipient{}).Where("id = ?", recipient.ID).
			Updates(map[string]interface{}{"status": models.StatusSent, "sent_at": sentAt}).Error
		if err != nil {
			log.Printf("[Campaign] Failed to mark recipient %d sent: %v", recipient.ID, err)
		}

		// Mirror the send into the conversation ledger so it shows up
		// alongside organic chat
		if err := s.mirrorMessage(&player, &template, messageID, sentAt); err != nil {
			log.Printf("[Campaign] Failed to mirror message for player %d: %v", player.ID, err)
		}
	}

	if err := Recount(s.db, campaignID); err != nil {
		return err
	}

	log.Printf("[Campaign] %q sent", campaign.Name)
	return s.db.Model(&models.Campaign{}).Where("id = ?", campaignID).
		Update("status", models.CampaignSent).Error
}

func (s *Sender) failRecipient(recipientID uint, reason string) {
	err := s.db.Model(&models.CampaignRecipient{}).Where("id = ?", recipientID).
		Updates(map[string]interface{}{"status": models.StatusFailed, "failure_reason": reason}).Error
	if err != nil {
		log.Printf("[Campaign] Failed to mark recipient %d failed: %v", recipientID, err)
	}
}

// mirrorMessage records the template send as an outbound ledger entry in the
// player's active conversation, creating one if none is open
func (s *Sender) mirrorMessage(player *models.Player, template *models.MessageTemplate, messageID string, sentAt time.Time) error {
	var conversation models.Conversation
	err := s.db.
		Where("player_id = ? AND status IN ?", player.ID, []string{models.ConversationOpen, models.ConversationPending}).
		Order("last_message_at DESC").
		First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		conversation = models.Conversation{
			PlayerID:      player.ID,
			Status:        models.ConversationOpen,
			Channel:       "whatsapp",
			IsAIBotActive: true,
			LastMessageAt: sentAt,
		}
		if err := s.db.Create(&conversation).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	message := models.Message{
		ConversationID:    conversation.ID,
		WhatsAppMessageID: messageID,
		Direction:         models.DirectionOutbound,
		Type:              models.TypeTemplate,
		Content:           template.Body,
		Status:            models.StatusSent,
		SentAt:            &sentAt,
		Timestamp:         sentAt,
		SentBy:            "campaign",
		TemplateName:      template.Name,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return err
	}

	preview := template.Body
	if len(preview) > 255 {
		preview = preview[:255]
	}
	return s.db.Model(&conversation).Updates(map[string]interface{}{
		"last_message_at":      sentAt,
		"last_message_preview": preview,
	}).Error
}

var placeholderRe = regexp.MustCompile(`\{\{\d+\}\}`)

// buildComponents binds the first body placeholder to the player's first
// name. Later placeholders are sent blank; per-campaign parameter mapping is
// not supported yet.
func buildComponents(templateBody, firstName string) []whatsapp.Component {
	placeholders := placeholderRe.FindAllString(templateBody, -1)
	if len(placeholders) == 0 {
		return nil
	}

	params := make([]whatsapp.Parameter, len(placeholders))
	params[0] = whatsapp.Parameter{Type: "text", Text: firstName}
	for i := 1; i < len(params); i++ {
		params[i] = whatsapp.Parameter{Type: "text", Text: ""}
	}

	return []whatsapp.Component{{Type: "body", Parameters: params}}
}

// Recount recomputes a campaign's aggregate counters from a full group-by
// over its recipients. Recounting instead of incrementing keeps the
// aggregates correct under duplicate or out-of-order status events.
func Recount(db *gorm.DB, campaignID uint) error {
	type statusCount struct {
		Status string
		Count  int
	}
	var counts []statusCount
	err := db.Model(&models.CampaignRecipient{}).
		Select("status, count(*) as count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return err
	}

	countMap := make(map[string]int, len(counts))
	total := 0
	for _, c := range counts {
		countMap[c.Status] = c.Count
		total += c.Count
	}

	return db.Model(&models.Campaign{}).Where("id = ?", campaignID).Updates(map[string]interface{}{
		"total_recipients": total,
		"total_sent":       countMap[models.StatusSent] + countMap[models.StatusDelivered] + countMap[models.StatusRead],
		"total_delivered":  countMap[models.StatusDelivered] + countMap[models.StatusRead],
		"total_read":       countMap[models.StatusRead],
		"total_failed":     countMap[models.StatusFailed],
	}).Error
}
