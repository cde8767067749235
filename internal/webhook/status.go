package webhook

import (
	"log"
	"strconv"
	"time"

	"club-crm/internal/campaign"
	"club-crm/internal/models"
	payloads "club-crm/pkg/models"

	"gorm.io/gorm"
)

var statusMap = map[string]string{
	"sent":      models.StatusSent,
	"delivered": models.StatusDelivered,
	"read":      models.StatusRead,
	"failed":    models.StatusFailed,
}

// handleStatusUpdate applies a delivery-status callback to the message and,
// for campaign template sends, to the recipient and campaign aggregates.
// Unknown message ids and unknown status values are no-ops.
func (p *Processor) handleStatusUpdate(status payloads.StatusEvent) error {
	if status.ID == "" {
		return nil
	}

	var message models.Message
	err := p.db.Where("whatsapp_message_id = ?", status.ID).First(&message).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	newStatus, ok := statusMap[status.Status]
	if !ok {
		return nil
	}

	eventTime := time.Now()
	if status.Timestamp != "" {
		if unix, err := strconv.ParseInt(status.Timestamp, 10, 64); err == nil {
			eventTime = time.Unix(unix, 0)
		}
	}

	updates := map[string]interface{}{"status": newStatus}
	var deliveredAt, readAt *time.Time

	switch newStatus {
	case models.StatusDelivered:
		deliveredAt = &eventTime
		updates["delivered_at"] = eventTime
	case models.StatusRead:
		readAt = &eventTime
		updates["read_at"] = eventTime
		// A READ arriving before a DELIVERED still implies delivery
		if message.DeliveredAt == nil {
			deliveredAt = &eventTime
			updates["delivered_at"] = eventTime
		}
	}

	if err := p.db.Model(&message).Updates(updates).Error; err != nil {
		return err
	}

	if newStatus == models.StatusFailed && len(status.Errors) > 0 {
		log.Printf("[Webhook] Message %s failed: %s", status.ID, status.Errors[0].Title)
	}

	// Template sends signal a campaign message: mirror the status onto the
	// matching recipient and recount the campaign aggregates.
	if message.Direction == models.DirectionOutbound && message.TemplateName != "" {
		failureReason := ""
		if newStatus == models.StatusFailed {
			failureReason = "Error"
			if len(status.Errors) > 0 && status.Errors[0].Title != "" {
				failureReason = status.Errors[0].Title
			}
		}
		if err := p.applyCampaignStatus(&message, newStatus, deliveredAt, readAt, failureReason); err != nil {
			log.Printf("[Webhook] Error updating campaign recipient: %v", err)
		}
	}

	return nil
}

// applyCampaignStatus finds the player's most recently sent recipient record
// still in SENT/DELIVERED and applies the new status, then recounts the
// campaign's aggregates. The recount (rather than an increment) keeps the
// aggregates correct under duplicate or out-of-order status events.
func (p *Processor) applyCampaignStatus(message *models.Message, newStatus string, deliveredAt, readAt *time.Time, failureReason string) error {
	var conversation models.Conversation
	if err := p.db.First(&conversation, message.ConversationID).Error; err != nil {
		return err
	}

	var recipient models.CampaignRecipient
	err := p.db.
		Where("player_id = ? AND status IN ?", conversation.PlayerID, []string{models.StatusSent, models.StatusDelivered}).
		Order("sent_at DESC").
		First(&recipient).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{"status": newStatus}
	if deliveredAt != nil {
		updates["delivered_at"] = *deliveredAt
	}
	if readAt != nil {
		updates["read_at"] = *readAt
	}
	if newStatus == models.StatusFailed {
		updates["failure_reason"] = failureReason
	}
	if err := p.db.Model(&recipient).Updates(updates).Error; err != nil {
		return err
	}

	return campaign.Recount(p.db, recipient.CampaignID)
}
