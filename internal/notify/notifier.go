package notify

import (
	"encoding/json"
	"log"

	"club-crm/internal/models"

	"gorm.io/gorm"
)

// AdminNotifier fans out an alert to every active admin. Best-effort: callers
// treat failures as log-only.
type AdminNotifier interface {
	NotifyAdmins(notifType, title, body, link string, data map[string]interface{}) error
}

type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

// NotifyAdmins creates one notification row per active ADMIN/MANAGER user.
// Per-user failures are logged and do not stop the fan-out.
func (n *Notifier) NotifyAdmins(notifType, title, body, link string, data map[string]interface{}) error {
	var admins []models.User
	err := n.db.Where("role IN ? AND is_active = ?", []string{"ADMIN", "MANAGER"}, true).Find(&admins).Error
	if err != nil {
		return err
	}

	dataJSON := ""
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			dataJSON = string(b)
		}
	}

	failed := 0
	for _, admin := range admins {
		notification := models.Notification{
			UserID: admin.ID,
			Type:   notifType,
			Title:  title,
			Body:   body,
			Link:   link,
			Data:   dataJSON,
		}
		if err := n.db.Create(&notification).Error; err != nil {
			log.Printf("[Notifications] Failed to notify user %d: %v", admin.ID, err)
			failed++
		}
	}

	if failed > 0 {
		log.Printf("[Notifications] %d/%d admin notifications failed", failed, len(admins))
	}
	return nil
}
