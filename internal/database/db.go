package database

import (
	"errors"

	"club-crm/internal/models"

	"gorm.io/gorm"
)

// Migrate runs the schema migration for every model in the core
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Player{},
		&models.PlayerTag{},
		&models.Conversation{},
		&models.Message{},
		&models.MessageTemplate{},
		&models.Campaign{},
		&models.CampaignRecipient{},
		&models.Tournament{},
		&models.TournamentRegistration{},
		&models.User{},
		&models.Notification{},
		&models.AIAnalysisLog{},
		&models.ClubSettings{},
	)
}

// EnsureSettings creates the singleton club settings row if it does not exist
func EnsureSettings(db *gorm.DB) error {
	var settings models.ClubSettings
	err := db.First(&settings, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.ClubSettings{ID: 1}
		return db.Create(&settings).Error
	}
	return err
}
