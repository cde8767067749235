package models

import (
	"encoding/json"
	"time"
)

// ClubSettings is the singleton configuration row (ID is always 1). It holds
// the club profile, the AI voice settings and the automation policy. Loaded
// fresh for every automation evaluation so one evaluation sees one snapshot.
type ClubSettings struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ClubName       string `gorm:"type:varchar(255);default:'el club'" json:"club_name"`
	Timezone       string `gorm:"type:varchar(100);default:'Europe/Madrid'" json:"timezone"`
	FieldOpenTime  string `gorm:"type:varchar(5)" json:"field_open_time"`
	FieldCloseTime string `gorm:"type:varchar(5)" json:"field_close_time"`

	VoiceTone     string `gorm:"type:text" json:"voice_tone"`
	VoiceStyle    string `gorm:"type:text" json:"voice_style"`
	VoiceValues   string `gorm:"type:text" json:"voice_values"`
	VoiceExamples string `gorm:"type:text" json:"voice_examples"` // JSON array of sample messages

	AutomationLevel              string `gorm:"type:varchar(20);default:'MANUAL'" json:"automation_level"`
	EscalationKeywords           string `gorm:"type:text" json:"escalation_keywords"` // JSON array
	EscalationSentimentThreshold int    `gorm:"default:2" json:"escalation_sentiment_threshold"`
	MaxAutoReplies               int    `gorm:"default:5" json:"max_auto_replies"`
	SilenceHoursStart            string `gorm:"type:varchar(5)" json:"silence_hours_start"` // "HH:MM"
	SilenceHoursEnd              string `gorm:"type:varchar(5)" json:"silence_hours_end"`
	SilenceDays                  string `gorm:"type:text" json:"silence_days"` // JSON array of weekday names
	DemoMode                     bool   `gorm:"default:false" json:"demo_mode"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ClubSettings) TableName() string {
	return "club_settings"
}

// EscalationKeywordList decodes the stored JSON keyword array
func (s *ClubSettings) EscalationKeywordList() []string {
	var keywords []string
	if s.EscalationKeywords != "" {
		json.Unmarshal([]byte(s.EscalationKeywords), &keywords)
	}
	return keywords
}

// SilenceDayList decodes the stored JSON weekday array (uppercase English names)
func (s *ClubSettings) SilenceDayList() []string {
	var days []string
	if s.SilenceDays != "" {
		json.Unmarshal([]byte(s.SilenceDays), &days)
	}
	return days
}
