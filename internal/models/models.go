package models

import (
	"time"
)

// Conversation statuses
const (
	ConversationOpen     = "OPEN"
	ConversationPending  = "PENDING"
	ConversationResolved = "RESOLVED"
	ConversationClosed   = "CLOSED"
)

// Message directions
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Message and recipient delivery statuses
const (
	StatusPending   = "PENDING"
	StatusSent      = "SENT"
	StatusDelivered = "DELIVERED"
	StatusRead      = "READ"
	StatusFailed    = "FAILED"
)

// Message types
const (
	TypeText        = "TEXT"
	TypeImage       = "IMAGE"
	TypeVideo       = "VIDEO"
	TypeAudio       = "AUDIO"
	TypeDocument    = "DOCUMENT"
	TypeLocation    = "LOCATION"
	TypeReaction    = "REACTION"
	TypeInteractive = "INTERACTIVE"
	TypeTemplate    = "TEMPLATE"
)

// Campaign statuses
const (
	CampaignDraft     = "DRAFT"
	CampaignScheduled = "SCHEDULED"
	CampaignSending   = "SENDING"
	CampaignSent      = "SENT"
	CampaignCompleted = "COMPLETED"
	CampaignCancelled = "CANCELLED"
)

// Automation levels
const (
	LevelManual   = "MANUAL"
	LevelAssisted = "ASSISTED"
	LevelSemiAuto = "SEMI_AUTO"
	LevelFullAuto = "FULL_AUTO"
)

// Player represents a club member or prospect reachable over the messaging gateway
type Player struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	FirstName         string      `gorm:"type:varchar(100)" json:"first_name"`
	LastName          string      `gorm:"type:varchar(100)" json:"last_name"`
	Phone             string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"phone"`
	WhatsAppID        string      `gorm:"column:whatsapp_id;type:varchar(50);index" json:"whatsapp_id"`
	Handicap          *float64    `json:"handicap"`
	PreferredLanguage string      `gorm:"type:varchar(10);default:'ES'" json:"preferred_language"`
	EngagementLevel   string      `gorm:"type:varchar(20);default:'NEW'" json:"engagement_level"`
	Source            string      `gorm:"type:varchar(50)" json:"source"`
	IsActive          bool        `gorm:"default:true" json:"is_active"`
	LastContactAt     *time.Time  `json:"last_contact_at"`
	Tags              []PlayerTag `gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE" json:"tags"`
	CreatedAt         time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Player) TableName() string {
	return "players"
}

// PlayerTag is a free-form label attached to a player
type PlayerTag struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PlayerID uint   `gorm:"index:idx_player_tag,unique;not null" json:"player_id"`
	Tag      string `gorm:"type:varchar(100);index:idx_player_tag,unique;not null" json:"tag"`
}

func (PlayerTag) TableName() string {
	return "player_tags"
}

// Conversation groups the message history with one player.
// At most one conversation per player should be in OPEN or PENDING at a time.
type Conversation struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	PlayerID           uint      `gorm:"index;not null" json:"player_id"`
	Player             *Player   `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
	Status             string    `gorm:"type:varchar(20);default:'OPEN';index" json:"status"`
	Channel            string    `gorm:"type:varchar(20);default:'whatsapp'" json:"channel"`
	IsAIBotActive      bool      `gorm:"default:true" json:"is_ai_bot_active"`
	LastMessageAt      time.Time `json:"last_message_at"`
	LastMessagePreview string    `gorm:"type:varchar(255)" json:"last_message_preview"`
	UnreadCount        int       `gorm:"default:0" json:"unread_count"`
	CurrentSentiment   string    `gorm:"type:varchar(20)" json:"current_sentiment"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message is one entry in the conversation ledger. Content is immutable once
// created; only status and delivery timestamps change afterwards.
type Message struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ConversationID    uint       `gorm:"index;not null" json:"conversation_id"`
	WhatsAppMessageID string     `gorm:"column:whatsapp_message_id;type:varchar(255);uniqueIndex;not null" json:"whatsapp_message_id"`
	Direction         string     `gorm:"type:varchar(10);not null" json:"direction"`
	Type              string     `gorm:"type:varchar(20);default:'TEXT'" json:"type"`
	Content           string     `gorm:"type:text" json:"content"`
	MediaURL          string     `gorm:"type:text" json:"media_url"`
	MediaMimeType     string     `gorm:"type:varchar(100)" json:"media_mime_type"`
	Status            string     `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	SentAt            *time.Time `json:"sent_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	ReadAt            *time.Time `json:"read_at"`
	Timestamp         time.Time  `gorm:"index" json:"timestamp"`
	SentBy            string     `gorm:"type:varchar(50)" json:"sent_by"`
	IsAIGenerated     bool       `gorm:"default:false" json:"is_ai_generated"`
	AIDraft           string     `gorm:"column:ai_draft;type:text" json:"ai_draft"`
	TemplateName      string     `gorm:"type:varchar(255)" json:"template_name"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// MessageTemplate is a pre-approved outbound template usable outside the
// 24h customer-service window
type MessageTemplate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Language  string    `gorm:"type:varchar(10);default:'ES'" json:"language"`
	Category  string    `gorm:"type:varchar(100)" json:"category"`
	Body      string    `gorm:"type:text" json:"body"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MessageTemplate) TableName() string {
	return "message_templates"
}

// Campaign is a templated marketing send to a player segment. The aggregate
// counters must always match a recount over its recipients.
type Campaign struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	Name            string              `gorm:"type:varchar(255);not null" json:"name"`
	TemplateName    string              `gorm:"type:varchar(255)" json:"template_name"`
	SegmentQuery    string              `gorm:"type:text" json:"segment_query"`
	Status          string              `gorm:"type:varchar(20);default:'DRAFT'" json:"status"`
	SentAt          *time.Time          `json:"sent_at"`
	CompletedAt     *time.Time          `json:"completed_at"`
	TotalRecipients int                 `gorm:"default:0" json:"total_recipients"`
	TotalSent       int                 `gorm:"default:0" json:"total_sent"`
	TotalDelivered  int                 `gorm:"default:0" json:"total_delivered"`
	TotalRead       int                 `gorm:"default:0" json:"total_read"`
	TotalFailed     int                 `gorm:"default:0" json:"total_failed"`
	Recipients      []CampaignRecipient `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"recipients,omitempty"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignRecipient tracks per-player delivery state for one campaign
type CampaignRecipient struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CampaignID    uint       `gorm:"index:idx_campaign_player,unique;not null" json:"campaign_id"`
	PlayerID      uint       `gorm:"index:idx_campaign_player,unique;not null" json:"player_id"`
	Player        *Player    `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
	Status        string     `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	SentAt        *time.Time `json:"sent_at"`
	DeliveredAt   *time.Time `json:"delivered_at"`
	ReadAt        *time.Time `json:"read_at"`
	FailureReason string     `gorm:"type:text" json:"failure_reason"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (CampaignRecipient) TableName() string {
	return "campaign_recipients"
}

// Tournament registration statuses
const (
	RegistrationRegistered = "REGISTERED"
	RegistrationConfirmed  = "CONFIRMED"
	RegistrationCancelled  = "CANCELLED"
)

// Tournament is referenced by segment filters and the AI prompt digest.
// Tournament management itself lives outside this core.
type Tournament struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Date       time.Time `gorm:"index" json:"date"`
	Format     string    `gorm:"type:varchar(100)" json:"format"`
	MaxPlayers *int      `json:"max_players"`
	Status     string    `gorm:"type:varchar(20);default:'DRAFT'" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Tournament) TableName() string {
	return "tournaments"
}

type TournamentRegistration struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TournamentID uint      `gorm:"index:idx_tournament_player,unique;not null" json:"tournament_id"`
	PlayerID     uint      `gorm:"index:idx_tournament_player,unique;not null" json:"player_id"`
	Status       string    `gorm:"type:varchar(20);default:'REGISTERED'" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TournamentRegistration) TableName() string {
	return "tournament_registrations"
}

// User is an admin/staff account, only used here as a notification target
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Role      string    `gorm:"type:varchar(20);default:'STAFF'" json:"role"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// Notification is an in-app alert for one user
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Type      string     `gorm:"type:varchar(50)" json:"type"`
	Title     string     `gorm:"type:varchar(255)" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	Link      string     `gorm:"type:varchar(255)" json:"link"`
	Data      string     `gorm:"type:text" json:"data"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// AIAnalysisLog records one LLM invocation for auditing
type AIAnalysisLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Type         string    `gorm:"type:varchar(50)" json:"type"`
	PlayerID     uint      `gorm:"index" json:"player_id"`
	Model        string    `gorm:"type:varchar(100)" json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	DurationMs   int64     `json:"duration_ms"`
	Result       string    `gorm:"type:text" json:"result"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AIAnalysisLog) TableName() string {
	return "ai_analysis_logs"
}
