package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"club-crm/internal/database"
	"club-crm/internal/llm"
	"club-crm/internal/models"
	"club-crm/internal/whatsapp"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.EnsureSettings(db))
	return db
}

type fakeGateway struct {
	mu        sync.Mutex
	sentTexts []string
	sentTo    []string
	sendErr   error
	nextID    int
}

func (f *fakeGateway) SendText(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	f.sentTexts = append(f.sentTexts, body)
	f.sentTo = append(f.sentTo, to)
	return fmt.Sprintf("wamid.fake.%d", f.nextID), nil
}

func (f *fakeGateway) SendTemplate(ctx context.Context, to, name, language string, components []whatsapp.Component) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("wamid.fake.%d", f.nextID), nil
}

func (f *fakeGateway) MarkRead(ctx context.Context, messageID string) error { return nil }

func (f *fakeGateway) MediaURL(ctx context.Context, mediaID string) (string, error) {
	return "", fmt.Errorf("not supported")
}

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	systems []string
	turns   [][]llm.Turn
}

func (f *fakeLLM) ChatCompletion(ctx context.Context, system string, turns []llm.Turn) (llm.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.systems = append(f.systems, system)
	f.turns = append(f.turns, turns)
	if f.err != nil {
		return llm.Reply{}, f.err
	}
	return llm.Reply{Text: f.reply, InputTokens: 100, OutputTokens: 25, Model: "test-model"}, nil
}

type notifyCall struct {
	Type  string
	Title string
	Body  string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeNotifier) NotifyAdmins(notifType, title, body, link string, data map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{notifType, title, body})
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *fakeGateway, *fakeLLM, *fakeNotifier) {
	t.Helper()
	db := newTestDB(t)
	gateway := &fakeGateway{}
	model := &fakeLLM{reply: "Claro, con gusto te ayudo."}
	notifier := &fakeNotifier{}
	engine := NewEngine(db, gateway, model, notifier, time.Second)
	return engine, db, gateway, model, notifier
}

// seedInbound creates a player, an open conversation and one inbound text
// message, returning both ids for ProcessInbound.
func seedInbound(t *testing.T, db *gorm.DB, content string) (uint, uint) {
	t.Helper()

	player := models.Player{FirstName: "Ana", LastName: "Garcia", Phone: "+34600111222", PreferredLanguage: "ES", IsActive: true}
	require.NoError(t, db.Create(&player).Error)

	conv := models.Conversation{
		PlayerID:      player.ID,
		Status:        models.ConversationOpen,
		IsAIBotActive: true,
		LastMessageAt: time.Now(),
	}
	require.NoError(t, db.Create(&conv).Error)

	msg := models.Message{
		ConversationID:    conv.ID,
		WhatsAppMessageID: fmt.Sprintf("wamid.in.%d", time.Now().UnixNano()),
		Direction:         models.DirectionInbound,
		Type:              models.TypeText,
		Content:           content,
		Status:            models.StatusDelivered,
		Timestamp:         time.Now(),
	}
	require.NoError(t, db.Create(&msg).Error)

	return conv.ID, msg.ID
}

func setSettings(t *testing.T, db *gorm.DB, updates map[string]interface{}) {
	t.Helper()
	require.NoError(t, db.Model(&models.ClubSettings{}).Where("id = ?", 1).Updates(updates).Error)
}
