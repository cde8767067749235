package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"club-crm/internal/database"
	"club-crm/internal/whatsapp"
	payloads "club-crm/pkg/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testTimeout = time.Second

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
	mu         sync.Mutex
	sentTexts  []string
	markedRead []string
	mediaURLs  map[string]string
	nextID     int
}

func (f *fakeGateway) SendText(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sentTexts = append(f.sentTexts, body)
	return fmt.Sprintf("wamid.fake.%d", f.nextID), nil
}

func (f *fakeGateway) SendTemplate(ctx context.Context, to, name, language string, components []whatsapp.Component) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("wamid.fake.%d", f.nextID), nil
}

func (f *fakeGateway) MarkRead(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead = append(f.markedRead, messageID)
	return nil
}

func (f *fakeGateway) MediaURL(ctx context.Context, mediaID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if url, ok := f.mediaURLs[mediaID]; ok {
		return url, nil
	}
	return "", fmt.Errorf("media %s not found", mediaID)
}

type engineCall struct {
	ConversationID uint
	MessageID      uint
}

type fakeEngine struct {
	mu    sync.Mutex
	calls []engineCall
}

func (f *fakeEngine) ProcessInbound(ctx context.Context, conversationID, messageID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, engineCall{conversationID, messageID})
}

func newTestProcessor(t *testing.T) (*Processor, *gorm.DB, *fakeGateway, *fakeEngine) {
	t.Helper()
	db := newTestDB(t)
	gateway := &fakeGateway{mediaURLs: map[string]string{}}
	engine := &fakeEngine{}
	return NewProcessor(db, gateway, engine, testTimeout), db, gateway, engine
}

func textMessage(t *testing.T, id, from, body string) payloads.InboundMessage {
	t.Helper()
	raw := fmt.Sprintf(`{"from":%q,"id":%q,"timestamp":"1700000000","type":"text","text":{"body":%q}}`, from, id, body)
	var msg payloads.InboundMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func inboundContact(t *testing.T, waID, name string) *payloads.ContactInfo {
	t.Helper()
	raw := fmt.Sprintf(`{"wa_id":%q,"profile":{"name":%q}}`, waID, name)
	var contact payloads.ContactInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &contact))
	return &contact
}
