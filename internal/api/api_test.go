package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"club-crm/internal/campaign"
	"club-crm/internal/database"
	"club-crm/internal/whatsapp"

	"github.com/gin-gonic/gin"
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
	mu     sync.Mutex
	sends  int
	nextID int
}

func (f *fakeGateway) SendText(ctx context.Context, to, body string) (string, error) {
	return "", fmt.Errorf("not supported")
}

func (f *fakeGateway) SendTemplate(ctx context.Context, to, name, language string, components []whatsapp.Component) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.nextID++
	return fmt.Sprintf("wamid.fake.%d", f.nextID), nil
}

func (f *fakeGateway) MarkRead(ctx context.Context, messageID string) error { return nil }

func (f *fakeGateway) MediaURL(ctx context.Context, mediaID string) (string, error) {
	return "", fmt.Errorf("not supported")
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	sender := campaign.NewSender(db, &fakeGateway{}, time.Millisecond, time.Second)

	conversations := NewConversationHandler(db)
	campaigns := NewCampaignHandler(db, sender)
	settings := NewSettingsHandler(db)
	templates := NewTemplateHandler(db)

	r := gin.New()
	api := r.Group("/api")
	{
		api.GET("/conversations", conversations.GetConversations)
		api.GET("/conversations/:id/messages", conversations.GetMessages)
		api.POST("/conversations/:id/read", conversations.MarkRead)

		api.GET("/campaigns", campaigns.GetCampaigns)
		api.POST("/campaigns", campaigns.CreateCampaign)
		api.GET("/campaigns/:id", campaigns.GetCampaign)
		api.POST("/campaigns/preview", campaigns.PreviewRecipients)
		api.POST("/campaigns/:id/send", campaigns.SendCampaign)

		api.GET("/templates", templates.GetTemplates)
		api.POST("/templates", templates.CreateTemplate)

		api.GET("/settings/automation", settings.GetSettings)
		api.PUT("/settings/automation", settings.UpdateSettings)
	}
	return r, db
}
