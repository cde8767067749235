package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"club-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCampaign(t *testing.T) {
	r, db := newTestRouter(t)

	body := `{
		"name": "Invitacion torneo",
		"template_name": "torneo_invite",
		"segment": {"engagement_levels": ["VIP", "HIGH"], "languages": ["ES"]}
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/campaigns", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var cmp models.Campaign
	require.NoError(t, db.First(&cmp).Error)
	assert.Equal(t, models.CampaignDraft, cmp.Status)
	assert.Contains(t, cmp.SegmentQuery, `"engagement_levels":["VIP","HIGH"]`)
}

func TestCreateCampaignRequiresTemplate(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/campaigns", strings.NewReader(`{"name":"Sin plantilla"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewRecipientsStandalone(t *testing.T) {
	r, db := newTestRouter(t)

	require.NoError(t, db.Create(&models.Player{
		FirstName: "Vera", LastName: "Alba", Phone: "+34600000001",
		EngagementLevel: "VIP", PreferredLanguage: "ES", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Player{
		FirstName: "Hugo", LastName: "Prieto", Phone: "+34600000002",
		EngagementLevel: "NEW", PreferredLanguage: "ES", IsActive: true,
	}).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/campaigns/preview", strings.NewReader(`{"engagement_levels":["VIP"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Players []models.Player `json:"players"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Players, 1)
	assert.Equal(t, "Vera", resp.Players[0].FirstName)
}

func TestSendCampaignConflictWhenNotDraft(t *testing.T) {
	r, db := newTestRouter(t)

	cmp := models.Campaign{Name: "Ya enviada", TemplateName: "saludo", Status: models.CampaignSent}
	require.NoError(t, db.Create(&cmp).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/campaigns/1/send", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSendCampaignNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/campaigns/99/send", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendCampaignAccepted(t *testing.T) {
	r, db := newTestRouter(t)

	require.NoError(t, db.Create(&models.Player{
		FirstName: "Vera", LastName: "Alba", Phone: "+34600000001",
		EngagementLevel: "VIP", PreferredLanguage: "ES", IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.MessageTemplate{
		Name: "saludo", Language: "ES", Body: "Hola {{1}}", IsActive: true,
	}).Error)
	cmp := models.Campaign{Name: "Saludo", TemplateName: "saludo", Status: models.CampaignDraft}
	require.NoError(t, db.Create(&cmp).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/api/campaigns/1/send", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	// The send runs in the background; wait for the terminal status
	require.Eventually(t, func() bool {
		var refreshed models.Campaign
		if err := db.First(&refreshed, cmp.ID).Error; err != nil {
			return false
		}
		return refreshed.Status == models.CampaignSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetCampaignWithRecipients(t *testing.T) {
	r, db := newTestRouter(t)

	player := models.Player{FirstName: "Vera", LastName: "Alba", Phone: "+34600000001", IsActive: true}
	require.NoError(t, db.Create(&player).Error)
	cmp := models.Campaign{Name: "Torneo", TemplateName: "saludo", Status: models.CampaignSent}
	require.NoError(t, db.Create(&cmp).Error)
	require.NoError(t, db.Create(&models.CampaignRecipient{
		CampaignID: cmp.ID, PlayerID: player.ID, Status: models.StatusSent,
	}).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/campaigns/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.Campaign
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Recipients, 1)
	require.NotNil(t, resp.Recipients[0].Player)
	assert.Equal(t, "Vera", resp.Recipients[0].Player.FirstName)
}

func TestGetCampaignsEmptyList(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/campaigns", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}
