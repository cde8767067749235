package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"club-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListTemplates(t *testing.T) {
	r, db := newTestRouter(t)

	body := `{"name":"torneo_invite","category":"MARKETING","body":"Hola {{1}}"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/templates", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.MessageTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ES", created.Language, "language defaults to ES")
	assert.True(t, created.IsActive)

	// Retired templates stay out of the listing
	require.NoError(t, db.Create(&models.MessageTemplate{
		Name: "vieja", Language: "ES", Body: "adios", IsActive: false,
	}).Error)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/templates", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listed []models.MessageTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "torneo_invite", listed[0].Name)
}

func TestCreateTemplateRequiresBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/templates", strings.NewReader(`{"name":"sin_cuerpo"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
