package api

import (
	"net/http"

	"club-crm/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SettingsHandler struct {
	DB *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{DB: db}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	var settings models.ClubSettings
	if err := h.DB.First(&settings, 1).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req models.ClubSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.AutomationLevel {
	case "", models.LevelManual, models.LevelAssisted, models.LevelSemiAuto, models.LevelFullAuto:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid automation level"})
		return
	}

	// Full replace of the singleton row so booleans can be switched off
	req.ID = 1
	if err := h.DB.Save(&req).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, req)
}
