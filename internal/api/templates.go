package api

import (
	"net/http"

	"club-crm/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TemplateHandler struct {
	DB *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{DB: db}
}

func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	var templates []models.MessageTemplate
	if err := h.DB.Where("is_active = ?", true).Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if templates == nil {
		templates = []models.MessageTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

type CreateTemplateRequest struct {
	Name     string `json:"name" binding:"required"`
	Language string `json:"language"`
	Category string `json:"category"`
	Body     string `json:"body" binding:"required"`
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	language := req.Language
	if language == "" {
		language = "ES"
	}

	template := models.MessageTemplate{
		Name:     req.Name,
		Language: language,
		Category: req.Category,
		Body:     req.Body,
		IsActive: true,
	}
	if err := h.DB.Create(&template).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, template)
}
