package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"club-crm/internal/campaign"
	"club-crm/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CampaignHandler struct {
	DB     *gorm.DB
	Sender *campaign.Sender
}

func NewCampaignHandler(db *gorm.DB, sender *campaign.Sender) *CampaignHandler {
	return &CampaignHandler{DB: db, Sender: sender}
}

func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	var campaigns []models.Campaign
	if err := h.DB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	c.JSON(http.StatusOK, campaigns)
}

func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign id"})
		return
	}

	var cmp models.Campaign
	if err := h.DB.Preload("Recipients").Preload("Recipients.Player").First(&cmp, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	c.JSON(http.StatusOK, cmp)
}

type CreateCampaignRequest struct {
	Name         string                `json:"name" binding:"required"`
	TemplateName string                `json:"template_name" binding:"required"`
	Segment      campaign.SegmentQuery `json:"segment"`
	Scheduled    bool                  `json:"scheduled"`
}

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	segmentJSON, err := json.Marshal(req.Segment)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid segment"})
		return
	}

	status := models.CampaignDraft
	if req.Scheduled {
		status = models.CampaignScheduled
	}

	cmp := models.Campaign{
		Name:         req.Name,
		TemplateName: req.TemplateName,
		SegmentQuery: string(segmentJSON),
		Status:       status,
	}
	if err := h.DB.Create(&cmp).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, cmp)
}

// PreviewRecipients evaluates a segment without sending. Accepts a segment
// in the body (standalone) or resolves the stored one by campaign id.
func (h *CampaignHandler) PreviewRecipients(c *gin.Context) {
	var segment campaign.SegmentQuery

	if idParam := c.Param("id"); idParam != "" {
		id, err := strconv.ParseUint(idParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign id"})
			return
		}
		var cmp models.Campaign
		if err := h.DB.First(&cmp, id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
			return
		}
		if cmp.SegmentQuery != "" {
			if err := json.Unmarshal([]byte(cmp.SegmentQuery), &segment); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid stored segment"})
				return
			}
		}
	} else if err := c.ShouldBindJSON(&segment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	players, total, err := h.Sender.PreviewRecipients(segment)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"players": players, "total": total})
}

// SendCampaign launches the fan-out as a background job. Large recipient
// lists must never run inside the request.
func (h *CampaignHandler) SendCampaign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign id"})
		return
	}

	var cmp models.Campaign
	if err := h.DB.First(&cmp, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if cmp.Status != models.CampaignDraft && cmp.Status != models.CampaignScheduled {
		c.JSON(http.StatusConflict, gin.H{"error": "Campaign already sent or in progress"})
		return
	}

	go func(campaignID uint) {
		if err := h.Sender.Send(context.Background(), campaignID); err != nil {
			if errors.Is(err, campaign.ErrAlreadySending) {
				log.Printf("[Campaign] Concurrent send rejected for campaign %d", campaignID)
				return
			}
			log.Printf("[Campaign] Send failed for campaign %d: %v", campaignID, err)
		}
	}(uint(id))

	c.JSON(http.StatusAccepted, gin.H{"status": "Campaign send started"})
}
