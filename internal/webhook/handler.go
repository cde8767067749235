package webhook

import (
	"log"
	"net/http"

	"club-crm/internal/config"
	"club-crm/pkg/models"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Config    *config.Config
	Processor *Processor
}

func NewHandler(cfg *config.Config, processor *Processor) *Handler {
	return &Handler{
		Config:    cfg,
		Processor: processor,
	}
}

// VerifyWebhook answers the gateway's subscription handshake: echo the
// challenge only for mode "subscribe" with the right verify token.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	if mode == "subscribe" && h.Config.VerifyToken != "" && token == h.Config.VerifyToken {
		log.Println("Webhook verified successfully!")
		c.String(http.StatusOK, challenge)
		return
	}

	c.Status(http.StatusForbidden)
}

// ReceiveWebhook acknowledges every well-formed callback immediately and
// queues the payload for background processing. Only an unparseable body is
// rejected; everything after the ack is log-only (the gateway retries on
// non-200, and we never want retries for our own processing failures).
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("[Webhook] Invalid body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	h.Processor.Enqueue(payload)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
