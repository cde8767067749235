package main

import (
	"context"
	"log"

	"club-crm/internal/api"
	"club-crm/internal/automation"
	"club-crm/internal/campaign"
	"club-crm/internal/config"
	"club-crm/internal/database"
	"club-crm/internal/llm"
	"club-crm/internal/notify"
	"club-crm/internal/webhook"
	"club-crm/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	db := database.InitGorm(cfg)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	gatewayClient := whatsapp.NewClient(cfg)
	llmClient := llm.NewOpenAI(cfg)
	notifier := notify.NewNotifier(db)
	engine := automation.NewEngine(db, gatewayClient, llmClient, notifier, cfg.ExternalTimeout)
	processor := webhook.NewProcessor(db, gatewayClient, engine, cfg.ExternalTimeout)
	sender := campaign.NewSender(db, gatewayClient, cfg.CampaignSendInterval, cfg.ExternalTimeout)

	webhookHandler := webhook.NewHandler(cfg, processor)
	conversationHandler := api.NewConversationHandler(db)
	campaignHandler := api.NewCampaignHandler(db, sender)
	settingsHandler := api.NewSettingsHandler(db)
	templateHandler := api.NewTemplateHandler(db)

	// Webhook worker: drains acknowledged callbacks in the background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Run(ctx)

	// Webhook Routes
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.ReceiveWebhook)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/conversations", conversationHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", conversationHandler.GetMessages)
		apiGroup.POST("/conversations/:id/read", conversationHandler.MarkRead)

		apiGroup.GET("/campaigns", campaignHandler.GetCampaigns)
		apiGroup.POST("/campaigns", campaignHandler.CreateCampaign)
		apiGroup.GET("/campaigns/:id", campaignHandler.GetCampaign)
		apiGroup.POST("/campaigns/preview", campaignHandler.PreviewRecipients)
		apiGroup.POST("/campaigns/:id/preview", campaignHandler.PreviewRecipients)
		apiGroup.POST("/campaigns/:id/send", campaignHandler.SendCampaign)

		apiGroup.GET("/templates", templateHandler.GetTemplates)
		apiGroup.POST("/templates", templateHandler.CreateTemplate)

		apiGroup.GET("/settings/automation", settingsHandler.GetSettings)
		apiGroup.PUT("/settings/automation", settingsHandler.UpdateSettings)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
