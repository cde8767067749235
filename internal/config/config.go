package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	VerifyToken string

	// Messaging gateway (Meta Graph API)
	WhatsAppToken  string
	PhoneNumberID  string
	GatewayBaseURL string

	// LLM provider
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	// External call budget for gateway and LLM requests
	ExternalTimeout time.Duration

	// Pause between consecutive campaign sends
	CampaignSendInterval time.Duration

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		VerifyToken:          getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken:        getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID:        getEnv("PHONE_NUMBER_ID", ""),
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://graph.facebook.com/v21.0"),
		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ExternalTimeout:      getDurationEnv("EXTERNAL_TIMEOUT_SECONDS", 15) * time.Second,
		CampaignSendInterval: getDurationEnv("CAMPAIGN_SEND_INTERVAL_MS", 250) * time.Millisecond,
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBName:               getEnv("DB_NAME", "club_crm"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback int64) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
