package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"club-crm/internal/config"
)

// API is the gateway contract consumed by the ingestor, the automation engine
// and the campaign sender. Implemented by Client; tests substitute fakes.
type API interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendTemplate(ctx context.Context, to, name, language string, components []Component) (string, error)
	MarkRead(ctx context.Context, messageID string) error
	MediaURL(ctx context.Context, mediaID string) (string, error)
}

type Client struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    cfg.GatewayBaseURL,
		httpClient: &http.Client{Timeout: cfg.ExternalTimeout},
	}
}

// --- Message structures ---

type outboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type,omitempty"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextObj     `json:"text,omitempty"`
	Template         *TemplateObj `json:"template,omitempty"`
	Status           string       `json:"status,omitempty"`
	MessageID        string       `json:"message_id,omitempty"`
}

type TextObj struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type TemplateObj struct {
	Name       string      `json:"name"`
	Language   LanguageObj `json:"language"`
	Components []Component `json:"components,omitempty"`
}

type LanguageObj struct {
	Code string `json:"code"`
}

// Component is one template component (header, body or button)
type Component struct {
	Type       string      `json:"type"`
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

// Parameter is a tagged template placeholder value
type Parameter struct {
	Type  string    `json:"type"`
	Text  string    `json:"text,omitempty"`
	Image *MediaObj `json:"image,omitempty"`
}

type MediaObj struct {
	ID   string `json:"id,omitempty"`
	Link string `json:"link,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// --- Helpers ---

var phoneStripRe = regexp.MustCompile(`[\s\-()]`)

// NormalizePhoneForAPI strips formatting and the + prefix: +34612345678 -> 34612345678
func NormalizePhoneForAPI(phone string) string {
	return strings.TrimPrefix(phoneStripRe.ReplaceAllString(phone, ""), "+")
}

// NormalizePhoneForDB ensures the + prefix used in stored player phones
func NormalizePhoneForDB(phone string) string {
	clean := phoneStripRe.ReplaceAllString(phone, "")
	if strings.HasPrefix(clean, "+") {
		return clean
	}
	return "+" + clean
}

var langMap = map[string]string{
	"ES": "es",
	"EN": "en",
	"DE": "de",
	"FR": "fr",
}

// MapLanguageCode maps a stored player language to a template language code
func MapLanguageCode(dbLang string) string {
	if code, ok := langMap[dbLang]; ok {
		return code
	}
	return "es"
}

func (c *Client) sendRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.WhatsAppToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var parsed sendResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
			return respBody, fmt.Errorf("gateway error: %s", parsed.Error.Message)
		}
		return respBody, fmt.Errorf("gateway error: %s - %s", resp.Status, string(respBody))
	}

	return respBody, nil
}

func (c *Client) sendMessage(ctx context.Context, msg outboundMessage) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.cfg.PhoneNumberID)
	respBody, err := c.sendRequest(ctx, "POST", url, msg)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("gateway returned no message id")
	}
	return resp.Messages[0].ID, nil
}

// --- Messaging methods ---

// SendText sends a free-form text message. Only deliverable within 24h of the
// recipient's last inbound message.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	return c.sendMessage(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               NormalizePhoneForAPI(to),
		Type:             "text",
		Text:             &TextObj{Body: body},
	})
}

// SendTemplate sends a pre-approved template message, deliverable anytime.
func (c *Client) SendTemplate(ctx context.Context, to, name, language string, components []Component) (string, error) {
	return c.sendMessage(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               NormalizePhoneForAPI(to),
		Type:             "template",
		Template: &TemplateObj{
			Name:       name,
			Language:   LanguageObj{Code: language},
			Components: components,
		},
	})
}

// MarkRead acknowledges an inbound message back to the gateway (blue ticks)
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.cfg.PhoneNumberID)
	_, err := c.sendRequest(ctx, "POST", url, outboundMessage{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
	return err
}

// MediaURL resolves a media id from an inbound message to a download URL
func (c *Client) MediaURL(ctx context.Context, mediaID string) (string, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	respBody, err := c.sendRequest(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(respBody, &obj); err != nil {
		return "", err
	}
	return obj.URL, nil
}
