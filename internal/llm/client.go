package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"club-crm/internal/config"
)

// Turn is one entry of the conversation history handed to the model
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Reply is the model output plus token accounting for the audit log
type Reply struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Client is the chat-completion contract consumed by the automation engine
type Client interface {
	ChatCompletion(ctx context.Context, system string, turns []Turn) (Reply, error)
}

type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

func NewOpenAI(cfg *config.Config) *OpenAI {
	return &OpenAI{
		apiKey:     cfg.OpenAIKey,
		baseURL:    cfg.OpenAIBaseURL,
		model:      cfg.OpenAIModel,
		maxTokens:  300,
		httpClient: &http.Client{Timeout: cfg.ExternalTimeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ChatCompletion sends the system prompt and conversation turns to the model
// and returns the raw reply text. An empty reply is valid and means the
// caller has nothing to send.
func (o *OpenAI) ChatCompletion(ctx context.Context, system string, turns []Turn) (Reply, error) {
	if o.apiKey == "" {
		return Reply{}, fmt.Errorf("OPENAI_API_KEY not configured")
	}

	messages := make([]chatMessage, 0, len(turns)+1)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}

	reqBody := chatRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Reply{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Reply{}, fmt.Errorf("invalid LLM response: %w", err)
	}
	if parsed.Error != nil {
		return Reply{}, fmt.Errorf("LLM error: %s", parsed.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return Reply{}, fmt.Errorf("LLM error: %s", resp.Status)
	}

	var text string
	if len(parsed.Choices) > 0 {
		text = parsed.Choices[0].Message.Content
	}

	return Reply{
		Text:         text,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		Model:        o.model,
	}, nil
}
