package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"calorie-tracker/internal/config"
	"calorie-tracker/internal/shared"
)

const groqService = "groq"

// GroqClient talks to Groq's OpenAI-compatible chat completions endpoint.
// It serves both plain prompts and image analysis.
type GroqClient struct {
	apiKey      string
	apiURL      string
	chatModel   string
	visionModel string
	httpClient  *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(cfg *config.Config) *GroqClient {
	return &GroqClient{
		apiKey:      cfg.GroqAPIKey,
		apiURL:      cfg.GroqAPIURL,
		chatModel:   cfg.GroqChatModel,
		visionModel: cfg.GroqVisionModel,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

type groqContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *groqImageURL `json:"image_url,omitempty"`
}

type groqImageURL struct {
	URL string `json:"url"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type groqRequest struct {
	Model               string            `json:"model"`
	Messages            []groqMessage     `json:"messages"`
	Temperature         float64           `json:"temperature"`
	MaxCompletionTokens int               `json:"max_completion_tokens,omitempty"`
	TopP                float64           `json:"top_p,omitempty"`
	Stream              bool              `json:"stream"`
	ResponseFormat      map[string]string `json:"response_format,omitempty"`
}

type groqResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateContent sends a text-only prompt to the chat model.
func (c *GroqClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	return c.complete(ctx, groqRequest{
		Model:       c.chatModel,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	})
}

// AnalyzeImage sends the instruction together with the image URL to the
// vision model and asks for a JSON object back.
func (c *GroqClient) AnalyzeImage(ctx context.Context, instruction, imageURL string) (ContentResponse, error) {
	return c.complete(ctx, groqRequest{
		Model: c.visionModel,
		Messages: []groqMessage{{
			Role: "user",
			Content: []groqContentPart{
				{Type: "text", Text: instruction},
				{Type: "image_url", ImageURL: &groqImageURL{URL: imageURL}},
			},
		}},
		Temperature:         1,
		MaxCompletionTokens: 1024,
		TopP:                1,
		Stream:              false,
		ResponseFormat:      map[string]string{"type": "json_object"},
	})
}

func (c *GroqClient) complete(ctx context.Context, reqBody groqRequest) (ContentResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, &StatusError{Service: groqService, StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	model := groqResp.Model
	if model == "" {
		model = reqBody.Model
	}
	usage := shared.TokenUsage{
		PromptTokens:     groqResp.Usage.PromptTokens,
		CompletionTokens: groqResp.Usage.CompletionTokens,
		TotalTokens:      groqResp.Usage.TotalTokens,
		Model:            model,
	}

	if len(groqResp.Choices) == 0 || groqResp.Choices[0].Message == nil {
		return ContentResponse{Usage: usage}, ErrNoContent
	}

	return ContentResponse{Content: groqResp.Choices[0].Message.Content, Usage: usage}, nil
}
