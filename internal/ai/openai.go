package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OpenAIDriver calls an OpenAI compatible chat completions endpoint.
type OpenAIDriver struct {
	settings config.ProviderSettings
	http     *http.Client
}

func NewOpenAIDriver(settings config.ProviderSettings, httpClient *http.Client) *OpenAIDriver {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if settings.Endpoint == "" {
		settings.Endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIDriver{settings: settings, http: httpClient}
}

func (d *OpenAIDriver) Name() string { return "openai" }

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (d *OpenAIDriver) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if payload.Model == "" {
		payload.Model = d.settings.Model
	}
	if req.JSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(d.settings.Endpoint, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.settings.Key)

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return nil, apperr.Upstream(0, "text generation request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream(resp.StatusCode, "reading text generation response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(resp.StatusCode,
			fmt.Sprintf("text generation API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.Upstream(0, "malformed text generation response", err)
	}
	if len(out.Choices) == 0 {
		return nil, apperr.DataShape("text generation response has no choices", nil)
	}

	return &ChatResponse{
		Content: out.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}, nil
}
