package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gnemet/SlideKaraoke/internal/config"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSON asks the model for a JSON object reply where the driver supports it.
	JSON bool
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type ChatResponse struct {
	Content string
	Usage   Usage
}

// Driver is a text-generation backend.
type Driver interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewDriver builds the driver named by settings.Driver.
func NewDriver(ctx context.Context, settings config.ProviderSettings, httpClient *http.Client) (Driver, error) {
	switch settings.Driver {
	case "openai", "":
		return NewOpenAIDriver(settings, httpClient), nil
	case "gemini":
		return NewGeminiDriver(ctx, settings)
	default:
		return nil, fmt.Errorf("unknown ai driver %q", settings.Driver)
	}
}
