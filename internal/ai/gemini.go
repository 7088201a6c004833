package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiDriver calls Gemini through the generative-ai-go SDK.
type GeminiDriver struct {
	settings config.ProviderSettings
	client   *genai.Client
}

func NewGeminiDriver(ctx context.Context, settings config.ProviderSettings) (*GeminiDriver, error) {
	if settings.Model == "" {
		settings.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(settings.Key))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiDriver{settings: settings, client: client}, nil
}

func (d *GeminiDriver) Name() string { return "gemini" }

func (d *GeminiDriver) Close() error {
	return d.client.Close()
}

func (d *GeminiDriver) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	name := req.Model
	if name == "" {
		name = d.settings.Model
	}
	model := d.client.GenerativeModel(name)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	system, parts := splitMessages(req.Messages)
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, apperr.Upstream(upstreamStatus(err), "gemini generation failed", err)
	}
	return chatResponse(resp)
}

// splitMessages moves system messages into the system instruction. Gemini
// has no system role in the conversation itself.
func splitMessages(msgs []Message) (system, parts []genai.Part) {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return system, parts
}

// upstreamStatus returns the HTTP status carried by an SDK error, or 0.
func upstreamStatus(err error) int {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPCode() > 0 {
		return apiErr.HTTPCode()
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

func chatResponse(resp *genai.GenerateContentResponse) (*ChatResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, apperr.DataShape("gemini response has no candidates", nil)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	out := &ChatResponse{Content: sb.String()}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}
