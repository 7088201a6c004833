package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/prompts"
	"github.com/gnemet/SlideKaraoke/internal/slides"
)

const (
	titleTemperature   = 0.9
	contentTemperature = 0.8
	maxBullets         = 3

	// Full decks get themed titles.
	deckTheme = "AI or machine learning"
)

// UsageRecorder receives token usage after every chat call.
type UsageRecorder interface {
	LogAIUsage(ctx context.Context, u *database.AIUsage) error
}

type Client struct {
	driver   Driver
	settings config.ProviderSettings
	prompts  *prompts.Catalog
	usage    UsageRecorder
}

func NewClient(driver Driver, settings config.ProviderSettings, catalog *prompts.Catalog, usage UsageRecorder) *Client {
	if catalog == nil {
		catalog = prompts.NewCatalog()
	}
	return &Client{driver: driver, settings: settings, prompts: catalog, usage: usage}
}

// GenerateTitle asks for a talk title. presentationNumber may be empty; when
// set, the title is for a full deck and stays on the deck theme.
func (c *Client) GenerateTitle(ctx context.Context, presentationNumber string) (string, error) {
	data := prompts.Data{PresentationNumber: presentationNumber}
	if presentationNumber != "" {
		data.Theme = deckTheme
	}
	content, err := c.chat(ctx, "title", titleTemperature, false,
		c.prompts.Render(prompts.TitleSystem, data),
		c.prompts.Render(prompts.TitleUser, data))
	if err != nil {
		return "", err
	}
	title := cleanLine(content)
	if title == "" {
		return "", apperr.DataShape("text generation returned an empty title", nil)
	}
	return title, nil
}

// GenerateImagePrompt derives a background image prompt from a title.
func (c *Client) GenerateImagePrompt(ctx context.Context, title string) (string, error) {
	data := prompts.Data{Title: title}
	content, err := c.chat(ctx, "image_prompt", contentTemperature, false,
		c.prompts.Render(prompts.ImagePromptSystem, data),
		c.prompts.Render(prompts.ImagePromptUser, data))
	if err != nil {
		return "", err
	}
	p := strings.TrimSpace(content)
	if p == "" {
		return "", apperr.DataShape("text generation returned an empty image prompt", nil)
	}
	return p, nil
}

// GenerateSlideContent asks for the subtitle, bullets and image prompt of one
// slide. The reply must be JSON carrying every field.
func (c *Client) GenerateSlideContent(ctx context.Context, title string) (*slides.GeneratedSlide, error) {
	content, err := c.chat(ctx, "slide", contentTemperature, true,
		c.prompts.Render(prompts.SlideSystem, prompts.Data{Title: title}),
		"Generate the slide content")
	if err != nil {
		return nil, err
	}

	var s slides.GeneratedSlide
	if err := decodeJSON(content, &s); err != nil {
		return nil, err
	}
	if err := validateSlide(&s, true); err != nil {
		return nil, err
	}
	s.Title = title
	return &s, nil
}

type outline struct {
	Slides []slides.GeneratedSlide `json:"slides"`
}

// GenerateOutline asks for a whole deck in one call. The reply must hold
// exactly count slides.
func (c *Client) GenerateOutline(ctx context.Context, title string, count int, withBullets bool) ([]slides.GeneratedSlide, error) {
	content, err := c.chat(ctx, "outline", contentTemperature, true,
		c.prompts.Render(prompts.OutlineSystem, prompts.Data{Title: title, SlideCount: count, WithBullets: withBullets}),
		"Generate presentation structure")
	if err != nil {
		return nil, err
	}

	var o outline
	if err := decodeJSON(content, &o); err != nil {
		return nil, err
	}
	if len(o.Slides) != count {
		return nil, apperr.DataShape(fmt.Sprintf("outline has %d slides, want %d", len(o.Slides), count), nil)
	}
	for i := range o.Slides {
		if err := validateSlide(&o.Slides[i], withBullets); err != nil {
			return nil, apperr.DataShape(fmt.Sprintf("outline slide %d", i+1), err)
		}
		if !withBullets {
			o.Slides[i].Bullets = nil
		}
	}
	return o.Slides, nil
}

// chat sends one system/user exchange. A positive provider temperature
// overrides the per-call default.
func (c *Client) chat(ctx context.Context, purpose string, temperature float64, jsonReply bool, system, user string) (string, error) {
	if c.settings.Temperature > 0 {
		temperature = c.settings.Temperature
	}
	resp, err := c.driver.Chat(ctx, ChatRequest{
		Model:       c.settings.Model,
		Temperature: temperature,
		MaxTokens:   c.settings.MaxTokens,
		JSON:        jsonReply,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	c.recordUsage(ctx, purpose, resp.Usage)
	return resp.Content, nil
}

func (c *Client) recordUsage(ctx context.Context, purpose string, u Usage) {
	if c.usage == nil {
		return
	}
	err := c.usage.LogAIUsage(ctx, &database.AIUsage{
		Provider:         c.driver.Name(),
		Model:            c.settings.Model,
		Purpose:          purpose,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Cost:             float64(u.TotalTokens) / 1000 * c.settings.CostPer1K,
	})
	if err != nil {
		log.Printf("Failed to log AI usage: %v", err)
	}
}

func validateSlide(s *slides.GeneratedSlide, withBullets bool) error {
	s.Subtitle = strings.TrimSpace(s.Subtitle)
	s.ImagePrompt = strings.TrimSpace(s.ImagePrompt)

	var missing []string
	if s.Subtitle == "" {
		missing = append(missing, "subtitle")
	}
	if s.ImagePrompt == "" {
		missing = append(missing, "imagePrompt")
	}
	if withBullets {
		var bullets []string
		for _, b := range s.Bullets {
			if b = strings.TrimSpace(b); b != "" {
				bullets = append(bullets, b)
			}
		}
		if len(bullets) == 0 {
			missing = append(missing, "bullets")
		}
		if len(bullets) > maxBullets {
			bullets = bullets[:maxBullets]
		}
		s.Bullets = bullets
	}
	if len(missing) > 0 {
		return apperr.DataShape("generated slide is missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// decodeJSON parses a model reply, tolerating a surrounding markdown code fence.
func decodeJSON(content string, v interface{}) error {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return apperr.DataShape("text generation returned malformed JSON", err)
	}
	return nil
}

func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return strings.Trim(s, "\"'“”")
}
