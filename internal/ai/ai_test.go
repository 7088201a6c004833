package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedDriver struct {
	replies  []string
	requests []ChatRequest
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	d.requests = append(d.requests, req)
	if len(d.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply")
	}
	r := d.replies[0]
	d.replies = d.replies[1:]
	return &ChatResponse{Content: r, Usage: Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}}, nil
}

type usageLog struct {
	records []*database.AIUsage
}

func (u *usageLog) LogAIUsage(ctx context.Context, r *database.AIUsage) error {
	u.records = append(u.records, r)
	return nil
}

func newTestClient(replies ...string) (*Client, *scriptedDriver, *usageLog) {
	d := &scriptedDriver{replies: replies}
	u := &usageLog{}
	settings := config.ProviderSettings{Model: "gpt-test", CostPer1K: 2}
	return NewClient(d, settings, nil, u), d, u
}

func TestGenerateTitle(t *testing.T) {
	c, d, u := newTestClient("\"Transformers: Robots in Disguise as Matrices\"\n")

	title, err := c.GenerateTitle(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, "Transformers: Robots in Disguise as Matrices", title)

	require.Len(t, d.requests, 1)
	req := d.requests[0]
	assert.Equal(t, 0.9, req.Temperature)
	assert.Equal(t, "gpt-test", req.Model)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "presentation 4")
	assert.Contains(t, req.Messages[0].Content, "on AI or machine learning")

	require.Len(t, u.records, 1)
	assert.Equal(t, "title", u.records[0].Purpose)
	assert.InDelta(t, 0.06, u.records[0].Cost, 1e-9)
}

func TestGenerateTitleWithoutTheme(t *testing.T) {
	c, d, _ := newTestClient("Blockchain for Houseplants")

	_, err := c.GenerateTitle(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, d.requests, 1)
	assert.NotContains(t, d.requests[0].Messages[0].Content, "machine learning")
	assert.NotContains(t, d.requests[0].Messages[1].Content, "presentation")
}

func TestTemperatureOverride(t *testing.T) {
	d := &scriptedDriver{replies: []string{"Title", `{"subtitle":"s","bullets":["b"],"imagePrompt":"p"}`}}
	c := NewClient(d, config.ProviderSettings{Model: "gpt-test", Temperature: 0.3}, nil, nil)

	_, err := c.GenerateTitle(context.Background(), "1")
	require.NoError(t, err)
	_, err = c.GenerateSlideContent(context.Background(), "Title")
	require.NoError(t, err)

	require.Len(t, d.requests, 2)
	assert.Equal(t, 0.3, d.requests[0].Temperature)
	assert.Equal(t, 0.3, d.requests[1].Temperature)
}

func TestGenerateTitleEmpty(t *testing.T) {
	c, _, _ := newTestClient("   ")
	_, err := c.GenerateTitle(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindDataShape, apperr.From(err).Kind)
}

func TestGenerateSlideContent(t *testing.T) {
	c, d, _ := newTestClient("```json\n" + `{"subtitle":"Why GPUs Cry","bullets":["one"," two ","three","four"],"imagePrompt":"a crying GPU"}` + "\n```")

	s, err := c.GenerateSlideContent(context.Background(), "Talk")
	require.NoError(t, err)
	assert.Equal(t, "Talk", s.Title)
	assert.Equal(t, "Why GPUs Cry", s.Subtitle)
	assert.Equal(t, []string{"one", "two", "three"}, s.Bullets)
	assert.Equal(t, "a crying GPU", s.ImagePrompt)
	assert.True(t, d.requests[0].JSON)
	assert.Equal(t, 0.8, d.requests[0].Temperature)
	assert.Contains(t, d.requests[0].Messages[0].Content, `"Talk"`)
}

func TestGenerateSlideContentMalformed(t *testing.T) {
	c, _, _ := newTestClient(`{"subtitle": "x",`)
	_, err := c.GenerateSlideContent(context.Background(), "Talk")
	require.Error(t, err)
	ae := apperr.From(err)
	assert.Equal(t, apperr.KindDataShape, ae.Kind)
	assert.Equal(t, http.StatusInternalServerError, ae.Status())
}

func TestGenerateSlideContentMissingFields(t *testing.T) {
	c, _, _ := newTestClient(`{"subtitle":"x","bullets":[]}`)
	_, err := c.GenerateSlideContent(context.Background(), "Talk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imagePrompt")
	assert.Contains(t, err.Error(), "bullets")
}

func outlineJSON(n int, withBullets bool) string {
	var parts []string
	for i := 0; i < n; i++ {
		if withBullets {
			parts = append(parts, fmt.Sprintf(`{"subtitle":"S%d","bullets":["a","b"],"imagePrompt":"p%d"}`, i, i))
		} else {
			parts = append(parts, fmt.Sprintf(`{"subtitle":"S%d","imagePrompt":"p%d"}`, i, i))
		}
	}
	return `{"slides":[` + strings.Join(parts, ",") + `]}`
}

func TestGenerateOutline(t *testing.T) {
	c, d, _ := newTestClient(outlineJSON(8, true))

	got, err := c.GenerateOutline(context.Background(), "Talk", 8, true)
	require.NoError(t, err)
	require.Len(t, got, 8)
	assert.Equal(t, "S7", got[7].Subtitle)
	assert.Equal(t, "p0", got[0].ImagePrompt)
	assert.Contains(t, d.requests[0].Messages[0].Content, "Generate 8 slides")
}

func TestGenerateOutlineWrongCount(t *testing.T) {
	c, _, _ := newTestClient(outlineJSON(5, true))
	_, err := c.GenerateOutline(context.Background(), "Talk", 8, true)
	require.Error(t, err)
	assert.Equal(t, apperr.KindDataShape, apperr.From(err).Kind)
}

func TestGenerateOutlineTitleOnly(t *testing.T) {
	c, _, _ := newTestClient(outlineJSON(3, false))
	got, err := c.GenerateOutline(context.Background(), "Talk", 3, false)
	require.NoError(t, err)
	assert.Nil(t, got[0].Bullets)
}

func TestOpenAIDriver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-3.5-turbo", body.Model)
		assert.Equal(t, 0.9, body.Temperature)
		require.NotNil(t, body.ResponseFormat)
		assert.Equal(t, "json_object", body.ResponseFormat.Type)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)
	}))
	defer srv.Close()

	d := NewOpenAIDriver(config.ProviderSettings{Key: "sk-test", Endpoint: srv.URL, Model: "gpt-3.5-turbo"}, srv.Client())
	resp, err := d.Chat(context.Background(), ChatRequest{Temperature: 0.9, JSON: true, Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
}

func TestOpenAIDriverUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Rate limit"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewOpenAIDriver(config.ProviderSettings{Key: "sk-test", Endpoint: srv.URL}, srv.Client())
	_, err := d.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	ae := apperr.From(err)
	assert.Equal(t, apperr.KindUpstream, ae.Kind)
	assert.Equal(t, http.StatusTooManyRequests, ae.Status())
}

func TestNewDriverUnknown(t *testing.T) {
	_, err := NewDriver(context.Background(), config.ProviderSettings{Driver: "claude"}, nil)
	assert.Error(t, err)
}
