package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeText struct {
	calls      int32
	titleErr   error
	contentErr error
	outlineN   int
}

func (f *fakeText) GenerateTitle(ctx context.Context, n string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return "Quantum Blockchain Yoga " + n, nil
}

func (f *fakeText) GenerateImagePrompt(ctx context.Context, title string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return "prompt for " + title, nil
}

func (f *fakeText) GenerateSlideContent(ctx context.Context, title string) (*slides.GeneratedSlide, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return &slides.GeneratedSlide{Subtitle: "Sub", Bullets: []string{"a", "b"}, ImagePrompt: "content prompt"}, nil
}

func (f *fakeText) GenerateOutline(ctx context.Context, title string, count int, withBullets bool) ([]slides.GeneratedSlide, error) {
	atomic.AddInt32(&f.calls, 1)
	n := count
	if f.outlineN > 0 {
		n = f.outlineN
	}
	out := make([]slides.GeneratedSlide, n)
	for i := range out {
		out[i] = slides.GeneratedSlide{Subtitle: fmt.Sprintf("S%d", i), ImagePrompt: fmt.Sprintf("p%d", i)}
		if withBullets {
			out[i].Bullets = []string{"x"}
		}
	}
	return out, nil
}

// fakeImages records call windows so overlap can be checked.
type fakeImages struct {
	mu      sync.Mutex
	calls   int
	active  int
	maxSeen int
	delay   time.Duration
	failOn  string
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if prompt == f.failOn {
		return "", apperr.Upstream(http.StatusTooManyRequests, "throttled", nil)
	}
	return "https://img/" + prompt + ".webp", nil
}

type talkLog struct {
	talks []*database.Talk
	err   error
}

func (l *talkLog) SaveTalk(ctx context.Context, t *database.Talk) error {
	l.talks = append(l.talks, t)
	return l.err
}

func testConfig() *config.Config {
	cfg := config.Default()
	s := cfg.AI.Providers["openai"]
	s.Key = "sk-test"
	cfg.AI.Providers["openai"] = s
	cfg.Image.Token = "r8_test"
	return cfg
}

func TestGenerateSingleStructured(t *testing.T) {
	text := &fakeText{}
	images := &fakeImages{}
	talks := &talkLog{}
	g := New(testConfig(), text, images, talks)

	res, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, res.Slide)
	assert.Nil(t, res.Deck)
	assert.Equal(t, "Quantum Blockchain Yoga ", res.Slide.Title)
	assert.Equal(t, "Sub", res.Slide.Subtitle)
	assert.Equal(t, []string{"a", "b"}, res.Slide.Bullets)
	assert.Equal(t, "https://img/content prompt.webp", res.Slide.ImageURL)
	assert.EqualValues(t, 2, text.calls)

	require.Len(t, talks.talks, 1)
	assert.Equal(t, "single", talks.talks[0].Variant)
}

func TestGenerateLogsSaveTalkFailure(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	talks := &talkLog{err: errors.New("ledger offline")}
	g := New(testConfig(), &fakeText{}, &fakeImages{}, talks)

	res, err := g.Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, res.Slide)
	require.Len(t, talks.talks, 1)
	assert.Contains(t, buf.String(), "Failed to save talk: ledger offline")
}

func TestGenerateSingleTopicTitleOnly(t *testing.T) {
	text := &fakeText{}
	g := New(testConfig(), text, &fakeImages{}, nil)

	res, err := g.Generate(context.Background(), Request{
		Options: Options{Scope: SingleSlide, Content: TitleOnly},
		Topic:   "Kubernetes for Goldfish",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes for Goldfish", res.Slide.Title)
	assert.Equal(t, "prompt for Kubernetes for Goldfish", res.Slide.ImagePrompt)
	assert.Empty(t, res.Slide.Bullets)
	assert.Equal(t, "https://img/prompt for Kubernetes for Goldfish.webp", res.Slide.ImageURL)
	// The topic skips title generation.
	assert.EqualValues(t, 1, text.calls)
}

func TestGenerateMissingCredentials(t *testing.T) {
	text := &fakeText{}
	images := &fakeImages{}
	cfg := config.Default()
	g := New(cfg, text, images, nil)

	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)
	ae := apperr.From(err)
	assert.Equal(t, apperr.KindConfig, ae.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, ae.Status())
	assert.Zero(t, text.calls)
	assert.Zero(t, images.calls)

	_, err = New(testConfig(), text, nil, nil).Generate(context.Background(), Request{})
	assert.Equal(t, apperr.KindConfig, apperr.From(err).Kind)

	title, err := New(testConfig(), text, nil, nil).Title(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, title)
}

func TestGenerateUpstreamErrorPropagates(t *testing.T) {
	text := &fakeText{titleErr: apperr.Upstream(http.StatusUnauthorized, "bad key", nil)}
	images := &fakeImages{}
	g := New(testConfig(), text, images, nil)

	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.From(err).Status())
	assert.Zero(t, images.calls)
}

func TestGenerateDeckConcurrentImages(t *testing.T) {
	text := &fakeText{}
	images := &fakeImages{delay: 50 * time.Millisecond}
	talks := &talkLog{}
	g := New(testConfig(), text, images, talks)

	start := time.Now()
	res, err := g.Generate(context.Background(), Request{
		Options:            Options{Scope: FullDeck},
		PresentationNumber: "3",
	})
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.NotNil(t, res.Deck)

	deck := res.Deck
	assert.Equal(t, "3", deck.PresentationNumber)
	assert.Equal(t, "Quantum Blockchain Yoga 3", deck.Title)
	require.Len(t, deck.Slides, 8)
	for i, s := range deck.Slides {
		assert.Equal(t, fmt.Sprintf("https://img/p%d.webp", i), s.ImageURL)
	}

	assert.Equal(t, 8, images.calls)
	assert.Greater(t, images.maxSeen, 1)
	assert.Less(t, elapsed, 8*50*time.Millisecond)

	require.Len(t, talks.talks, 1)
	assert.Equal(t, "deck", talks.talks[0].Variant)
	assert.Equal(t, 8, talks.talks[0].SlideCount)
}

func TestGenerateDeckImageFailure(t *testing.T) {
	g := New(testConfig(), &fakeText{}, &fakeImages{failOn: "p4"}, nil)

	_, err := g.Generate(context.Background(), Request{Options: Options{Scope: FullDeck}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slide 5")
	assert.Equal(t, http.StatusTooManyRequests, apperr.From(err).Status())
}

func TestGenerateDeckDefaultsPresentationNumber(t *testing.T) {
	g := New(testConfig(), &fakeText{}, &fakeImages{}, nil)
	res, err := g.Generate(context.Background(), Request{Options: Options{Scope: FullDeck, Content: TitleOnly}})
	require.NoError(t, err)
	assert.Equal(t, "1", res.Deck.PresentationNumber)
	assert.Nil(t, res.Deck.Slides[0].Bullets)
}

func TestGenerateContentErrorWrapped(t *testing.T) {
	dataErr := apperr.DataShape("generated slide is missing subtitle", nil)
	g := New(testConfig(), &fakeText{contentErr: dataErr}, &fakeImages{}, nil)

	_, err := g.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataErr))
	assert.Equal(t, "DataShapeError", apperr.From(err).Kind.Type())
}

func TestParseContent(t *testing.T) {
	assert.Equal(t, TitleOnly, ParseContent("title"))
	assert.Equal(t, StructuredBullets, ParseContent("structured"))
	assert.Equal(t, StructuredBullets, ParseContent(""))
}
