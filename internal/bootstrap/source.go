package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/generator"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Source supplies talk titles, slides and decks to the Runner.
type Source interface {
	TalkTitle(ctx context.Context) (string, error)
	Slide(ctx context.Context) (*slides.GeneratedSlide, error)
	Deck(ctx context.Context, presentationNumber string) (*slides.PresentationDeck, error)
}

// HTTPSource calls the content endpoints of a running server.
type HTTPSource struct {
	base   string
	client *http.Client
	// Topic is passed to the slide endpoint when set.
	Topic string
}

// NewHTTPSource targets baseURL+prefix, e.g. "http://localhost:8080" and
// "/.netlify/functions".
func NewHTTPSource(baseURL, prefix string, client *http.Client) *HTTPSource {
	if client == nil {
		// Image polling is bounded server side; this only guards a hung server.
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HTTPSource{
		base:   strings.TrimRight(baseURL, "/") + "/" + strings.Trim(prefix, "/"),
		client: client,
	}
}

func (s *HTTPSource) TalkTitle(ctx context.Context) (string, error) {
	var body slides.TitleBody
	if err := s.get(ctx, "randomTalkTitle", nil, &body); err != nil {
		return "", err
	}
	if strings.TrimSpace(body.Title) == "" {
		return "", fmt.Errorf("empty talk title")
	}
	return body.Title, nil
}

func (s *HTTPSource) Slide(ctx context.Context) (*slides.GeneratedSlide, error) {
	q := url.Values{}
	if s.Topic != "" {
		q.Set("topic", s.Topic)
	}
	var slide slides.GeneratedSlide
	if err := s.get(ctx, "aiService", q, &slide); err != nil {
		return nil, err
	}
	return &slide, nil
}

func (s *HTTPSource) Deck(ctx context.Context, presentationNumber string) (*slides.PresentationDeck, error) {
	q := url.Values{"presentation": {presentationNumber}}
	var deck slides.PresentationDeck
	if err := s.get(ctx, "aiService", q, &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

func (s *HTTPSource) get(ctx context.Context, fn string, q url.Values, v interface{}) error {
	u := s.base + "/" + fn
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb slides.ErrorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			return fmt.Errorf("HTTP error! Status: %d: %s (%s)", resp.StatusCode, eb.Error, eb.Type)
		}
		return fmt.Errorf("HTTP error! Status: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s response: %w", fn, err)
	}
	return nil
}

// LocalSource calls the generator in-process.
type LocalSource struct {
	gen     *generator.Generator
	content generator.Content
	Topic   string
}

func NewLocalSource(gen *generator.Generator, content generator.Content) *LocalSource {
	return &LocalSource{gen: gen, content: content}
}

func (s *LocalSource) TalkTitle(ctx context.Context) (string, error) {
	return s.gen.Title(ctx)
}

func (s *LocalSource) Slide(ctx context.Context) (*slides.GeneratedSlide, error) {
	res, err := s.gen.Generate(ctx, generator.Request{
		Options: generator.Options{Scope: generator.SingleSlide, Content: s.content},
		Topic:   s.Topic,
	})
	if err != nil {
		return nil, err
	}
	return res.Slide, nil
}

func (s *LocalSource) Deck(ctx context.Context, presentationNumber string) (*slides.PresentationDeck, error) {
	res, err := s.gen.Generate(ctx, generator.Request{
		Options:            generator.Options{Scope: generator.FullDeck, Content: s.content},
		PresentationNumber: presentationNumber,
	})
	if err != nil {
		return nil, err
	}
	return res.Deck, nil
}
