// Package generator produces slide content by chaining the text-generation
// and image-generation clients. Single slides and whole decks go through the
// same Generate entry point, selected by Options.
package generator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"golang.org/x/sync/errgroup"
)

type Scope int

const (
	SingleSlide Scope = iota
	FullDeck
)

func (s Scope) String() string {
	if s == FullDeck {
		return "deck"
	}
	return "single"
}

type Content int

const (
	StructuredBullets Content = iota
	TitleOnly
)

// ParseContent maps the presentation.content setting to a Content value.
func ParseContent(s string) Content {
	if strings.EqualFold(s, "title") {
		return TitleOnly
	}
	return StructuredBullets
}

type Options struct {
	Scope   Scope
	Content Content
}

type Request struct {
	Options
	// Topic replaces the generated title of a single slide when set.
	Topic              string
	PresentationNumber string
}

type Result struct {
	Slide *slides.GeneratedSlide
	Deck  *slides.PresentationDeck
}

type TextGenerator interface {
	GenerateTitle(ctx context.Context, presentationNumber string) (string, error)
	GenerateImagePrompt(ctx context.Context, title string) (string, error)
	GenerateSlideContent(ctx context.Context, title string) (*slides.GeneratedSlide, error)
	GenerateOutline(ctx context.Context, title string, count int, withBullets bool) ([]slides.GeneratedSlide, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type TalkRecorder interface {
	SaveTalk(ctx context.Context, t *database.Talk) error
}

type Generator struct {
	cfg    *config.Config
	text   TextGenerator
	images ImageGenerator
	talks  TalkRecorder
}

// New builds a Generator. text and images may be nil when their credentials
// are missing; every call then fails with a configuration error.
func New(cfg *config.Config, text TextGenerator, images ImageGenerator, talks TalkRecorder) *Generator {
	return &Generator{cfg: cfg, text: text, images: images, talks: talks}
}

// Title generates a talk title only.
func (g *Generator) Title(ctx context.Context) (string, error) {
	if err := g.checkCredentials(false); err != nil {
		return "", err
	}
	return g.text.GenerateTitle(ctx, "")
}

func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := g.checkCredentials(true); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Topic)
	if title == "" || req.Scope == FullDeck {
		var err error
		title, err = g.text.GenerateTitle(ctx, req.PresentationNumber)
		if err != nil {
			return nil, fmt.Errorf("generating title: %w", err)
		}
	}
	log.Printf("Generated title (%s): %s", req.Scope, title)

	var res Result
	var err error
	switch req.Scope {
	case FullDeck:
		res.Deck, err = g.deck(ctx, title, req)
	default:
		res.Slide, err = g.slide(ctx, title, req.Content)
	}
	if err != nil {
		return nil, err
	}

	count := 1
	if res.Deck != nil {
		count = len(res.Deck.Slides)
	}
	if g.talks != nil {
		err := g.talks.SaveTalk(ctx, &database.Talk{
			Title:              title,
			Variant:            req.Scope.String(),
			PresentationNumber: req.PresentationNumber,
			SlideCount:         count,
		})
		if err != nil {
			log.Printf("Failed to save talk: %v", err)
		}
	}
	return &res, nil
}

func (g *Generator) slide(ctx context.Context, title string, content Content) (*slides.GeneratedSlide, error) {
	var s *slides.GeneratedSlide
	switch content {
	case TitleOnly:
		prompt, err := g.text.GenerateImagePrompt(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("generating image prompt: %w", err)
		}
		s = &slides.GeneratedSlide{Title: title, ImagePrompt: prompt}
	default:
		var err error
		s, err = g.text.GenerateSlideContent(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("generating slide content: %w", err)
		}
		s.Title = title
	}

	url, err := g.images.Generate(ctx, s.ImagePrompt)
	if err != nil {
		return nil, fmt.Errorf("generating image: %w", err)
	}
	s.ImageURL = url
	return s, nil
}

func (g *Generator) deck(ctx context.Context, title string, req Request) (*slides.PresentationDeck, error) {
	size := g.cfg.Presentation.DeckSize
	if size <= 0 {
		size = 8
	}
	outline, err := g.text.GenerateOutline(ctx, title, size, req.Content == StructuredBullets)
	if err != nil {
		return nil, fmt.Errorf("generating presentation structure: %w", err)
	}
	log.Printf("Generated presentation structure with %d slides", len(outline))

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range outline {
		i := i
		eg.Go(func() error {
			log.Printf("Generating image for slide %d", i+1)
			url, err := g.images.Generate(egCtx, outline[i].ImagePrompt)
			if err != nil {
				return fmt.Errorf("generating image for slide %d: %w", i+1, err)
			}
			outline[i].ImageURL = url
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	number := req.PresentationNumber
	if number == "" {
		number = "1"
	}
	return &slides.PresentationDeck{PresentationNumber: number, Title: title, Slides: outline}, nil
}

func (g *Generator) checkCredentials(needImage bool) error {
	var missing []string
	if s, ok := g.cfg.AI.Active(); !ok || s.Key == "" || g.text == nil {
		missing = append(missing, fmt.Sprintf("text provider %q key", g.cfg.AI.ActiveProvider))
	}
	if needImage && (g.cfg.Image.Token == "" || g.images == nil) {
		missing = append(missing, "image generation token")
	}
	if len(missing) > 0 {
		return apperr.Config("missing credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}
