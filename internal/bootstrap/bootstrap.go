// Package bootstrap drives slide generation for one page: it reads the talk
// title, then requests slides one after another and appends each successful
// one to the slide container.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/render"
	"github.com/gnemet/SlideKaraoke/internal/slides"
)

// FallbackTitle is used whenever the talk title cannot be fetched.
const FallbackTitle = "nature"

var ErrNoImageURL = errors.New("no image URL received")

type Options struct {
	// Debounce delays the first slide request.
	Debounce      time.Duration
	FallbackTitle string
	Captions      render.Captions
	// LogChan receives progress lines. Sends never block.
	LogChan chan string
}

type Runner struct {
	src       Source
	container *render.Container
	opts      Options
}

type RunReport struct {
	Title     string `json:"title"`
	Requested int    `json:"requested"`
	Appended  int    `json:"appended"`
	Failed    int    `json:"failed"`
}

func NewRunner(src Source, container *render.Container, opts Options) *Runner {
	if opts.FallbackTitle == "" {
		opts.FallbackTitle = FallbackTitle
	}
	return &Runner{src: src, container: container, opts: opts}
}

func (r *Runner) log(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	log.Println(msg)
	if r.opts.LogChan != nil {
		select {
		case r.opts.LogChan <- msg:
		default:
		}
	}
}

// FetchTalkTitle returns the source's title or the fallback on any error.
func (r *Runner) FetchTalkTitle(ctx context.Context) string {
	title, err := r.src.TalkTitle(ctx)
	if err != nil {
		r.log("Error fetching talk title: %v", err)
		return r.opts.FallbackTitle
	}
	return title
}

// Run generates cfg.SlideCount slides sequentially. A failed slide is logged
// and skipped. Run only returns an error when ctx ends.
func (r *Runner) Run(ctx context.Context, cfg slides.RequestConfig) (RunReport, error) {
	report := RunReport{Requested: cfg.SlideCount}

	report.Title = r.FetchTalkTitle(ctx)
	r.log("Search Term: %s", report.Title)
	r.log("Number of Slides: %d", cfg.SlideCount)
	r.log("Delay: %d", cfg.DelayMs)

	if r.opts.Debounce > 0 {
		t := time.NewTimer(r.opts.Debounce)
		select {
		case <-ctx.Done():
			t.Stop()
			return report, ctx.Err()
		case <-t.C:
		}
	}

	for i := 0; i < cfg.SlideCount; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.GenerateSlideContent(ctx); err != nil {
			report.Failed++
			r.log("Error generating slide content (%d/%d): %v", i+1, cfg.SlideCount, err)
			continue
		}
		report.Appended++
		r.log("Slide %d/%d ready", i+1, cfg.SlideCount)
	}
	return report, nil
}

// GenerateSlideContent fetches one slide and appends it to the container.
func (r *Runner) GenerateSlideContent(ctx context.Context) error {
	s, err := r.src.Slide(ctx)
	if err != nil {
		return err
	}
	if s == nil || s.ImageURL == "" {
		return ErrNoImageURL
	}
	return r.container.Append(render.SlideSection(*s, r.opts.Captions))
}

// GeneratePresentation replaces the container content with a full deck and
// shows its first slide.
func (r *Runner) GeneratePresentation(ctx context.Context, presentationNumber string) error {
	deck, err := r.src.Deck(ctx, presentationNumber)
	if err != nil {
		r.log("Error generating presentation: %v", err)
		return err
	}
	if deck == nil || deck.Title == "" || len(deck.Slides) == 0 {
		err := errors.New("invalid presentation data received")
		r.log("Error generating presentation: %v", err)
		return err
	}

	r.container.Clear()
	if err := r.container.Append(render.TitleSection(*deck, r.opts.Captions)); err != nil {
		return err
	}
	for _, s := range deck.Slides {
		if err := r.container.Append(render.DeckSlideSection(s, r.opts.Captions)); err != nil {
			return err
		}
	}
	r.container.Sync()
	r.container.Slide(0)
	r.log("Presentation %s ready: %s (%d slides)", presentationNumber, deck.Title, len(deck.Slides))
	return nil
}
