package generator

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/gnemet/SlideKaraoke/internal/ai"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/imagegen"
	"github.com/gnemet/SlideKaraoke/internal/prompts"
)

// NewFromConfig wires the configured text and image clients. Clients whose
// credentials are missing are left out, so every generation call fails with
// a configuration error instead of reaching the upstream API. The returned
// func releases provider resources.
func NewFromConfig(ctx context.Context, cfg *config.Config, ledger *database.Ledger) (*Generator, func(), error) {
	var (
		text    TextGenerator
		images  ImageGenerator
		closers []io.Closer
	)

	if s, ok := cfg.AI.Active(); ok && s.Key != "" {
		driver, err := ai.NewDriver(ctx, s, nil)
		if err != nil {
			return nil, nil, err
		}
		if c, ok := driver.(io.Closer); ok {
			closers = append(closers, c)
		}
		text = ai.NewClient(driver, s, prompts.NewCatalog(), ledger)
		log.Printf("Text generation: %s (%s)", driver.Name(), s.Model)
	}
	if cfg.Image.Token != "" {
		images = imagegen.NewClient(cfg.Image, nil)
		log.Printf("Image generation: %s", cfg.Image.Model)
	}
	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		log.Printf("Warning: missing credentials: %s", strings.Join(missing, ", "))
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	return New(cfg, text, images, ledger), cleanup, nil
}
