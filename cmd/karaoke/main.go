package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/bootstrap"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/generator"
	"github.com/gnemet/SlideKaraoke/internal/render"
	"github.com/gnemet/SlideKaraoke/internal/server"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

const defaultOutput = "karaoke.html"

var (
	serverURL    string
	outputPath   string
	topic        string
	lang         string
	slideCount   int
	delaySeconds int
	presentation string
	checkImage   bool
)

var sourceFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "url",
		Usage:       "Base URL of a running karaoke server. Generates in-process when omitted",
		Aliases:     []string{"u"},
		Destination: &serverURL,
	},
	&cli.StringFlag{
		Name:        "output",
		Usage:       "Path of the HTML file to write. Defaults to stdout, or karaoke.html on a terminal",
		Aliases:     []string{"o"},
		Destination: &outputPath,
	},
	&cli.StringFlag{
		Name:        "lang",
		Usage:       "Caption language",
		Value:       "en",
		Destination: &lang,
	},
	&cli.IntFlag{
		Name:        "delay",
		Usage:       "Seconds per slide when the deck auto-advances",
		Aliases:     []string{"d"},
		Value:       slides.DefaultDelaySeconds,
		Destination: &delaySeconds,
	},
}

var generateCommand = &cli.Command{
	Name:  "generate",
	Usage: "Generate karaoke slides one by one and write them as a reveal.js page",
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:        "slides",
			Usage:       "Number of slides to request",
			Aliases:     []string{"n"},
			Value:       slides.DefaultSlideCount,
			Destination: &slideCount,
		},
		&cli.StringFlag{
			Name:        "topic",
			Usage:       "Use this title for every slide instead of generated ones",
			Aliases:     []string{"t"},
			Destination: &topic,
		},
	}, sourceFlags...),
	Action: func(c *cli.Context) error {
		cfg, src, cleanup, err := openSource(c.Context)
		if err != nil {
			return err
		}
		defer cleanup()

		container := render.NewContainer(nil)
		runner := bootstrap.NewRunner(src, container, bootstrap.Options{
			FallbackTitle: cfg.Presentation.FallbackTitle,
			Captions:      render.CaptionsFor(lang),
		})

		rc := requestConfig(cfg.Presentation.MaxSlides)
		report, err := runner.Run(c.Context, rc)
		if err != nil {
			return err
		}
		log.Printf("%q: %d/%d slides (%d failed)", report.Title, report.Appended, report.Requested, report.Failed)
		return writeDeck(container, rc.DelayMs)
	},
}

var deckCommand = &cli.Command{
	Name:  "deck",
	Usage: "Generate a full presentation deck and write it as a reveal.js page",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:        "presentation",
			Usage:       "Presentation number",
			Aliases:     []string{"p"},
			Value:       "1",
			Destination: &presentation,
		},
	}, sourceFlags...),
	Action: func(c *cli.Context) error {
		cfg, src, cleanup, err := openSource(c.Context)
		if err != nil {
			return err
		}
		defer cleanup()

		container := render.NewContainer(nil)
		runner := bootstrap.NewRunner(src, container, bootstrap.Options{
			FallbackTitle: cfg.Presentation.FallbackTitle,
			Captions:      render.CaptionsFor(lang),
		})
		if err := runner.GeneratePresentation(c.Context, presentation); err != nil {
			return err
		}
		return writeDeck(container, requestConfig(0).DelayMs)
	},
}

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "Check the configured generation providers",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:        "image",
			Usage:       "Also generate one test image",
			Destination: &checkImage,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		s, _ := cfg.AI.Active()
		fmt.Printf("Active Provider: %s (Driver: %s)\n", cfg.AI.ActiveProvider, s.Driver)
		fmt.Printf("Model: %s\n", s.Model)
		fmt.Printf("Text API Key: %s\n", maskKey(s.Key))
		fmt.Printf("Image Model: %s\n", cfg.Image.Model)
		fmt.Printf("Image API Token: %s\n", maskKey(cfg.Image.Token))

		gen, cleanup, err := generator.NewFromConfig(c.Context, cfg, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
		defer cancel()

		start := time.Now()
		title, err := gen.Title(ctx)
		if err != nil {
			return fmt.Errorf("text generation: %w", err)
		}
		fmt.Printf("\nText OK (%v): %s\n", time.Since(start).Round(time.Millisecond), title)

		if !checkImage {
			return nil
		}
		ctx, cancel = context.WithTimeout(c.Context, cfg.Image.Timeout+30*time.Second)
		defer cancel()
		start = time.Now()
		res, err := gen.Generate(ctx, generator.Request{
			Options: generator.Options{Scope: generator.SingleSlide, Content: generator.TitleOnly},
			Topic:   title,
		})
		if err != nil {
			return fmt.Errorf("image generation: %w", err)
		}
		fmt.Printf("Image OK (%v): %s\n", time.Since(start).Round(time.Millisecond), res.Slide.ImageURL)
		return nil
	},
}

func main() {
	app := &cli.App{
		Name:     "karaoke",
		Usage:    "AI slide karaoke from the command line",
		Commands: []*cli.Command{generateCommand, deckCommand, checkCommand},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openSource returns a source backed by --url, or an in-process generator.
func openSource(ctx context.Context) (*config.Config, bootstrap.Source, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	if serverURL != "" {
		src := bootstrap.NewHTTPSource(serverURL, cfg.Application.FunctionPrefix, nil)
		src.Topic = topic
		return cfg, src, func() {}, nil
	}

	var connStr string
	if cfg.Database.Enabled() {
		connStr = cfg.Database.GetConnectStr()
	}
	ledger, closeDB, err := database.OpenLedger(ctx, connStr)
	if err != nil {
		log.Printf("Warning: usage ledger disabled: %v", err)
		ledger, closeDB = database.NewLedger(nil), func() error { return nil }
	}
	gen, cleanup, err := generator.NewFromConfig(ctx, cfg, ledger)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}

	src := bootstrap.NewLocalSource(gen, generator.ParseContent(cfg.Presentation.Content))
	src.Topic = topic
	return cfg, src, func() {
		cleanup()
		closeDB()
	}, nil
}

// requestConfig bounds --slides and --delay the way the page query is bounded.
func requestConfig(maxSlides int) slides.RequestConfig {
	return slides.NewRequestConfig(slideCount, delaySeconds, maxSlides)
}

func writeDeck(container *render.Container, delayMs int) error {
	var w io.Writer = os.Stdout
	path := outputPath
	if path == "" && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())) {
		path = defaultOutput
	}
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := server.WriteStandalone(w, lang, delayMs, container.Sections()); err != nil {
		return err
	}
	if path != "" {
		log.Printf("Wrote %d slides to %s", container.Len(), path)
	}
	return nil
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "(empty)"
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	default:
		return "****"
	}
}
