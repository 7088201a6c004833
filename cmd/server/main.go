package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/generator"
	"github.com/gnemet/SlideKaraoke/internal/i18n"
	"github.com/gnemet/SlideKaraoke/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.Watch()
	i18n.Init()

	ctx := context.Background()

	var connStr string
	if cfg.Database.Enabled() {
		connStr = cfg.Database.GetConnectStr()
	}
	ledger, closeDB, err := database.OpenLedger(ctx, connStr)
	if err != nil {
		log.Printf("Warning: usage ledger disabled: %v", err)
		ledger, closeDB = database.NewLedger(nil), func() error { return nil }
	}
	defer closeDB()

	gen, cleanup, err := generator.NewFromConfig(ctx, cfg, ledger)
	if err != nil {
		log.Fatalf("Failed to set up generator: %v", err)
	}
	defer cleanup()

	srv, err := server.New(cfg, gen, ledger)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		Handler: srv.Routes(),
	}

	host := cfg.Application.Host
	if host == "" {
		host = "localhost"
	}
	fmt.Printf("%s starting on http://%s:%d\n", cfg.Application.Name, host, cfg.Application.Port)
	log.Printf("Content endpoints under %s", cfg.Application.FunctionPrefix)
	log.Fatal(httpServer.ListenAndServe())
}
