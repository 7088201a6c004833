// Package server exposes the content endpoints, the karaoke pages and the
// slide stream over HTTP.
package server

import (
	"context"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	"github.com/gnemet/SlideKaraoke/internal/database"
	"github.com/gnemet/SlideKaraoke/internal/generator"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/gnemet/SlideKaraoke/ui"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stats is the read side of the usage ledger.
type Stats interface {
	GetTotalAICost(ctx context.Context) (float64, error)
	GetRecentTalks(ctx context.Context, limit int) ([]database.Talk, error)
}

type Server struct {
	cfg      *config.Config
	gen      *generator.Generator
	stats    Stats
	content  generator.Content
	tmpl     *template.Template
	upgrader websocket.Upgrader
}

type messageBody struct {
	Message string `json:"message"`
}

// New parses the page templates. stats may be nil.
func New(cfg *config.Config, gen *generator.Generator, stats Stats) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		gen:     gen,
		stats:   stats,
		content: generator.ParseContent(cfg.Presentation.Content),
		tmpl:    tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}, nil
}

// Routes returns the application router.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	prefix := "/" + strings.Trim(s.cfg.Application.FunctionPrefix, "/")
	fn := r.PathPrefix(prefix).Subrouter()
	fn.HandleFunc("/randomTalkTitle", s.handleRandomTalkTitle).Methods(http.MethodGet)
	fn.HandleFunc("/aiService", s.handleAIService).Methods(http.MethodGet)

	r.HandleFunc("/ws/slides", s.handleSlideStream)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)

	static, _ := fs.Sub(ui.Static, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index-{n:[0-9]+}.html", s.handleDeckPage).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"missing": s.cfg.MissingCredentials(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	cost, err := s.stats.GetTotalAICost(r.Context())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	talks, err := s.stats.GetRecentTalks(r.Context(), 20)
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":   true,
		"totalCost": cost,
		"talks":     talks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError responds with {error, type} and the status of err's category.
func writeError(w http.ResponseWriter, where string, err error) {
	e := apperr.From(err)
	log.Printf("Error in %s: %v", where, err)
	writeJSON(w, e.Status(), slides.ErrorBody{Error: e.Error(), Type: e.Kind.Type()})
}
