package server

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/bootstrap"
	"github.com/gnemet/SlideKaraoke/internal/i18n"
	"github.com/gnemet/SlideKaraoke/internal/render"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/gnemet/SlideKaraoke/ui"
	"github.com/gorilla/mux"
)

// RevealConfig is passed to Reveal.initialize.
type RevealConfig struct {
	Width        string  `json:"width"`
	Height       string  `json:"height"`
	Margin       float64 `json:"margin"`
	Hash         bool    `json:"hash"`
	History      bool    `json:"history"`
	Controls     bool    `json:"controls"`
	Progress     bool    `json:"progress"`
	Center       bool    `json:"center"`
	Transition   string  `json:"transition"`
	SlideNumber  string  `json:"slideNumber"`
	Loop         bool    `json:"loop"`
	AutoSlide    int     `json:"autoSlide"`
	ViewDistance int     `json:"viewDistance"`
}

func newRevealConfig(delayMs int) RevealConfig {
	return RevealConfig{
		Width:        "70%",
		Height:       "70%",
		Margin:       0.05,
		Hash:         true,
		History:      true,
		Controls:     false,
		Progress:     true,
		Center:       true,
		Transition:   "slide",
		SlideNumber:  "all",
		Loop:         false,
		AutoSlide:    delayMs,
		ViewDistance: 5,
	}
}

type pageData struct {
	Lang       string
	PageTitle  string
	Loading    string
	Reveal     RevealConfig
	StreamURL  string
	StartSlide int
	Sections   []template.HTML
	// Inlined assets for pages opened from disk.
	InlineScript template.JS
	InlineStyle  template.CSS
}

func parseTemplates() (*template.Template, error) {
	return template.ParseFS(ui.Templates, "templates/*.html")
}

func newPageData(lang string, delayMs int) pageData {
	return pageData{
		Lang:       lang,
		PageTitle:  i18n.T(lang, "page.title"),
		Loading:    i18n.T(lang, "page.loading"),
		Reveal:     newRevealConfig(delayMs),
		StartSlide: -1,
	}
}

// GET / and /index.html: the page shell. Slides arrive over /ws/slides.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rc := slides.ParseRequestConfig(r.URL.Query(), s.cfg.Presentation.MaxSlides)
	data := newPageData(i18n.GetLang(r), rc.DelayMs)

	q := url.Values{}
	q.Set("slides", fmt.Sprint(rc.SlideCount))
	q.Set("delay", fmt.Sprint(rc.DelayMs/1000))
	q.Set("lang", data.Lang)
	if topic := r.URL.Query().Get("topic"); topic != "" {
		q.Set("topic", topic)
	}
	data.StreamURL = "/ws/slides?" + q.Encode()

	s.renderPage(w, data)
}

// GET /index-{n}.html: a full deck rendered before the page is sent.
func (s *Server) handleDeckPage(w http.ResponseWriter, r *http.Request) {
	n := mux.Vars(r)["n"]
	rc := slides.ParseRequestConfig(r.URL.Query(), s.cfg.Presentation.MaxSlides)
	data := newPageData(i18n.GetLang(r), rc.DelayMs)

	container := render.NewContainer(nil)
	runner := bootstrap.NewRunner(bootstrap.NewLocalSource(s.gen, s.content), container, bootstrap.Options{
		FallbackTitle: s.cfg.Presentation.FallbackTitle,
		Captions:      render.CaptionsFor(data.Lang),
	})
	if err := runner.GeneratePresentation(r.Context(), n); err != nil {
		e := apperr.From(err)
		http.Error(w, e.Error(), e.Status())
		return
	}

	data.Sections = trusted(container.Sections())
	data.StartSlide = 0
	s.renderPage(w, data)
}

// trusted marks serialized sections as safe HTML. Every generated string in
// them entered the node tree as text or a checked URL.
func trusted(sections []string) []template.HTML {
	out := make([]template.HTML, len(sections))
	for i, section := range sections {
		out[i] = template.HTML(section)
	}
	return out
}

// WriteStandalone writes a deck page with its script and style inlined, so it
// works when opened from disk.
func WriteStandalone(w io.Writer, lang string, delayMs int, sections []string) error {
	tmpl, err := parseTemplates()
	if err != nil {
		return err
	}
	script, err := fs.ReadFile(ui.Static, "static/karaoke.js")
	if err != nil {
		return err
	}
	style, err := fs.ReadFile(ui.Static, "static/karaoke.css")
	if err != nil {
		return err
	}

	data := newPageData(lang, delayMs)
	data.Sections = trusted(sections)
	data.StartSlide = 0
	data.InlineScript = template.JS(script)
	data.InlineStyle = template.CSS(style)
	return tmpl.ExecuteTemplate(w, "index.html", data)
}

func (s *Server) renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("Error rendering page: %v", err)
	}
}
