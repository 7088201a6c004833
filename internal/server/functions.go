package server

import (
	"net/http"

	"github.com/gnemet/SlideKaraoke/internal/generator"
	"github.com/gnemet/SlideKaraoke/internal/slides"
)

func isTest(r *http.Request) bool {
	return r.URL.Query().Get("test") == "true"
}

// GET {prefix}/randomTalkTitle
func (s *Server) handleRandomTalkTitle(w http.ResponseWriter, r *http.Request) {
	if isTest(r) {
		writeJSON(w, http.StatusOK, messageBody{Message: "Function is accessible"})
		return
	}

	title, err := s.gen.Title(r.Context())
	if err != nil {
		writeError(w, "randomTalkTitle", err)
		return
	}
	writeJSON(w, http.StatusOK, slides.TitleBody{Title: title})
}

// GET {prefix}/aiService
// With ?presentation=N it returns a full deck, otherwise a single slide.
func (s *Server) handleAIService(w http.ResponseWriter, r *http.Request) {
	if isTest(r) {
		writeJSON(w, http.StatusOK, messageBody{Message: "Function is accessible"})
		return
	}

	q := r.URL.Query()
	req := generator.Request{
		Options: generator.Options{Scope: generator.SingleSlide, Content: s.content},
		Topic:   q.Get("topic"),
	}
	if n := q.Get("presentation"); n != "" {
		req.Scope = generator.FullDeck
		req.PresentationNumber = n
	}

	res, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		writeError(w, "aiService", err)
		return
	}
	if res.Deck != nil {
		writeJSON(w, http.StatusOK, res.Deck)
		return
	}
	writeJSON(w, http.StatusOK, res.Slide)
}
