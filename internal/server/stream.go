package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/bootstrap"
	"github.com/gnemet/SlideKaraoke/internal/i18n"
	"github.com/gnemet/SlideKaraoke/internal/render"
	"github.com/gnemet/SlideKaraoke/internal/slides"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// StreamMessage is one update pushed to the page over /ws/slides.
type StreamMessage struct {
	Type    string               `json:"type"` // append, clear, sync, slide, log, done
	HTML    string               `json:"html,omitempty"`
	Index   int                  `json:"index"`
	Message string               `json:"message,omitempty"`
	Report  *bootstrap.RunReport `json:"report,omitempty"`
}

// wsPresenter forwards container changes to the browser, which applies them
// to reveal.js.
type wsPresenter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *wsPresenter) send(m StreamMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteJSON(m); err != nil {
		log.Printf("Slide stream write failed: %v", err)
	}
}

func (p *wsPresenter) Appended(section string) { p.send(StreamMessage{Type: "append", HTML: section}) }
func (p *wsPresenter) Cleared()                { p.send(StreamMessage{Type: "clear"}) }
func (p *wsPresenter) Sync()                   { p.send(StreamMessage{Type: "sync"}) }
func (p *wsPresenter) Slide(index int)         { p.send(StreamMessage{Type: "slide", Index: index}) }

// GET /ws/slides?slides=&delay=&topic=&lang=
// Runs one karaoke session. Closing the socket cancels the run.
func (s *Server) handleSlideStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Slide stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	p := &wsPresenter{conn: conn}
	logs := make(chan string, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range logs {
			p.send(StreamMessage{Type: "log", Message: msg})
		}
	}()

	q := r.URL.Query()
	src := bootstrap.NewLocalSource(s.gen, s.content)
	src.Topic = q.Get("topic")
	runner := bootstrap.NewRunner(src, render.NewContainer(p), bootstrap.Options{
		Debounce:      s.cfg.Presentation.Debounce,
		FallbackTitle: s.cfg.Presentation.FallbackTitle,
		Captions:      render.CaptionsFor(i18n.GetLang(r)),
		LogChan:       logs,
	})

	report, err := runner.Run(ctx, slides.ParseRequestConfig(q, s.cfg.Presentation.MaxSlides))
	close(logs)
	<-done
	if err != nil {
		log.Printf("Slide stream stopped: %v", err)
		return
	}

	p.send(StreamMessage{Type: "done", Report: &report})
	p.mu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	p.mu.Unlock()
}
