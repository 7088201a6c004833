// Package slides holds the records exchanged between the content endpoints,
// the bootstrapper and the renderer.
package slides

import (
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultSlideCount   = 8
	DefaultDelaySeconds = 15

	// MaxDelaySeconds is the largest delay whose milliseconds fit in an int.
	MaxDelaySeconds = math.MaxInt / 1000
)

// GeneratedSlide is one slide produced by the content endpoint.
type GeneratedSlide struct {
	Title       string   `json:"title,omitempty"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Bullets     []string `json:"bullets,omitempty"`
	ImagePrompt string   `json:"imagePrompt,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// PresentationDeck is the payload of the full-deck endpoint.
type PresentationDeck struct {
	PresentationNumber string           `json:"presentationNumber"`
	Title              string           `json:"title"`
	Slides             []GeneratedSlide `json:"slides"`
}

// ErrorBody is returned by the content endpoints on failure.
type ErrorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// TitleBody is returned by the talk-title endpoint.
type TitleBody struct {
	Title string `json:"title"`
}

// RequestConfig is derived once from the page query string.
type RequestConfig struct {
	SlideCount int
	DelayMs    int
}

// ParseRequestConfig reads "slides" and "delay" (seconds). Missing,
// non-numeric, negative or out-of-range values fall back to 8 slides and 15
// seconds. A positive max caps the slide count.
func ParseRequestConfig(q url.Values, max int) RequestConfig {
	return NewRequestConfig(
		parseNonNegative(q.Get("slides"), DefaultSlideCount),
		parseNonNegative(q.Get("delay"), DefaultDelaySeconds),
		max,
	)
}

// NewRequestConfig applies the same bounds to already parsed values.
// Negative slide counts become 0. Negative delays and delays above
// MaxDelaySeconds become the default.
func NewRequestConfig(slideCount, delaySeconds, max int) RequestConfig {
	if slideCount < 0 {
		slideCount = 0
	}
	if max > 0 && slideCount > max {
		slideCount = max
	}
	if delaySeconds < 0 || delaySeconds > MaxDelaySeconds {
		delaySeconds = DefaultDelaySeconds
	}
	return RequestConfig{SlideCount: slideCount, DelayMs: delaySeconds * 1000}
}

func parseNonNegative(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
