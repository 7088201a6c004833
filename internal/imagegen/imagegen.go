// Package imagegen talks to a Replicate-style predictions API: a job is
// created from a prompt and polled until it succeeds or fails.
package imagegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gnemet/SlideKaraoke/internal/apperr"
	"github.com/gnemet/SlideKaraoke/internal/config"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrTimedOut is wrapped by the error returned when polling exceeds its bound.
var ErrTimedOut = errors.New("image generation timed out")

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job is an image-generation prediction.
type Job struct {
	ID     string
	Status Status
	Output string
	Error  string
}

type prediction struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Output jsoniter.RawMessage `json:"output"`
	Error  interface{}        `json:"error"`
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt        string `json:"prompt"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	OutputFormat  string `json:"output_format,omitempty"`
	OutputQuality int    `json:"output_quality,omitempty"`
}

type Client struct {
	cfg  config.ImageConfig
	http *http.Client
}

func NewClient(cfg config.ImageConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Generate creates a job for prompt, waits for it and returns the image URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	job, err := c.Create(ctx, prompt)
	if err != nil {
		return "", err
	}
	job, err = c.Wait(ctx, job)
	if err != nil {
		return "", err
	}
	if job.Status == StatusFailed {
		msg := "image generation failed"
		if job.Error != "" {
			msg += ": " + job.Error
		}
		return "", apperr.Upstream(0, msg, nil)
	}
	if job.Output == "" {
		return "", apperr.DataShape(fmt.Sprintf("image job %s succeeded without output", job.ID), nil)
	}
	return job.Output, nil
}

// Create submits prompt and returns the job handle. The job may already be
// terminal when the API answered synchronously.
func (c *Client) Create(ctx context.Context, prompt string) (*Job, error) {
	body, err := json.Marshal(predictionRequest{Input: predictionInput{
		Prompt:        prompt,
		AspectRatio:   c.cfg.AspectRatio,
		OutputFormat:  c.cfg.OutputFormat,
		OutputQuality: c.cfg.OutputQuality,
	}})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s/predictions", strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.PreferWait {
		req.Header.Set("Prefer", "wait")
	}
	return c.do(req)
}

// Get fetches the current state of a job.
func (c *Client) Get(ctx context.Context, id string) (*Job, error) {
	url := fmt.Sprintf("%s/predictions/%s", strings.TrimRight(c.cfg.Endpoint, "/"), id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Wait polls job every PollInterval until it is terminal. It gives up after
// MaxPolls polls or Timeout, whichever comes first.
func (c *Client) Wait(ctx context.Context, job *Job) (*Job, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	polls := 0
	for !job.Status.Terminal() {
		if c.cfg.MaxPolls > 0 && polls >= c.cfg.MaxPolls {
			return nil, apperr.Timeout(fmt.Sprintf("image job %s still %s after %d polls", job.ID, job.Status, polls), ErrTimedOut)
		}
		log.Printf("Waiting for image generation %s... %s", job.ID, job.Status)

		select {
		case <-ctx.Done():
			return nil, c.ctxErr(ctx, job)
		case <-ticker.C:
		}

		polls++
		next, err := c.Get(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.ctxErr(ctx, job)
			}
			return nil, err
		}
		job = next
	}
	return job, nil
}

func (c *Client) ctxErr(ctx context.Context, job *Job) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Timeout(fmt.Sprintf("image job %s did not finish in time", job.ID), ErrTimedOut)
	}
	return ctx.Err()
}

func (c *Client) do(req *http.Request) (*Job, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream(0, "image generation request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream(resp.StatusCode, "reading image generation response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(resp.StatusCode,
			fmt.Sprintf("image generation API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))), nil)
	}

	var p prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, apperr.Upstream(0, "malformed image generation response", err)
	}
	if p.ID == "" {
		return nil, apperr.DataShape("image generation response has no job id", nil)
	}
	return p.job()
}

func (p *prediction) job() (*Job, error) {
	job := &Job{ID: p.ID, Status: normalizeStatus(p.Status)}
	if p.Error != nil {
		job.Error = fmt.Sprint(p.Error)
	}
	if job.Status != StatusSucceeded {
		return job, nil
	}

	out, err := firstOutput(p.Output)
	if err != nil {
		return nil, apperr.DataShape(fmt.Sprintf("image job %s has unexpected output", p.ID), err)
	}
	job.Output = out
	return job, nil
}

func normalizeStatus(s string) Status {
	switch s {
	case "succeeded":
		return StatusSucceeded
	case "failed", "canceled":
		return StatusFailed
	default: // starting, processing
		return StatusPending
	}
}

// firstOutput accepts a single URL or a list of URLs.
func firstOutput(raw jsoniter.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", nil
	}
	return list[0], nil
}
