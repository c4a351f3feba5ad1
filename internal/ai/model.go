// Package ai talks to the generative model that writes questions and stress analyses.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/and161185/comfy/internal/errs"
)

// Model produces raw text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configure the Gemini model.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Gemini is a Model backed by the Google GenAI SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	cfg     *genai.GenerateContentConfig
}

// NewGemini builds a Gemini model. It performs no network I/O.
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", errs.ErrUpstreamUnavailable)
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		cfg: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](1.0),
			TopP:             genai.Ptr[float32](0.95),
			TopK:             genai.Ptr[float32](40),
			MaxOutputTokens:  8192,
			ResponseMIMEType: "application/json",
		},
	}, nil
}

// Generate sends a single-turn prompt and returns the concatenated text parts.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Handle is the process-wide, lazily built model. Without an API key it stays
// in the unavailable state and every call reports errs.ErrUpstreamUnavailable.
type Handle struct {
	opts Options

	once  sync.Once
	model Model
	err   error
}

// NewHandle returns a handle that builds a Gemini model on first use.
func NewHandle(opts Options) *Handle { return &Handle{opts: opts} }

// StaticHandle wraps an already constructed model (nil means unavailable).
func StaticHandle(m Model) *Handle {
	h := &Handle{model: m}
	if m == nil {
		h.err = errs.ErrUpstreamUnavailable
	}
	h.once.Do(func() {})
	return h
}

// Available reports whether a model can be obtained, building it if needed.
func (h *Handle) Available(ctx context.Context) bool {
	_, err := h.Model(ctx)
	return err == nil
}

// Model returns the model or errs.ErrUpstreamUnavailable.
func (h *Handle) Model(ctx context.Context) (Model, error) {
	h.once.Do(func() {
		if h.opts.APIKey == "" {
			h.err = fmt.Errorf("%w: AI API key is not configured", errs.ErrUpstreamUnavailable)
			return
		}
		g, err := NewGemini(ctx, h.opts)
		if err != nil {
			h.err = fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
			return
		}
		h.model = g
	})
	return h.model, h.err
}
