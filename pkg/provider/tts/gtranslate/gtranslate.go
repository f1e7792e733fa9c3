// Package gtranslate implements the fallback TTS provider backed by the
// Google Translate speech endpoint. The response body is opaque MP3 and is
// forwarded verbatim.
package gtranslate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vexofm/vexo/pkg/provider/tts"
)

// VoiceID is the single catalog voice served by this provider.
const VoiceID = "google_translate"

// userAgent mimics a browser; the endpoint rejects non-browser clients.
const userAgent = "Mozilla/5.0"

const defaultTimeout = 15 * time.Second

// Provider is the fallback TTS backend.
type Provider struct {
	url    string
	client *http.Client
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option customises a [Provider].
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// New creates a Provider targeting the given endpoint URL.
func New(endpoint string, opts ...Option) *Provider {
	p := &Provider{
		url:    endpoint,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "google".
func (p *Provider) Name() string {
	return "google"
}

// Open issues the GET request and returns the raw MP3 body. The voice id is
// ignored; this provider has a single voice.
func (p *Provider) Open(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", "en")
	q.Set("client", "tw-ob")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gtranslate: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtranslate: request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &tts.StatusError{Code: resp.StatusCode}
	}
	return resp.Body, nil
}
