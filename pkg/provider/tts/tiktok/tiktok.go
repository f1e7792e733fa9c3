// Package tiktok implements the primary TTS provider: an HTTP endpoint that
// answers a JSON POST with a minified JSON body carrying base64-encoded MP3
// audio in its "data" field.
//
// Responses are decoded incrementally so playback can begin before the
// upstream body finishes. Redirects are followed manually (up to 6 hops)
// without reading intermediate bodies.
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vexofm/vexo/pkg/provider/tts"
)

// maxRedirects is the redirect hop limit for a single request.
const maxRedirects = 6

// defaultTimeout bounds the full request including body streaming.
const defaultTimeout = 20 * time.Second

// Provider is the primary TTS backend.
type Provider struct {
	url    string
	client *http.Client
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

// Option customises a [Provider].
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client (used by tests and to tune
// timeouts). Redirect handling stays manual regardless of the client's
// redirect policy.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithTimeout sets the overall HTTP timeout for synthesis requests.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.client.Timeout = d
	}
}

// New creates a Provider targeting the given endpoint URL.
func New(url string, opts ...Option) *Provider {
	p := &Provider{
		url: url,
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "tiktok".
func (p *Provider) Name() string {
	return "tiktok"
}

// synthesisRequest is the upstream request payload.
type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Open POSTs the utterance and returns a reader of decoded MP3 bytes.
// Non-2xx statuses yield [tts.StatusError]; a null or missing audio field
// yields [tts.ErrNullAudio] or [tts.ErrParse].
func (p *Provider) Open(ctx context.Context, text, voiceID string) (io.ReadCloser, error) {
	payload, err := json.Marshal(synthesisRequest{Text: text, Voice: voiceID})
	if err != nil {
		return nil, fmt.Errorf("tiktok: encode request: %w", err)
	}

	resp, err := p.do(ctx, payload)
	if err != nil {
		return nil, err
	}

	dec, err := newDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &stream{dec: dec, body: resp.Body}, nil
}

// do performs the POST, following up to maxRedirects 3xx hops manually.
// Intermediate response bodies are closed without being read.
func (p *Provider) do(ctx context.Context, payload []byte) (*http.Response, error) {
	target := p.url
	for hop := 0; ; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("tiktok: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tiktok: request: %w", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" || hop >= maxRedirects {
				return nil, &tts.StatusError{Code: resp.StatusCode}
			}
			next, err := resp.Request.URL.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("tiktok: redirect location: %w", err)
			}
			target = next.String()
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &tts.StatusError{Code: resp.StatusCode}
		}
		return resp, nil
	}
}

// stream couples the incremental decoder with the response body so that
// closing the reader releases the connection.
type stream struct {
	dec  *decoder
	body io.Closer
}

func (s *stream) Read(p []byte) (int, error) {
	return s.dec.Read(p)
}

func (s *stream) Close() error {
	return s.body.Close()
}
