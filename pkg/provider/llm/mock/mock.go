// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the requests the announcer sends and
// to feed controlled responses without a live backend. Set fields before
// calling any method; mutating them during a concurrent call is the caller's
// responsibility.
package mock

import (
	"context"
	"sync"

	"github.com/vexofm/vexo/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Responses is returned by consecutive Complete calls in order. When
	// exhausted, the last entry repeats.
	Responses []string

	// Errs pairs with Responses: a non-nil entry is returned instead of the
	// response at the same index.
	Errs []error

	// CompleteErr, if non-nil, is returned by every Complete call.
	CompleteErr error

	calls []CompleteCall
}

var _ llm.Provider = (*Provider)(nil)

// Name implements llm.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	n := len(p.calls)
	p.calls = append(p.calls, CompleteCall{Req: req})
	p.mu.Unlock()

	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if n < len(p.Errs) && p.Errs[n] != nil {
		return nil, p.Errs[n]
	}

	if len(p.Responses) == 0 {
		return &llm.CompletionResponse{}, nil
	}
	if n >= len(p.Responses) {
		n = len(p.Responses) - 1
	}
	return &llm.CompletionResponse{Content: p.Responses[n]}, nil
}

// Calls returns a copy of the recorded invocations.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.calls))
	copy(out, p.calls)
	return out
}
