// Package oauth runs the external provider handshake and turns a completed
// callback into a verified identity assertion. Callers trust the assertion;
// nothing downstream re-checks provider signatures.
package oauth

import (
	"context"
	"errors"
)

var (
	// ErrHandshakeFailed is returned when the provider flow cannot be completed:
	// bad or replayed state, user denial, failed code exchange or profile fetch.
	ErrHandshakeFailed = errors.New("external provider handshake failed")
)

// Assertion is a verified external identity.
type Assertion struct {
	Provider    string
	ProviderID  string
	DisplayName string
	Email       string
}

// Callback carries the raw query parameters the provider redirected back with.
type Callback struct {
	Code  string
	State string
	Error string
}

// Verifier runs one provider's authorization-code flow.
type Verifier interface {
	// Provider returns the provider tag stored on linked accounts.
	Provider() string
	// AuthCodeURL returns the consent URL to redirect the browser to.
	AuthCodeURL(ctx context.Context) (string, error)
	// Verify completes the flow and returns the provider's identity assertion.
	Verify(ctx context.Context, cb Callback) (Assertion, error)
}
