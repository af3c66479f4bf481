package auth

import (
	"net/http"
	"strings"
)

// TokenSource yields the current access token. The lookup must be a
// local read (memory or on-disk cache) because it sits on the request
// path of every outgoing call.
type TokenSource interface {
	Token() (string, bool)
}

// exemptPaths are endpoints that must go out unauthenticated: login has
// no token yet and refresh authenticates with the refresh token in its
// body.
var exemptPaths = []string{"/auth/login", "/auth/refresh"}

// Transport is an http.RoundTripper that attaches the bearer token to
// every request outside the exempt list. When no token is available the
// request is forwarded unauthenticated and the server's rejection
// surfaces as an API fault. Token refresh is never attempted here; it
// is an explicit Manager operation.
type Transport struct {
	// Base is the underlying transport, http.DefaultTransport when nil.
	Base http.RoundTripper

	// Tokens supplies the access token.
	Tokens TokenSource
}

// NewTransport wraps base with bearer authentication from tokens.
func NewTransport(base http.RoundTripper, tokens TokenSource) *Transport {
	return &Transport{Base: base, Tokens: tokens}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isExempt(req.URL.Path) {
		return t.base().RoundTrip(req)
	}

	token, ok := t.Tokens.Token()
	if !ok {
		return t.base().RoundTrip(req)
	}

	// Per RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(clone)
}

func isExempt(path string) bool {
	for _, p := range exemptPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
