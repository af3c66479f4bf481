package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token() (string, bool) {
	return s.token, s.token != ""
}

func TestTransportAttachesBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		token      string
		wantHeader string
	}{
		{name: "authenticated endpoint", path: "/clients", token: "tok-1", wantHeader: "Bearer tok-1"},
		{name: "login exempt", path: "/auth/login", token: "tok-1", wantHeader: ""},
		{name: "refresh exempt", path: "/auth/refresh", token: "tok-1", wantHeader: ""},
		{name: "prefixed login exempt", path: "/api/v1/auth/login", token: "tok-1", wantHeader: ""},
		{name: "no token forwards unauthenticated", path: "/clients", token: "", wantHeader: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotHeader string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotHeader = r.Header.Get("Authorization")
			}))
			defer srv.Close()

			httpc := &http.Client{Transport: NewTransport(nil, staticTokens{token: tt.token})}
			resp, err := httpc.Get(srv.URL + tt.path)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.wantHeader, gotHeader)
		})
	}
}

func TestTransportDoesNotMutateRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/sites", nil)
	require.NoError(t, err)

	httpc := &http.Client{Transport: NewTransport(nil, staticTokens{token: "tok"})}
	resp, err := httpc.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, req.Header.Get("Authorization"))
}
