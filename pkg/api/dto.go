package api

import "github.com/longbark/outpost/pkg/types"

// Ack is the minimal acknowledgement body returned by mutation
// endpoints.
type Ack struct {
	Success bool `json:"success"`
}

type clientsResponse struct {
	Clients []*types.Client `json:"clients"`
	Total   int             `json:"total"`
}

type sitesResponse struct {
	Sites []*types.Site `json:"sites"`
	Total int           `json:"total"`
}

type reportsResponse struct {
	Reports []*types.Report `json:"reports"`
	Total   int             `json:"total"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse is the token grant returned by login and refresh.
// ExpiresIn is seconds until access-token expiry.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *types.User `json:"user"`
}
