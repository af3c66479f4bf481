package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/longbark/outpost/pkg/outcome"
	"github.com/longbark/outpost/pkg/types"
)

// Client talks JSON-over-HTTPS to the monitoring API. All methods are
// single-attempt: retry and backoff policy live in the sync scheduler,
// never here.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates an API client for the given base URL. Pass an
// http.Client carrying the authenticating transport; a nil client gets
// a plain one with a 30 second timeout.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// call performs one HTTP request and translates the result into an
// Outcome: transport-level failures become TransportFault, non-2xx
// statuses and empty success bodies become APIFault, anything else
// decodes into T. No retries and no side effects beyond the call.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) outcome.Outcome[T] {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return outcome.Failuref[T](outcome.APIFault, "encode request: %v", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return outcome.Failuref[T](outcome.APIFault, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return outcome.Failure[T](outcome.WrapFault(outcome.TransportFault, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return outcome.Failuref[T](outcome.APIFault, "API Error: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcome.Failure[T](outcome.WrapFault(outcome.TransportFault, err))
	}
	if len(data) == 0 {
		return outcome.Failuref[T](outcome.APIFault, "API Error: %d", resp.StatusCode)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return outcome.Failure[T](outcome.WrapFault(outcome.APIFault, fmt.Errorf("decode %s %s: %w", method, path, err)))
	}
	return outcome.Success(value)
}

// --- Dashboard ---

// GetDashboardStats fetches the aggregate dashboard view.
func (c *Client) GetDashboardStats(ctx context.Context) outcome.Outcome[*types.DashboardStats] {
	return call[*types.DashboardStats](ctx, c, http.MethodGet, "/dashboard/stats", nil, nil)
}

// --- Clients ---

// ListClients fetches the full client list.
func (c *Client) ListClients(ctx context.Context) outcome.Outcome[[]*types.Client] {
	res := call[*clientsResponse](ctx, c, http.MethodGet, "/clients", nil, nil)
	return outcome.Map(res, func(r *clientsResponse) []*types.Client { return r.Clients })
}

// GetClientByID fetches a single client.
func (c *Client) GetClientByID(ctx context.Context, clientID string) outcome.Outcome[*types.Client] {
	return call[*types.Client](ctx, c, http.MethodGet, "/clients/"+url.PathEscape(clientID), nil, nil)
}

// --- Sites ---

// ListSites fetches sites, optionally scoped to one client.
func (c *Client) ListSites(ctx context.Context, clientID string) outcome.Outcome[[]*types.Site] {
	var q url.Values
	if clientID != "" {
		q = url.Values{"client_id": {clientID}}
	}
	res := call[*sitesResponse](ctx, c, http.MethodGet, "/sites", q, nil)
	return outcome.Map(res, func(r *sitesResponse) []*types.Site { return r.Sites })
}

// GetSiteByID fetches the full detail view of one site.
func (c *Client) GetSiteByID(ctx context.Context, siteID string) outcome.Outcome[*types.SiteDetails] {
	return call[*types.SiteDetails](ctx, c, http.MethodGet, "/sites/"+url.PathEscape(siteID), nil, nil)
}

// TriggerSiteCheck asks the server to re-check one site now.
func (c *Client) TriggerSiteCheck(ctx context.Context, siteID string) outcome.Outcome[bool] {
	res := call[*Ack](ctx, c, http.MethodPost, "/sites/"+url.PathEscape(siteID)+"/check", nil, nil)
	return outcome.Map(res, func(a *Ack) bool { return a.Success })
}

// TriggerAllChecks asks the server to re-check every site.
func (c *Client) TriggerAllChecks(ctx context.Context) outcome.Outcome[bool] {
	res := call[*Ack](ctx, c, http.MethodPost, "/sites/check-all", nil, nil)
	return outcome.Map(res, func(a *Ack) bool { return a.Success })
}

// --- Reports ---

// ReportFilter narrows a report listing. Zero values mean "any".
type ReportFilter struct {
	ClientID string
	SiteID   string
	Type     string
}

// ListReports fetches report metadata matching the filter.
func (c *Client) ListReports(ctx context.Context, filter ReportFilter) outcome.Outcome[[]*types.Report] {
	q := url.Values{}
	if filter.ClientID != "" {
		q.Set("client_id", filter.ClientID)
	}
	if filter.SiteID != "" {
		q.Set("site_id", filter.SiteID)
	}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	res := call[*reportsResponse](ctx, c, http.MethodGet, "/reports", q, nil)
	return outcome.Map(res, func(r *reportsResponse) []*types.Report { return r.Reports })
}

// --- Notifications ---

// ListNotifications fetches the notification feed. Zero limit means
// server default.
func (c *Client) ListNotifications(ctx context.Context, limit, offset int) outcome.Outcome[[]*types.Notification] {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}
	return call[[]*types.Notification](ctx, c, http.MethodGet, "/notifications", q, nil)
}

// MarkNotificationRead marks one notification read on the server.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) outcome.Outcome[bool] {
	res := call[*Ack](ctx, c, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
	return outcome.Map(res, func(a *Ack) bool { return a.Success })
}

// MarkAllNotificationsRead marks every notification read on the server.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) outcome.Outcome[bool] {
	res := call[*Ack](ctx, c, http.MethodPut, "/notifications/read-all", nil, nil)
	return outcome.Map(res, func(a *Ack) bool { return a.Success })
}

// --- Auth ---

// Login exchanges credentials for a token set. Unauthenticated by the
// transport's allow-list.
func (c *Client) Login(ctx context.Context, email, password string) outcome.Outcome[*LoginResponse] {
	return call[*LoginResponse](ctx, c, http.MethodPost, "/auth/login", nil, &loginRequest{Email: email, Password: password})
}

// RefreshToken exchanges a refresh token for a fresh token set.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) outcome.Outcome[*LoginResponse] {
	return call[*LoginResponse](ctx, c, http.MethodPost, "/auth/refresh", nil, &refreshRequest{RefreshToken: refreshToken})
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) outcome.Outcome[*Ack] {
	return call[*Ack](ctx, c, http.MethodPost, "/auth/logout", nil, nil)
}
