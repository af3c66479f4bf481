package types

import (
	"strings"
	"time"
)

// HealthStatus summarizes the monitoring verdict for a site or client.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthWarning  HealthStatus = "WARNING"
	HealthCritical HealthStatus = "CRITICAL"
	HealthUnknown  HealthStatus = "UNKNOWN"
)

// ParseHealthStatus maps an API health string to a HealthStatus,
// defaulting to HealthUnknown for values this build does not know.
func ParseHealthStatus(s string) HealthStatus {
	switch HealthStatus(strings.ToUpper(s)) {
	case HealthHealthy, HealthWarning, HealthCritical:
		return HealthStatus(strings.ToUpper(s))
	default:
		return HealthUnknown
	}
}

// Client is an agency customer that owns one or more monitored sites.
type Client struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	LogoURL            string       `json:"logo_url,omitempty"`
	SiteCount          int          `json:"site_count"`
	HealthStatus       HealthStatus `json:"health_status"`
	LastCheckTimestamp int64        `json:"last_check_timestamp"`
	CreatedAt          int64        `json:"created_at"`
}

// Site is a single monitored website belonging to a client.
type Site struct {
	ID                 string       `json:"id"`
	ClientID           string       `json:"client_id"`
	Name               string       `json:"name"`
	URL                string       `json:"url"`
	IsWordPress        bool         `json:"is_wordpress"`
	UptimePercentage   float64      `json:"uptime_percentage"`
	HealthStatus       HealthStatus `json:"health_status"`
	LastCheckTimestamp int64        `json:"last_check_timestamp"`
	CreatedAt          int64        `json:"created_at"`
	UpdatedAt          int64        `json:"updated_at"`
}

// SiteDetails is the full remote view of a site. The extended sections
// are nil when the payload was served from the local cache.
type SiteDetails struct {
	Site               *Site               `json:"site"`
	SSLInfo            *SSLInfo            `json:"ssl_info,omitempty"`
	WordPressInfo      *WordPressInfo      `json:"wordpress_info,omitempty"`
	SEOInfo            *SEOInfo            `json:"seo_info,omitempty"`
	PerformanceMetrics *PerformanceMetrics `json:"performance_metrics,omitempty"`
}

// SSLInfo describes the TLS certificate state of a site.
type SSLInfo struct {
	IsValid         bool   `json:"is_valid"`
	ExpiryDate      int64  `json:"expiry_date"`
	Issuer          string `json:"issuer"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
}

// WordPressInfo describes core/plugin/theme state for WordPress sites.
type WordPressInfo struct {
	CoreVersion    string          `json:"core_version"`
	HasUpdates     bool            `json:"has_updates"`
	Plugins        []Plugin        `json:"plugins"`
	Themes         []Theme         `json:"themes"`
	SecurityIssues []SecurityIssue `json:"security_issues"`
}

// Plugin is an installed WordPress plugin.
type Plugin struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	LatestVersion string `json:"latest_version,omitempty"`
	HasUpdate     bool   `json:"has_update"`
	IsActive      bool   `json:"is_active"`
}

// Theme is an installed WordPress theme.
type Theme struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	LatestVersion string `json:"latest_version,omitempty"`
	HasUpdate     bool   `json:"has_update"`
	IsActive      bool   `json:"is_active"`
}

// SecurityIssue is a security finding reported against a site.
type SecurityIssue struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// SEOInfo carries search ranking data for a site.
type SEOInfo struct {
	HealthScore     int              `json:"health_score"`
	Keywords        []KeywordRanking `json:"keywords"`
	BacklinksCount  int              `json:"backlinks_count"`
	DomainAuthority int              `json:"domain_authority"`
}

// KeywordRanking is a tracked keyword position.
type KeywordRanking struct {
	Keyword          string `json:"keyword"`
	Position         int    `json:"position"`
	PreviousPosition int    `json:"previous_position,omitempty"`
	Trend            string `json:"trend"`
	SearchVolume     int    `json:"search_volume,omitempty"`
}

// PerformanceMetrics carries response time and audit scores.
type PerformanceMetrics struct {
	ResponseTimeMs   int64 `json:"response_time"`
	BrokenLinksCount int   `json:"broken_links_count"`
}

// DashboardStats is the aggregate view shown on the dashboard. It is
// cached whole under a fixed key and recomputable from sites and
// notifications when the remote fetch fails.
type DashboardStats struct {
	TotalSites        int             `json:"total_sites"`
	HealthySites      int             `json:"healthy_sites"`
	WarningSites      int             `json:"warning_sites"`
	CriticalSites     int             `json:"critical_sites"`
	RecentAlerts      []*Notification `json:"recent_alerts"`
	LastSyncTimestamp int64           `json:"last_sync_timestamp,omitempty"`
}

// Severity grades a notification.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Notification is a monitoring alert, either fetched from the remote
// API or recorded locally when the live feed routes an alert.
type Notification struct {
	ID        string   `json:"id"`
	SiteID    string   `json:"site_id,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Type      string   `json:"type"`
	Severity  Severity `json:"severity"`
	Timestamp int64    `json:"timestamp"`
	IsRead    bool     `json:"is_read"`
	ActionURL string   `json:"action_url,omitempty"`
}

// Report is generated report metadata. Report bodies are never cached,
// only the listing.
type Report struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id,omitempty"`
	SiteID      string `json:"site_id,omitempty"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Format      string `json:"format"`
	GeneratedAt int64  `json:"generated_at"`
	StartDate   int64  `json:"start_date"`
	EndDate     int64  `json:"end_date"`
	DownloadURL string `json:"download_url"`
	FileSizeB   int64  `json:"file_size,omitempty"`
}

// User is the signed-in principal.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// Credentials is the token set persisted after login. Saved and cleared
// as a unit: a missing access token means signed out, a missing refresh
// token means refresh is impossible and the user must log in again.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

// Expired reports whether the access token is past its expiry instant.
func (c *Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// AlertEvent is one record read from the live alert feed. Only events
// with Event == AlertEventMessage are actionable; keep-alives carry no
// payload and are dropped at the stream layer.
type AlertEvent struct {
	ID       string        `json:"id"`
	Time     int64         `json:"time"`
	Event    string        `json:"event"`
	Topic    string        `json:"topic"`
	Message  string        `json:"message"`
	Title    string        `json:"title,omitempty"`
	Priority int           `json:"priority,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
	Click    string        `json:"click,omitempty"`
	Actions  []AlertAction `json:"actions,omitempty"`
}

// Feed event kinds. The feed emits "open" on connect and periodic
// keep-alives alongside actual messages.
const (
	AlertEventMessage   = "message"
	AlertEventOpen      = "open"
	AlertEventKeepalive = "keepalive"
)

// AlertAction is a suggested action attached to an alert.
type AlertAction struct {
	Action  string            `json:"action"`
	Label   string            `json:"label"`
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}
