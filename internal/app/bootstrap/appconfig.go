// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (HIREHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the framework-level settings: ports, TLS, log level and the
// environment name.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: hirehub-session)
	SessionDomain string // Cookie domain (blank means current host)

	// BaseURL is the public origin, used to build the Linear OAuth redirect.
	BaseURL string

	// CORSOrigins lists the browser origins allowed to call /api. Empty
	// disables CORS handling.
	CORSOrigins []string

	// TrustedProxies lists the IPs or CIDRs whose forwarding headers are
	// believed. Empty means the socket peer is always the client.
	TrustedProxies []string

	// Audit logging ("all", "db", "log", "off")
	AuditLogAuth  string
	AuditLogAdmin string

	// Bootstrap admin, created on startup when no account has AdminEmail.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Linear integration
	LinearClientID      string
	LinearClientSecret  string
	LinearWebhookSecret string
	LinearAPIURL        string
	LinearAPIRPS        float64
	LinearDefaultTeamID string
	LinearMappingFile   string        // optional YAML override of the state/priority tables
	LinearRetryInterval time.Duration // 0 disables the sync retry job

	// OnboardingSteps seeds the checklist of newly converted personnel.
	OnboardingSteps []string

	// Rate limits (requests per minute per client IP, and per email for login)
	LoginRateIP       int
	LoginRateEmail    int
	ApplicationRateIP int
	ApplicationBurst  int

	// Handler timeouts
	Timeouts TimeoutConfig
}

// TimeoutConfig overrides the defaults in the timeouts package. Zero keeps
// the default.
type TimeoutConfig struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}
