// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/httplog"
	"github.com/dalemusser/hirehub/internal/app/system/linear"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSessionKeyLen is the shortest session signing key accepted outside dev.
const minSessionKeyLen = 32

// appConfigKeys defines the configuration keys for HireHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: HIREHUB_MONGO_URI, HIREHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "hirehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "hirehub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL (Linear OAuth redirect)"},
	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to call /api (blank disables CORS)"},
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs/CIDRs whose X-Forwarded-For is honoured (blank trusts none)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Bootstrap admin
	{Name: "admin_email", Default: "", Desc: "Email of the bootstrap admin (created on startup when missing)"},
	{Name: "admin_password", Default: "", Desc: "Initial password of the bootstrap admin"},
	{Name: "admin_name", Default: "Administrator", Desc: "Display name of the bootstrap admin"},

	// Linear integration
	{Name: "linear_client_id", Default: "", Desc: "Linear OAuth2 client ID"},
	{Name: "linear_client_secret", Default: "", Desc: "Linear OAuth2 client secret"},
	{Name: "linear_webhook_secret", Default: "", Desc: "Linear webhook signing secret (blank skips verification)"},
	{Name: "linear_api_url", Default: linear.DefaultAPIURL, Desc: "Linear GraphQL endpoint"},
	{Name: "linear_api_rps", Default: "2", Desc: "Outbound Linear requests per second (0 = unlimited)"},
	{Name: "linear_default_team_id", Default: "", Desc: "Linear team for projects that do not name one"},
	{Name: "linear_mapping_file", Default: "", Desc: "YAML file overriding the Linear state/priority mapping"},
	{Name: "linear_sync_retry_interval", Default: "5m", Desc: "How often failed Linear syncs are retried (0 disables)"},

	// Personnel
	{Name: "onboarding_steps", Default: "", Desc: "Comma-separated onboarding checklist (blank uses the built-in list)"},

	// Rate limits
	{Name: "login_rate_ip", Default: 20, Desc: "Login attempts per minute per client IP"},
	{Name: "login_rate_email", Default: 5, Desc: "Login attempts per minute per email"},
	{Name: "application_rate_ip", Default: 5, Desc: "Public application submissions per minute per client IP"},
	{Name: "application_burst", Default: 3, Desc: "Burst size for public application submissions"},

	// Timeouts
	{Name: "timeout_short", Default: "", Desc: "Timeout for single-document operations (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Timeout for multi-document and outbound operations"},
	{Name: "timeout_long", Default: "", Desc: "Timeout for list/aggregate operations and background jobs"},
	{Name: "timeout_batch", Default: "", Desc: "Timeout for batch operations such as a full project sync"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, HIREHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "HIREHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	rps, err := strconv.ParseFloat(strings.TrimSpace(appValues.String("linear_api_rps")), 64)
	if err != nil || rps < 0 {
		return nil, AppConfig{}, fmt.Errorf("linear_api_rps must be a non-negative number: %q", appValues.String("linear_api_rps"))
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		BaseURL:        strings.TrimRight(appValues.String("base_url"), "/"),
		CORSOrigins:    splitList(appValues.String("cors_allowed_origins")),
		TrustedProxies: splitList(appValues.String("trusted_proxies")),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		// Bootstrap admin
		AdminEmail:    strings.TrimSpace(appValues.String("admin_email")),
		AdminPassword: appValues.String("admin_password"),
		AdminName:     appValues.String("admin_name"),

		// Linear
		LinearClientID:      appValues.String("linear_client_id"),
		LinearClientSecret:  appValues.String("linear_client_secret"),
		LinearWebhookSecret: appValues.String("linear_webhook_secret"),
		LinearAPIURL:        appValues.String("linear_api_url"),
		LinearAPIRPS:        rps,
		LinearDefaultTeamID: appValues.String("linear_default_team_id"),
		LinearMappingFile:   appValues.String("linear_mapping_file"),
		LinearRetryInterval: appValues.Duration("linear_sync_retry_interval", 5*time.Minute),

		OnboardingSteps: splitList(appValues.String("onboarding_steps")),

		// Rate limits
		LoginRateIP:       appValues.Int("login_rate_ip"),
		LoginRateEmail:    appValues.Int("login_rate_email"),
		ApplicationRateIP: appValues.Int("application_rate_ip"),
		ApplicationBurst:  appValues.Int("application_burst"),

		Timeouts: TimeoutConfig{
			Short:  appValues.Duration("timeout_short", 0),
			Medium: appValues.Duration("timeout_medium", 0),
			Long:   appValues.Duration("timeout_long", 0),
			Batch:  appValues.Duration("timeout_batch", 0),
		},
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// HireHub validates the MongoDB URI format to catch configuration errors
// early, before attempting to connect, and rejects half-configured Linear
// OAuth credentials.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(coreCfg.Env, appCfg)
}

func validateAppConfig(env string, appCfg AppConfig) error {
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if env != "dev" && len(appCfg.SessionKey) < minSessionKeyLen {
		return fmt.Errorf("session_key must be at least %d characters", minSessionKeyLen)
	}
	if (appCfg.LinearClientID == "") != (appCfg.LinearClientSecret == "") {
		return fmt.Errorf("linear_client_id and linear_client_secret must both be set or both be empty")
	}
	if appCfg.LinearClientID != "" && appCfg.BaseURL == "" {
		return fmt.Errorf("base_url is required for the Linear OAuth redirect")
	}
	if appCfg.AdminEmail != "" && appCfg.AdminPassword == "" {
		return fmt.Errorf("admin_password is required when admin_email is set")
	}
	if appCfg.LinearRetryInterval < 0 {
		return fmt.Errorf("linear_sync_retry_interval must not be negative")
	}
	if _, err := httplog.ParseTrustedProxies(appCfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}
	return nil
}

// splitList splits a comma-separated value, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
