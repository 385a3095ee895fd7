// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/dalemusser/hirehub/internal/app/store/audit"
	"github.com/dalemusser/hirehub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/auditlog"
	"github.com/dalemusser/hirehub/internal/app/system/linear"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"github.com/dalemusser/hirehub/internal/app/system/ratelimit"
	"github.com/dalemusser/hirehub/internal/app/system/tasks"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// linearCallbackPath is where Linear redirects after consent.
const linearCallbackPath = "/api/linear/auth/callback"

// services are the long-lived objects shared by the request handlers and the
// background jobs.
type services struct {
	audit         *auditlog.Logger
	linear        *linearsync.Service
	loginLimiter  *ratelimit.LoginLimiter
	submitLimiter *ratelimit.Limiter
	runner        *tasks.Runner
}

var (
	svcMu sync.Mutex
	svc   *services
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// timeout overrides, ensures the bootstrap admin and starts the background
// jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.Timeouts.Short,
		Medium: appCfg.Timeouts.Medium,
		Long:   appCfg.Timeouts.Long,
		Batch:  appCfg.Timeouts.Batch,
	})

	if err := ensureAdmin(ctx, deps, appCfg, logger); err != nil {
		return err
	}

	s, err := newServices(appCfg, deps, logger)
	if err != nil {
		return err
	}
	s.runner = tasks.NewRunner(logger,
		tasks.OAuthStateCleanupJob(oauthstate.New(deps.HireHubMongoDatabase), logger),
		tasks.RateLimitSweepJob(logger, s.loginLimiter, s.submitLimiter),
		tasks.LinearSyncRetryJob(s.linear, logger, appCfg.LinearRetryInterval),
	)
	s.runner.Start()

	svcMu.Lock()
	svc = s
	svcMu.Unlock()
	return nil
}

// currentServices returns the services built by Startup, building a fresh
// set (without background jobs) when Startup has not run.
func currentServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	svcMu.Lock()
	defer svcMu.Unlock()
	if svc != nil {
		return svc, nil
	}
	s, err := newServices(appCfg, deps, logger)
	if err != nil {
		return nil, err
	}
	svc = s
	return s, nil
}

func newServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	db := deps.HireHubMongoDatabase

	var mapping *linear.Mapping
	if appCfg.LinearMappingFile != "" {
		m, err := linear.LoadMapping(appCfg.LinearMappingFile)
		if err != nil {
			logger.Error("loading Linear mapping failed",
				zap.String("file", appCfg.LinearMappingFile),
				zap.Error(err))
			return nil, err
		}
		mapping = m
	}

	lcfg := linearsync.Config{
		APIURL:        appCfg.LinearAPIURL,
		RPS:           appCfg.LinearAPIRPS,
		DefaultTeamID: appCfg.LinearDefaultTeamID,
	}
	if appCfg.LinearClientID != "" {
		lcfg.OAuth = linear.OAuthConfig(appCfg.LinearClientID, appCfg.LinearClientSecret, appCfg.BaseURL+linearCallbackPath)
	} else {
		logger.Info("Linear OAuth not configured; connect is disabled")
	}

	return &services{
		audit: auditlog.New(audit.New(db), logger, auditlog.Config{
			Auth:  appCfg.AuditLogAuth,
			Admin: appCfg.AuditLogAdmin,
		}),
		linear:        linearsync.New(db, mapping, lcfg, logger),
		loginLimiter:  ratelimit.NewLoginLimiter(appCfg.LoginRateIP, appCfg.LoginRateEmail),
		submitLimiter: ratelimit.New(appCfg.ApplicationRateIP, appCfg.ApplicationBurst),
	}, nil
}

// ensureAdmin creates the configured bootstrap admin when no account uses
// its email. Existing accounts are left untouched.
func ensureAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		return nil
	}
	created, err := userstore.New(deps.HireHubMongoDatabase).EnsureAdmin(ctx, appCfg.AdminEmail, appCfg.AdminName, appCfg.AdminPassword)
	if err != nil {
		logger.Error("ensure bootstrap admin failed", zap.Error(err))
		return err
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("email", appCfg.AdminEmail))
	}
	return nil
}
