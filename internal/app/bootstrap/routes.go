// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	applicationsfeature "github.com/dalemusser/hirehub/internal/app/features/applications"
	auditlogfeature "github.com/dalemusser/hirehub/internal/app/features/auditlog"
	communicationsfeature "github.com/dalemusser/hirehub/internal/app/features/communications"
	dashboardfeature "github.com/dalemusser/hirehub/internal/app/features/dashboard"
	departmentsfeature "github.com/dalemusser/hirehub/internal/app/features/departments"
	healthfeature "github.com/dalemusser/hirehub/internal/app/features/health"
	linearfeature "github.com/dalemusser/hirehub/internal/app/features/linear"
	loginfeature "github.com/dalemusser/hirehub/internal/app/features/login"
	personnelfeature "github.com/dalemusser/hirehub/internal/app/features/personnel"
	projectsfeature "github.com/dalemusser/hirehub/internal/app/features/projects"
	timeentriesfeature "github.com/dalemusser/hirehub/internal/app/features/timeentries"
	usersfeature "github.com/dalemusser/hirehub/internal/app/features/users"
	userstore "github.com/dalemusser/hirehub/internal/app/store/users"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/auth"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/app/system/httplog"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. HireHub applies request ids, panic
// recovery, access logging and session loading globally, then mounts every
// JSON feature router under /api.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.HireHubMongoDatabase

	s, err := currentServices(appCfg, deps, logger)
	if err != nil {
		return nil, err
	}

	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on each request.
	// This ensures role changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	trusted, err := httplog.ParseTrustedProxies(appCfg.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted_proxies", zap.Error(err))
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.TrustedRealIP(trusted))
	r.Use(httplog.Recoverer(logger))
	r.Use(httplog.AccessLog(logger))
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.HireHubMongoClient, db, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		if len(appCfg.CORSOrigins) > 0 {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins:   appCfg.CORSOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", authz.ApplicationTokenHeader},
				ExposedHeaders:   []string{"X-Request-Id"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}

		// Sessions and accounts
		loginHandler := loginfeature.NewHandler(db, sessionMgr, s.audit, s.loginLimiter, logger)
		api.Mount("/auth", loginfeature.Routes(loginHandler, sessionMgr))

		usersHandler := usersfeature.NewHandler(db, s.audit, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

		// Applicant intake and review
		messagesHandler := communicationsfeature.NewHandler(db, logger)
		applicationsHandler := applicationsfeature.NewHandler(db, s.audit, logger)
		api.Mount("/applications", applicationsfeature.Routes(applicationsHandler, sessionMgr,
			s.submitLimiter, communicationsfeature.Routes(messagesHandler)))

		// Personnel and departments
		personnelHandler := personnelfeature.NewHandler(db, s.audit, appCfg.OnboardingSteps, logger)
		api.Mount("/personnel", personnelfeature.Routes(personnelHandler, sessionMgr))

		departmentsHandler := departmentsfeature.NewHandler(db, s.audit, logger)
		api.Mount("/departments", departmentsfeature.Routes(departmentsHandler, sessionMgr))

		// Work tracking
		projectsHandler := projectsfeature.NewHandler(db, s.audit, s.linear, logger)
		api.Mount("/projects", projectsfeature.Routes(projectsHandler, sessionMgr))
		api.Mount("/tasks", projectsfeature.TaskRoutes(projectsHandler, sessionMgr))

		timeHandler := timeentriesfeature.NewHandler(db, s.audit, logger)
		api.Mount("/time-entries", timeentriesfeature.Routes(timeHandler, sessionMgr))

		// Linear integration
		linearHandler := linearfeature.NewHandler(db, s.audit, s.linear, appCfg.LinearWebhookSecret, logger)
		api.Mount("/linear", linearfeature.Routes(linearHandler, sessionMgr))

		// Dashboards and audit
		dashboardHandler := dashboardfeature.NewHandler(db, logger)
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

		auditHandler := auditlogfeature.NewHandler(db, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))
	})

	return r, nil
}
