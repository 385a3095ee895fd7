// internal/app/features/personnel/handler.go
package personnel

import (
	"github.com/dalemusser/hirehub/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultOnboardingSteps seeds the checklist of newly converted personnel
// when no steps are configured.
var DefaultOnboardingSteps = []string{
	"Sign employment contract",
	"Complete tax forms",
	"Set up accounts",
	"Receive equipment",
	"Meet the team",
}

type Handler struct {
	DB              *mongo.Database
	Log             *zap.Logger
	AuditLog        *auditlog.Logger
	OnboardingSteps []string
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, onboardingSteps []string, logger *zap.Logger) *Handler {
	if len(onboardingSteps) == 0 {
		onboardingSteps = DefaultOnboardingSteps
	}
	return &Handler{
		DB:              db,
		Log:             logger,
		AuditLog:        audit,
		OnboardingSteps: onboardingSteps,
	}
}
