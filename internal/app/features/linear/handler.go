// internal/app/features/linear/handler.go
package linear

import (
	"github.com/dalemusser/hirehub/internal/app/store/oauthstate"
	"github.com/dalemusser/hirehub/internal/app/system/auditlog"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// provider is the oauth_states provider key for Linear flows.
const provider = "linear"

// Handler serves the Linear connection endpoints and the inbound webhook.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	AuditLog *auditlog.Logger
	Sync     *linearsync.Service
	States   *oauthstate.Store

	// WebhookSecret enables Linear-Signature verification when non-empty.
	WebhookSecret string
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, sync *linearsync.Service, webhookSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:            db,
		Log:           logger,
		AuditLog:      audit,
		Sync:          sync,
		States:        oauthstate.New(db),
		WebhookSecret: webhookSecret,
	}
}
