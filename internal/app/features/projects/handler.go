// internal/app/features/projects/handler.go
package projects

import (
	"context"

	"github.com/dalemusser/hirehub/internal/app/system/auditlog"
	"github.com/dalemusser/hirehub/internal/app/system/linearsync"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves projects and their tasks. Sync mirrors saves to Linear.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	AuditLog *auditlog.Logger
	Sync     *linearsync.Service
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, sync *linearsync.Service, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		AuditLog: audit,
		Sync:     sync,
	}
}

// pushTask mirrors a saved task to Linear. Failures are recorded on the
// task by the sync service and never undo the local save.
func (h *Handler) pushTask(ctx context.Context, id primitive.ObjectID) {
	if h.Sync == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, linearsync.PushTimeout)
	defer cancel()
	if err := h.Sync.PushTask(ctx, id); err != nil {
		h.Log.Debug("task push deferred to retry", zap.String("task_id", id.Hex()), zap.Error(err))
	}
}

// pushProject mirrors an already linked project after a local update.
func (h *Handler) pushProject(ctx context.Context, id primitive.ObjectID) {
	if h.Sync == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, linearsync.PushTimeout)
	defer cancel()
	if err := h.Sync.PushProject(ctx, id); err != nil {
		h.Log.Debug("project push deferred to retry", zap.String("project_id", id.Hex()), zap.Error(err))
	}
}
