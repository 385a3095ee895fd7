// internal/app/features/communications/handler.go
package communications

import (
	"context"
	"net/http"

	applicationstore "github.com/dalemusser/hirehub/internal/app/store/applications"
	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/authz"
	"github.com/dalemusser/hirehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

// thread resolves the application in the URL and who is calling.
func (h *Handler) thread(ctx context.Context, r *http.Request) (*models.Application, string, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return nil, "", apierr.Validation("invalid application id")
	}
	app, err := applicationstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	caller, err := authz.ApplicationCaller(r, app)
	if err != nil {
		return nil, "", err
	}
	return app, caller, nil
}
