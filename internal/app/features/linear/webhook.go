// internal/app/features/linear/webhook.go
package linear

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dalemusser/hirehub/internal/app/system/apierr"
	"github.com/dalemusser/hirehub/internal/app/system/linear"
	"github.com/dalemusser/hirehub/internal/app/system/timeouts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxWebhookBytes bounds a single delivery body.
const maxWebhookBytes = 1 << 20

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/linear/webhook                                                     |
| Applies Issue and Project deliveries to the local mirror.                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	delivery := r.Header.Get(linear.DeliveryHeader)
	if delivery == "" {
		delivery = uuid.NewString()
	}
	log := h.Log.With(zap.String("delivery", delivery))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		apierr.Write(w, r, log, apierr.Validation("request body too large or unreadable"))
		return
	}

	if h.WebhookSecret != "" && !linear.VerifySignature(h.WebhookSecret, body, r.Header.Get(linear.SignatureHeader)) {
		log.Warn("linear webhook signature mismatch")
		apierr.Write(w, r, log, apierr.Unauthorized("invalid signature"))
		return
	}

	p, err := linear.ParseWebhook(body)
	if err != nil {
		apierr.Write(w, r, log, apierr.Validation("malformed webhook payload"))
		return
	}
	if !p.Fresh(time.Now(), linear.MaxWebhookAge) {
		log.Warn("stale linear webhook rejected", zap.Int64("webhook_timestamp", p.WebhookTimestamp))
		apierr.Write(w, r, log, apierr.Validation("stale webhook"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), log, "linear webhook")
	defer cancel()

	out, err := h.Sync.ApplyWebhook(ctx, p)
	if errors.Is(err, linear.ErrBadPayload) {
		apierr.Write(w, r, log, apierr.Validation("malformed webhook payload"))
		return
	}
	if err != nil {
		apierr.Write(w, r, log, err)
		return
	}
	apierr.WriteJSON(w, http.StatusOK, map[string]string{"outcome": string(out)})
}
