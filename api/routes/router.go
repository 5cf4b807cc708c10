package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	webhookcontrollers "github.com/buildmart/storefront-client/api/controllers/webhooks"
	"github.com/buildmart/storefront-client/api/middleware"
	"github.com/buildmart/storefront-client/pkg/config"
	"github.com/buildmart/storefront-client/pkg/logger"
)

// NewRouter builds the webhook listener surface: a health probe and the
// payment gateway callback.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	notifier webhookcontrollers.PaymentNotifier,
	guard *webhookcontrollers.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", healthz(cfg))
	r.Post("/webhooks/cashfree", webhookcontrollers.CashfreeWebhook(notifier, guard, cfg.Cashfree.WebhookSecret, logg))

	return r
}

func healthz(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}
