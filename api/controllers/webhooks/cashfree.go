package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/buildmart/storefront-client/api/responses"
	"github.com/buildmart/storefront-client/internal/storage"
	pkgerrors "github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
)

const (
	signatureHeader = "x-webhook-signature"
	timestampHeader = "x-webhook-timestamp"

	eventPaymentSuccess = "PAYMENT_SUCCESS_WEBHOOK"
	eventPaymentFailed  = "PAYMENT_FAILED_WEBHOOK"
	eventUserDropped    = "PAYMENT_USER_DROPPED_WEBHOOK"
)

// PaymentNotifier receives payment resolutions pushed by the gateway.
// The payments poller satisfies it.
type PaymentNotifier interface {
	NotifyPaid(orderID string)
	NotifyFailed(orderID string)
}

// CashfreeEvent is the subset of the gateway webhook payload the
// listener acts on.
type CashfreeEvent struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CFPaymentID json.Number `json:"cf_payment_id"`
		} `json:"payment"`
	} `json:"data"`
}

// IdempotencyGuard deduplicates webhook deliveries through the local
// key-value store.
type IdempotencyGuard struct {
	store storage.Store
}

// NewIdempotencyGuard builds a guard over the given store.
func NewIdempotencyGuard(store storage.Store) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &IdempotencyGuard{store: store}, nil
}

// CheckAndMark reports whether the event was seen before and records it.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := "webhook.cashfree." + eventID
	if _, err := g.store.Get(ctx, key); err == nil {
		return true, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	return false, g.store.Set(ctx, key, "processed")
}

// CashfreeWebhook handles the gateway's payment notifications and feeds
// them to the poller as a fast path ahead of the next poll tick.
func CashfreeWebhook(notifier PaymentNotifier, guard *IdempotencyGuard, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if notifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment notifier unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		timestamp := r.Header.Get(timestampHeader)
		signature := r.Header.Get(signatureHeader)
		if signature == "" || timestamp == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook signature missing"))
			return
		}
		if !validateCashfreeSignature(payload, timestamp, secret, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid webhook signature"))
			return
		}

		var event CashfreeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode event"))
			return
		}
		orderID := storefrontOrderID(event.Data.Order.OrderID)
		if orderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event carried no order id"))
			return
		}

		eventID := event.Data.Payment.CFPaymentID.String()
		if eventID == "" || eventID == "0" {
			eventID = event.Type + ":" + event.Data.Order.OrderID + ":" + timestamp
		}
		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		switch event.Type {
		case eventPaymentSuccess:
			notifier.NotifyPaid(orderID)
		case eventPaymentFailed, eventUserDropped:
			notifier.NotifyFailed(orderID)
		default:
			if logg != nil {
				logg.Info(logg.WithField(ctx, "event_type", event.Type), "ignoring unhandled webhook event")
			}
		}

		if logg != nil {
			logg.Info(logg.WithOrderID(ctx, orderID), fmt.Sprintf("cashfree event %s processed", event.Type))
		}
		responses.WriteSuccess(w, nil)
	}
}

// validateCashfreeSignature checks the gateway's base64 HMAC-SHA256 of
// timestamp concatenated with the raw payload.
func validateCashfreeSignature(payload []byte, timestamp, secret, header string) bool {
	if secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// storefrontOrderID strips the registration suffix appended when the
// order was handed to the gateway.
func storefrontOrderID(gatewayOrderID string) string {
	idx := strings.LastIndex(gatewayOrderID, "-")
	if idx <= 0 {
		return gatewayOrderID
	}
	return gatewayOrderID[:idx]
}
