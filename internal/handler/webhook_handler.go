package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"ba6-ai-server/internal/domain"
)

const maxWebhookBody = 64 << 10

// BillingEvents applies verified billing events to profiles.
type BillingEvents interface {
	ApplyCheckout(ctx context.Context, event domain.CheckoutCompleted) (domain.PlanTier, error)
	ApplySubscriptionChange(ctx context.Context, event domain.SubscriptionChanged) (domain.PlanTier, error)
}

type WebhookHandler struct {
	billing BillingEvents
	secret  string
	logger  domain.Logger
}

func NewWebhookHandler(billing BillingEvents, secret string, logger domain.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing: billing,
		secret:  secret,
		logger:  logger,
	}
}

// Stripe verifies the signature and applies checkout and subscription events.
// Other event types are acknowledged.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || h.billing == nil {
		h.logger.Error("Stripe webhook not configured", domain.ErrMissingCredentials)
		writeError(w, http.StatusInternalServerError, "Stripe webhook not configured.")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeError(w, http.StatusBadRequest, "Missing Stripe signature.")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body.")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		h.logger.Warn("Stripe signature verification failed", "error", err.Error())
		writeError(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session payload.")
			return
		}
		plan, err := h.billing.ApplyCheckout(r.Context(), checkoutFromSession(&session))
		if err != nil {
			writeAppError(w, err)
			return
		}
		h.logger.Info("Checkout applied", "event_id", event.ID, "plan", plan)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid subscription payload.")
			return
		}
		change := subscriptionChange(&sub)
		change.Deleted = event.Type == "customer.subscription.deleted"
		plan, err := h.billing.ApplySubscriptionChange(r.Context(), change)
		if err != nil {
			writeAppError(w, err)
			return
		}
		h.logger.Info("Subscription change applied", "event_id", event.ID, "type", event.Type, "plan", plan)

	default:
		h.logger.Debug("Ignoring Stripe event", "type", event.Type)
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func checkoutFromSession(session *stripe.CheckoutSession) domain.CheckoutCompleted {
	event := domain.CheckoutCompleted{
		UserID:    session.Metadata["userId"],
		PlanLabel: session.Metadata["plan"],
	}
	if event.UserID == "" {
		event.UserID = session.ClientReferenceID
	}
	if session.Customer != nil {
		event.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		event.SubscriptionID = session.Subscription.ID
	}
	return event
}

func subscriptionChange(sub *stripe.Subscription) domain.SubscriptionChanged {
	change := domain.SubscriptionChanged{
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
	}
	if sub.Customer != nil {
		change.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		change.PriceID = sub.Items.Data[0].Price.ID
	}
	return change
}
