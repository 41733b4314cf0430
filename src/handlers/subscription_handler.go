package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/model"
	"github.com/username/tidyguru/backend/src/security"
	"github.com/username/tidyguru/backend/src/services"
	"github.com/username/tidyguru/backend/src/utils"
)

const (
	whopSignatureHeader = "X-Whop-Signature"
	maxWebhookBodyBytes = 1 << 20
)

type SubscriptionHandler struct {
	subscriptionService services.SubscriptionService
	webhookSecret       string
}

func NewSubscriptionHandler(subscriptionService services.SubscriptionService, webhookSecret string) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		webhookSecret:       webhookSecret,
	}
}

type syncRequest struct {
	MembershipID string `json:"membershipId"`
}

func (h *SubscriptionHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	status, err := h.subscriptionService.GetStatus(r.Context(), userID, GetUserEmailFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err, "loading subscription")
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

func (h *SubscriptionHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	var req syncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	membershipID := strings.TrimSpace(req.MembershipID)
	if membershipID == "" {
		utils.SendJSONError(w, "membershipId is required", http.StatusBadRequest)
		return
	}

	sub, err := h.subscriptionService.Sync(r.Context(), userID, membershipID)
	if err != nil {
		if errors.Is(err, services.ErrMembershipInvalid) {
			logger.FromContext(r.Context()).Warn("Membership sync rejected", "userID", userID, "membershipID", membershipID, "error", err)
			utils.SendJSONError(w, services.ErrMembershipInvalid.Error(), http.StatusPaymentRequired)
			return
		}
		handleServiceError(w, r, err, "syncing subscription")
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}

func (h *SubscriptionHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.subscriptionService.Cancel(r.Context(), userID); err != nil {
		if errors.Is(err, model.ErrSubscriptionNotFound) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		handleServiceError(w, r, err, "cancelling subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleWhopWebhook verifies the signature over the raw body before decoding the event.
func (h *SubscriptionHandler) HandleWhopWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	signature := r.Header.Get(whopSignatureHeader)
	if signature == "" {
		log.Warn("Whop webhook without signature")
		utils.SendJSONError(w, "No signature", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.SendJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if h.webhookSecret != "" {
		if err := security.VerifyWebhookSignature(body, signature, h.webhookSecret); err != nil {
			log.Warn("Invalid Whop webhook signature", "bodyLength", len(body), "error", err)
			utils.SendJSONError(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
	} else {
		log.Warn("WHOP_WEBHOOK_SECRET not set, skipping signature verification")
	}

	var event services.WhopWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.SendJSONError(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	if err := h.subscriptionService.HandleWebhook(r.Context(), &event); err != nil {
		log.Error("Webhook processing failed", "action", event.Action, "membershipID", event.Data.ID, "error", err)
		utils.SendJSONError(w, "Webhook processing failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"received": true})
}
