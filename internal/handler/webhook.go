// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/flow"
	"github.com/hellas-direct/intake-assistant/internal/middleware"
	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
)

const (
	msgBadRequest     = "Λάθος αίτημα."
	msgMissingTag     = "Λάθος αίτημα. Δεν βρέθηκε το tag του fulfillment."
	msgMissingSession = "Λάθος αίτημα. Δεν βρέθηκαν πληροφορίες session."
)

// WebhookHandler serves the dialogue service fulfillment webhook.
type WebhookHandler struct {
	flow   Stepper
	logger *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(stepper Stepper, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		flow:   stepper,
		logger: log,
	}
}

// Handle handles POST /webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.WebhookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("malformed webhook body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, model.NewWebhookResponse([]string{msgBadRequest}, nil))
		return
	}

	tag := req.Tag()
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, model.NewWebhookResponse([]string{msgMissingTag}, nil))
		return
	}
	sessionID := req.Session()
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeJSON(w, http.StatusBadRequest, model.NewWebhookResponse([]string{msgMissingSession}, nil))
		return
	}

	reply := h.flow.HandleStep(ctx, flow.Turn{
		Tag:           tag,
		SessionID:     sessionID,
		Text:          req.Utterance(),
		LanguageCode:  req.LanguageCode,
		Params:        req.Parameters(),
		CorrelationID: middleware.GetCorrelationID(ctx),
	})

	writeJSON(w, http.StatusOK, model.NewWebhookResponse(reply.Messages, reply.Params))
}

// Banner handles GET /webhook
func (h *WebhookHandler) Banner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Hellas Direct intake webhook is running",
	})
}
