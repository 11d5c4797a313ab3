package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/flow"
	"github.com/hellas-direct/intake-assistant/internal/middleware"
	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
)

// ChatHandler drives the flow from the web chat, where no dialogue service
// picks the step.
type ChatHandler struct {
	flow   Stepper
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(stepper Stepper, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		flow:   stepper,
		logger: log,
	}
}

// Send handles POST /api/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateChatMessage(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.Must(uuid.NewV7()).String()
	}

	params := req.Parameters
	if params == nil {
		params = model.Params{}
	}

	tag := req.Tag
	if tag == "" {
		tag = flow.NextStep(params)
	}
	params = flow.Fill(params, tag, req.Message)

	reply := h.flow.HandleStep(ctx, flow.Turn{
		Tag:           tag,
		SessionID:     sessionID,
		Text:          req.Message,
		Params:        params,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})

	merged := params.Merge(reply.Params)
	delete(merged, model.ParamWebhookError)
	if reply.Failed {
		h.logger.Warn("chat turn failed", zap.String("session_id", sessionID), zap.String("step", tag))
	} else {
		merged[model.ParamChatStep] = tag
	}

	writeJSON(w, http.StatusOK, &model.ChatResponse{
		Response:   strings.Join(reply.Messages, "\n\n"),
		Messages:   reply.Messages,
		SessionID:  sessionID,
		Tag:        tag,
		Parameters: merged,
	})
}
