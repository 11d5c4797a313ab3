package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/middleware"
	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/pkg/logger"
	"github.com/hellas-direct/intake-assistant/pkg/metrics"
)

const (
	liveWriteWait = 10 * time.Second
	livePongWait  = 60 * time.Second
	livePingEvery = (livePongWait * 9) / 10
	liveBuffer    = 64
)

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// EventSource delivers incident events to live subscribers.
type EventSource interface {
	Available() bool
	Subscribe(ctx context.Context, fn func(model.IncidentEvent)) error
}

// LiveHandler relays incident lifecycle events to dashboard websockets.
type LiveHandler struct {
	events EventSource
	logger *logger.Logger
}

// NewLiveHandler creates a new live feed handler. events may be nil.
func NewLiveHandler(events EventSource, log *logger.Logger) *LiveHandler {
	return &LiveHandler{
		events: events,
		logger: log,
	}
}

type liveMessage struct {
	Type  string               `json:"type"`
	Event *model.IncidentEvent `json:"event,omitempty"`
}

// Serve handles GET /api/v1/incidents/live
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h.events == nil || !h.events.Available() {
		writeError(w, http.StatusServiceUnavailable, "live feed unavailable")
		return
	}

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := h.logger.With(
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		zap.String("user_id", middleware.GetUserID(r.Context())),
	)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	metrics.IncrementLiveConnections()
	defer metrics.DecrementLiveConnections()

	if err := conn.SetReadDeadline(time.Now().Add(livePongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	out := make(chan liveMessage, liveBuffer)
	err = h.events.Subscribe(ctx, func(e model.IncidentEvent) {
		select {
		case out <- liveMessage{Type: "event", Event: &e}:
		default:
			log.Warn("live feed client too slow, dropping event", zap.String("incident_id", e.IncidentID))
		}
	})
	if err != nil {
		log.Error("failed to subscribe to incident events", zap.Error(err))
		_ = conn.WriteJSON(liveMessage{Type: "error"})
		return
	}
	if err := conn.WriteJSON(liveMessage{Type: "subscribed"}); err != nil {
		return
	}

	// Reader: the dashboard sends nothing, but reads are needed to process
	// pongs and notice the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("live feed client disconnected")
			return
		case msg := <-out:
			if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
