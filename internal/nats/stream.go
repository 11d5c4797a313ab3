package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/hellas-direct/intake-assistant/internal/model"
	"github.com/hellas-direct/intake-assistant/pkg/metrics"
)

const (
	// StreamName is the name of the incident events stream.
	StreamName = "INCIDENTS"

	// SubjectPrefix is the prefix for all incident subjects.
	SubjectPrefix = "incident"
)

// StreamManager handles JetStream stream operations for incident events.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the incidents stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{AllEventsFilter()},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Incident lifecycle events from the intake flow",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an incident event.
func EventSubject(incidentID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, incidentID, eventType)
}

// AllEventsFilter matches every incident event.
func AllEventsFilter() string {
	return SubjectPrefix + ".>"
}

// Publish publishes an incident event to JetStream. It satisfies the flow
// package's event sink.
func (m *StreamManager) Publish(ctx context.Context, event model.IncidentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, EventSubject(event.IncidentID, event.Type), data); err != nil {
		metrics.RecordEventPublished(string(event.Type), "error")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RecordEventPublished(string(event.Type), "ok")
	return nil
}

// Subscribe delivers every incident event to fn until ctx is done. It uses a
// core subscription, so only events published while subscribed arrive.
func (m *StreamManager) Subscribe(ctx context.Context, fn func(model.IncidentEvent)) error {
	sub, err := m.client.Conn().Subscribe(AllEventsFilter(), func(msg *nats.Msg) {
		var event model.IncidentEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			m.client.logger.Warn("dropping malformed incident event",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}
		fn(event)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Available reports whether events can be published and consumed.
func (m *StreamManager) Available() bool {
	return m != nil && m.client.IsConnected()
}
