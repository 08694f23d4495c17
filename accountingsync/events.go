package accountingsync

import (
	"context"
	"time"

	"github.com/mmdatafocus/mailroom_backend/config"
)

const syncCompletedEventType = "accounting.sync.completed"

type SyncCompletedEvent struct {
	IntegrationId    string    `json:"integration_id"`
	TenantId         string    `json:"tenant_id"`
	ServiceName      string    `json:"service_name"`
	Operation        string    `json:"operation"`
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	RecordsProcessed int       `json:"records_processed"`
	ErrorCount       int       `json:"error_count"`
	ExecutionTimeMs  int64     `json:"execution_time_ms"`
	CorrelationId    string    `json:"correlation_id,omitempty"`
	FinishedAt       time.Time `json:"finished_at"`
}

type EventPublisher interface {
	PublishSyncCompleted(ctx context.Context, evt SyncCompletedEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishSyncCompleted(context.Context, SyncCompletedEvent) error { return nil }

type pubsubPublisher struct {
	topic string
}

// NewEventPublisher publishes to Pub/Sub when ACCOUNTING_SYNC_PUBLISH_EVENTS is on.
func NewEventPublisher() EventPublisher {
	if !config.PublishSyncEvents() {
		return noopPublisher{}
	}
	return &pubsubPublisher{topic: config.SyncEventsTopic()}
}

func (p *pubsubPublisher) PublishSyncCompleted(ctx context.Context, evt SyncCompletedEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := config.PublishJSON(ctx, p.topic, evt, map[string]string{
		"event_type":     syncCompletedEventType,
		"integration_id": evt.IntegrationId,
		"operation":      evt.Operation,
	})
	return err
}
