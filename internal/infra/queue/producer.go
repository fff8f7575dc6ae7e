package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/xavierca1/leadsync/internal/entity"
)

// CycleEvent é publicado ao fim de cada ciclo (sucesso ou falha).
type CycleEvent struct {
	SyncRunID    uuid.UUID         `json:"sync_run_id"`
	SourceID     string            `json:"source_id"`
	Status       entity.SyncStatus `json:"status"`
	Processed    int               `json:"processed"`
	New          int               `json:"new"`
	Removed      int               `json:"removed"`
	Unchanged    int               `json:"unchanged"`
	Failed       int               `json:"failed"`
	DurationMS   int64             `json:"duration_ms"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Attempts     int               `json:"attempts"`
	CRM          *CRMSummary       `json:"crm,omitempty"`
	FinishedAt   time.Time         `json:"finished_at"`
}

type CRMSummary struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Partial    int `json:"partial"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

func NewCycleEvent(run *entity.SyncRunResult, attempts int) CycleEvent {
	return CycleEvent{
		SyncRunID:    run.ID,
		SourceID:     run.SourceID,
		Status:       run.Status,
		Processed:    run.Processed,
		New:          run.New,
		Removed:      run.Removed,
		Unchanged:    run.Unchanged,
		Failed:       run.Failed,
		DurationMS:   run.Duration.Milliseconds(),
		ErrorMessage: run.ErrorMessage,
		Attempts:     attempts,
		FinishedAt:   run.FinishedAt,
	}
}

type EventPublisher interface {
	PublishCycleCompleted(ctx context.Context, event CycleEvent) error
}

// Channel é o subconjunto de *amqp.Channel usado para publicar.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Channel
}

func NewProducer(ch Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishCycleCompleted(ctx context.Context, event CycleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		CycleRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.SyncRunID.String(),
			Timestamp:    event.FinishedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}

	return nil
}
