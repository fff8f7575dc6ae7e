package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/leadsync/internal/entity"
	"github.com/xavierca1/leadsync/internal/infra/queue"
)

// MockChannel
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

// MockRunner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunOnce(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// fakeAck registra a decisão tomada sobre a entrega.
type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *fakeAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestPublishCycleCompleted(t *testing.T) {
	run := entity.NewSyncRunResult("sheet-1", []int64{0})
	run.Processed, run.New, run.Removed = 10, 2, 1
	run.Duration = 1500 * time.Millisecond
	run.FinishedAt = time.Now()

	ch := new(MockChannel)
	ch.On("PublishWithContext", mock.Anything, queue.ExchangeName, queue.CycleRoutingKey, false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var ev queue.CycleEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				return false
			}
			return msg.DeliveryMode == amqp.Persistent &&
				msg.MessageId == run.ID.String() &&
				ev.SyncRunID == run.ID &&
				ev.New == 2 && ev.DurationMS == 1500 && ev.Attempts == 1
		})).Return(nil)

	err := queue.NewProducer(ch).PublishCycleCompleted(context.Background(), queue.NewCycleEvent(run, 1))

	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestPublishCycleCompletedError(t *testing.T) {
	ch := new(MockChannel)
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(amqp.ErrClosed)

	err := queue.NewProducer(ch).PublishCycleCompleted(context.Background(), queue.CycleEvent{SyncRunID: uuid.New()})

	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func delivery(body string) (amqp.Delivery, *fakeAck) {
	ack := &fakeAck{}
	return amqp.Delivery{Acknowledger: ack, Body: []byte(body)}, ack
}

func TestTriggerConsumerRunsCycle(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunOnce", mock.Anything).Return(nil)
	d, ack := delivery(`{"requested_by":"painel"}`)

	queue.NewTriggerConsumer(nil, runner, nil).Handle(context.Background(), d)

	assert.True(t, ack.acked)
	runner.AssertExpectations(t)
}

func TestTriggerConsumerBusyIsAcked(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunOnce", mock.Anything).Return(queue.ErrBusy)
	d, ack := delivery(`{"requested_by":"painel"}`)

	queue.NewTriggerConsumer(nil, runner, nil).Handle(context.Background(), d)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestTriggerConsumerFailureGoesToDLQ(t *testing.T) {
	runner := new(MockRunner)
	runner.On("RunOnce", mock.Anything).Return(errors.New("planilha fora do ar"))
	d, ack := delivery(`{"requested_by":"cron"}`)

	queue.NewTriggerConsumer(nil, runner, nil).Handle(context.Background(), d)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestTriggerConsumerRejectsMalformedJSON(t *testing.T) {
	runner := new(MockRunner)
	d, ack := delivery(`not json`)

	queue.NewTriggerConsumer(nil, runner, nil).Handle(context.Background(), d)

	assert.True(t, ack.nacked)
	runner.AssertNotCalled(t, "RunOnce", mock.Anything)
}
