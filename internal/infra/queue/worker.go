package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// SyncRequest pede um ciclo fora do intervalo (ex.: botão no painel).
type SyncRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason,omitempty"`
}

// CycleRunner é implementado pelo SyncWorker.
type CycleRunner interface {
	RunOnce(ctx context.Context) error
}

// ErrBusy deve ser devolvido pelo runner quando já há um ciclo rodando.
var ErrBusy = errors.New("ciclo em andamento")

type TriggerConsumer struct {
	Channel *amqp.Channel
	Runner  CycleRunner
	IsBusy  func(error) bool
}

func NewTriggerConsumer(ch *amqp.Channel, runner CycleRunner, isBusy func(error) bool) *TriggerConsumer {
	return &TriggerConsumer{Channel: ch, Runner: runner, IsBusy: isBusy}
}

// Start consome a fila de gatilhos até o ctx ser cancelado.
func (c *TriggerConsumer) Start(ctx context.Context, queueName string) error {
	msgs, err := c.Channel.Consume(
		queueName,
		"",
		false, // ack manual
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	log.Printf(" [*] Aguardando pedidos de sincronização na fila '%s'", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("canal do RabbitMQ fechado")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle processa uma entrega e decide entre Ack e Nack.
func (c *TriggerConsumer) Handle(ctx context.Context, d amqp.Delivery) {
	log.Printf("📥 [TRIGGER] Pedido de sincronização recebido")

	var req SyncRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		log.Printf("❌ [TRIGGER] JSON inválido: %s", err)
		// Mensagem malformada: vai para a DLQ sem requeue
		_ = d.Nack(false, false)
		return
	}

	err := c.Runner.RunOnce(ctx)
	switch {
	case err == nil:
		log.Printf("✅ [TRIGGER] Ciclo pedido por '%s' concluído", req.RequestedBy)
		_ = d.Ack(false)
	case c.busy(err):
		// O ciclo em andamento já cobre o pedido
		log.Printf("⚠️ [TRIGGER] Ciclo já em andamento, pedido de '%s' descartado", req.RequestedBy)
		_ = d.Ack(false)
	default:
		log.Printf("❌ [TRIGGER] Ciclo falhou: %v", err)
		_ = d.Nack(false, false)
	}
}

func (c *TriggerConsumer) busy(err error) bool {
	if c.IsBusy != nil {
		return c.IsBusy(err)
	}
	return errors.Is(err, ErrBusy)
}
