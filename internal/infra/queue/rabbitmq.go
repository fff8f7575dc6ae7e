package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName      = "ex.leadsync"
	EventsQueueName   = "q.leadsync.cycles"
	TriggerQueueName  = "q.leadsync.triggers"
	DLQName           = "q.leadsync.dlq"
	DLXName           = "ex.leadsync.dlx"
	CycleRoutingKey   = "leadsync.cycle.completed"
	TriggerRoutingKey = "leadsync.sync.requested"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, "#", DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	// Mensagem rejeitada vai para a DLX com a mesma routing key
	args := amqp.Table{"x-dead-letter-exchange": DLXName}

	bindings := map[string]string{
		EventsQueueName:  CycleRoutingKey,
		TriggerQueueName: TriggerRoutingKey,
	}
	for queue, key := range bindings {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
			return err
		}
		if err := ch.QueueBind(queue, key, ExchangeName, false, nil); err != nil {
			return err
		}
	}

	return nil
}

func (r *RabbitMQ) Close() {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}
