package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"matchbook/internal/metrics"
)

// Publisher publishes domain events (order.accepted, order.cancelled,
// trade.executed) to a RabbitMQ topic exchange.
//
// The matching engine itself never touches the wire; the server wires the
// manager's callbacks to this publisher, keeping all I/O outside the book.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	confirms <-chan amqp.Confirmation
	metrics  *metrics.Metrics
}

// Routing keys for published events.
const (
	RouteOrderAccepted  = "order.accepted"
	RouteOrderCancelled = "order.cancelled"
	RouteTradeExecuted  = "trade.executed"
)

// NewPublisher initializes a RabbitMQ publisher with the given topic
// exchange. Publisher confirms are enabled so lost messages surface in the
// logs rather than disappearing silently.
func NewPublisher(amqpURL, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	var confirms <-chan amqp.Confirmation
	if err := ch.Confirm(false); err == nil {
		confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 64))
	} else {
		log.Printf("⚠️ Publisher confirms unavailable: %v", err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		confirms: confirms,
	}, nil
}

// SetMetrics attaches the metrics sink. Optional.
func (p *Publisher) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Publish sends an event with the given routing key. Each message carries a
// unique id so consumers can deduplicate redeliveries.
func (p *Publisher) Publish(routingKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", routingKey, err)
	}

	err = p.channel.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.New().String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", routingKey, err)
	}

	if p.confirms != nil {
		select {
		case confirm := <-p.confirms:
			if !confirm.Ack {
				return fmt.Errorf("broker nacked %s event", routingKey)
			}
		case <-time.After(5 * time.Second):
			return fmt.Errorf("timed out waiting for confirm of %s event", routingKey)
		}
	}

	if p.metrics != nil {
		p.metrics.RecordMQPublished(p.exchange, routingKey)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
