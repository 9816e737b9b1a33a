package messaging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"

	"matchbook/internal/metrics"
	"matchbook/internal/middleware"
	"matchbook/internal/models"
	"matchbook/internal/store"
)

const (
	queueName   = "matchbook.journal"
	dlxExchange = "matchbook.dlx"
	dlqName     = "matchbook.journal.dlq"
)

// Consumer drains engine events off RabbitMQ and journals them to Postgres.
// This is the async persistence path: the matching engine stays purely
// computational while durability happens behind the broker.
//
// Reliability:
//   - message IDs are deduplicated through the store, so redeliveries are
//     idempotent
//   - database writes run behind a circuit breaker; while the breaker is
//     open, deliveries are nacked back to the broker for redelivery
//   - messages that fail repeatedly are dead-lettered for inspection
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	pg      *store.PostgresStore
	dedup   *store.DedupStore
	breaker *middleware.CircuitBreaker
	metrics *metrics.Metrics
	workers int

	wg   sync.WaitGroup
	done chan struct{}
}

func NewConsumer(amqpURL string, pg *store.PostgresStore, workers int) (*Consumer, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(workers*2, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Consumer{
		conn:    conn,
		channel: ch,
		pg:      pg,
		dedup:   store.NewDedupStore(pg.GetDB(), nil),
		breaker: middleware.NewCircuitBreaker(nil),
		workers: workers,
		done:    make(chan struct{}),
	}, nil
}

// SetMetrics attaches the metrics sink. Optional.
func (c *Consumer) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Start declares the queue (with its dead-letter exchange), binds it to the
// event exchange, and launches the worker pool.
func (c *Consumer) Start(exchange string) error {
	if err := c.channel.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring dead-letter exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring dead-letter queue: %w", err)
	}
	if err := c.channel.QueueBind(dlqName, dlqName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("binding dead-letter queue: %w", err)
	}

	_, err := c.channel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    dlxExchange,
			"x-dead-letter-routing-key": dlqName,
		},
	)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	for _, key := range []string{RouteOrderAccepted, RouteOrderCancelled, RouteTradeExecuted} {
		if err := c.channel.QueueBind(queueName, key, exchange, false, nil); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	deliveries, err := c.channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("starting consume: %w", err)
	}

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(deliveries)
	}
	return nil
}

func (c *Consumer) worker(deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(d)
		}
	}
}

func (c *Consumer) handle(d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if d.MessageId != "" {
		processed, err := c.dedup.IsProcessed(ctx, d.MessageId)
		if err != nil {
			log.Printf("⚠️ Dedup check failed for %s: %v", d.MessageId, err)
		} else if processed {
			d.Ack(false)
			return
		}
	}

	err := c.breaker.Execute(func() error {
		return c.journal(ctx, d.RoutingKey, d.Body)
	})
	if err != nil {
		if d.Redelivered {
			// Second failure: dead-letter instead of looping forever.
			log.Printf("⚠️ Dead-lettering %s message: %v", d.RoutingKey, err)
			d.Nack(false, false)
		} else {
			d.Nack(false, true)
		}
		return
	}

	if d.MessageId != "" {
		if err := c.dedup.MarkProcessed(ctx, d.MessageId); err != nil {
			log.Printf("⚠️ Failed to mark %s processed: %v", d.MessageId, err)
		}
	}
	if c.metrics != nil {
		c.metrics.RecordMQConsumed(queueName)
	}
	d.Ack(false)
}

// journal routes an event body to the matching store write.
func (c *Consumer) journal(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case RouteOrderAccepted:
		var order models.Order
		if err := json.Unmarshal(body, &order); err != nil {
			return fmt.Errorf("decoding order event: %w", err)
		}
		return c.pg.SaveOrder(ctx, &order)

	case RouteOrderCancelled:
		var order models.Order
		if err := json.Unmarshal(body, &order); err != nil {
			return fmt.Errorf("decoding cancel event: %w", err)
		}
		return c.pg.UpdateOrderRemaining(ctx, order.ID, order.Remaining)

	case RouteTradeExecuted:
		var trade models.Trade
		if err := json.Unmarshal(body, &trade); err != nil {
			return fmt.Errorf("decoding trade event: %w", err)
		}
		return c.pg.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return c.pg.SaveTradeTx(ctx, tx, &trade)
		})

	default:
		log.Printf("⚠️ Unknown routing key %q, dropping", routingKey)
		return nil
	}
}

// Stop drains the worker pool and closes the connection.
func (c *Consumer) Stop() {
	close(c.done)
	c.channel.Close()
	c.wg.Wait()
	c.dedup.Stop()
	c.conn.Close()
}
