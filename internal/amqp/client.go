// Package amqp fans out transaction change notifications between processes
// sharing one database.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/storage"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes to and consumes from a fanout exchange. Every consumer
// gets its own exclusive queue, so each process sees every change.
type Client struct {
	url          string
	exchangeName string
	logger       *log.Logger
	metrics      *metrics.Metrics

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  atomic.Int64 // unix nanos
}

var _ storage.Notifier = (*Client)(nil)

type Option func(*Client)

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAMQP) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient dials url and declares the exchange.
func NewClient(url, exchangeName string, opts ...Option) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		logger:       log.Default().WithComponent(log.ComponentAMQP),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	err := c.connectLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declareExchange(channel, c.exchangeName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func declareExchange(ch *amqp091.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,     // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// resetLocked drops a broken connection so the next call redials.
func (c *Client) resetLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// NotifyChange publishes a committed write.
func (c *Client) NotifyChange(ctx context.Context, ch storage.Change) error {
	return c.PublishChange(ctx, NewChangeMessage(ch))
}

// PublishChange publishes msg. It fails fast while the circuit breaker is
// open.
func (c *Client) PublishChange(ctx context.Context, msg *ChangeMessage) error {
	if c.isCircuitOpen() {
		return errors.New("publish change: circuit breaker is open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		if err := c.connectLocked(); err != nil {
			c.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key, ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   msg.Timestamp,
			Body:        body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	c.metrics.Change("out")

	c.logger.DebugContext(ctx, "Published change message",
		log.FieldOwnerID, msg.OwnerID,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldOperation, msg.Op)
	return nil
}

// Consume delivers every change published on the exchange to handler until
// ctx is done, redialing with backoff when the connection drops. Malformed
// messages are dropped; handler errors are logged and acknowledged, since a
// redelivered refresh hint is no more useful than the next one.
func (c *Client) Consume(ctx context.Context, handler func(*ChangeMessage) error) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Change consumer interrupted, retrying",
			log.FieldError, err,
			"retry_in", wait.String())

		c.mu.Lock()
		c.resetLocked()
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(*ChangeMessage) error, connected func()) error {
	c.mu.Lock()
	if c.conn == nil || c.conn.IsClosed() {
		if err := c.connectLocked(); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	conn := c.conn
	c.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack (we want manual ack)
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()

	c.logger.InfoContext(ctx, "Started consuming change messages", "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			msg, err := ChangeMessageFromJSON(delivery.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}
			c.metrics.Change("in")

			if err := handler(msg); err != nil {
				c.logger.ErrorContext(ctx, "Failed to handle change message",
					log.FieldError, err,
					log.FieldOwnerID, msg.OwnerID)
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		if time.Since(time.Unix(0, c.lastFailure.Load())) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.lastFailure.Store(time.Now().UnixNano())
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
