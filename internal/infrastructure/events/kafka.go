package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"shipwise-backend/internal/domain"
	"shipwise-backend/pkg/logger"
	"shipwise-backend/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// StatusPublisher publishes order status changes made by this service,
// keyed by order id so one order's events stay in partition order.
type StatusPublisher struct {
	writer *kafka.Writer
}

func NewStatusPublisher(brokers []string, topic string) *StatusPublisher {
	return &StatusPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (p *StatusPublisher) PublishStatusChange(ctx context.Context, change domain.OrderStatusChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(change.OrderID),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (p *StatusPublisher) Close() error {
	return p.writer.Close()
}

// StatusChangeHandler receives order status changes made by the storefront.
type StatusChangeHandler interface {
	OnStatusChange(ctx context.Context, change domain.OrderStatusChange) error
}

// OrderEventConsumer feeds storefront status-change events into a handler.
// Messages are committed after handling; a handler error is logged and the
// message is not redelivered.
type OrderEventConsumer struct {
	reader  *kafka.Reader
	handler StatusChangeHandler
	timeout time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrderEventConsumer(brokers []string, topic, groupID string, handler StatusChangeHandler, timeout time.Duration) *OrderEventConsumer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OrderEventConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		handler: handler,
		timeout: timeout,
	}
}

func (c *OrderEventConsumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

func (c *OrderEventConsumer) run(ctx context.Context) {
	defer c.wg.Done()
	log := logger.WithComponent("order_event_consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Kafka fetch failed")
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("Kafka commit failed")
		}
	}
}

func (c *OrderEventConsumer) handle(ctx context.Context, msg kafka.Message) {
	log := logger.WithComponent("order_event_consumer")

	var change domain.OrderStatusChange
	if err := json.Unmarshal(msg.Value, &change); err != nil || change.OrderID == "" {
		metrics.OrderEventsConsumedTotal.WithLabelValues("invalid").Inc()
		log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Undecodable order event skipped")
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.handler.OnStatusChange(hctx, change); err != nil {
		metrics.OrderEventsConsumedTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).
			Str("order_id", change.OrderID).
			Str("before", string(change.Before)).
			Str("after", string(change.After)).
			Msg("Order event handling failed")
		return
	}
	metrics.OrderEventsConsumedTotal.WithLabelValues("ok").Inc()
}

// Shutdown stops consuming and closes the reader.
func (c *OrderEventConsumer) Shutdown() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}
