package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageReader is the slice of *kafka.Reader the consumer drives.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads purchase events off the saga's outcome topic. Payloads that
// do not decode are logged and skipped; the reservation already happened, so
// one bad message must not wedge the group.
type Consumer struct {
	reader messageReader
	logger *logrus.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ConsumePurchases blocks, feeding decoded purchase events to the handler in
// arrival order. It returns on read failure, context cancellation or the
// first handler error.
func (c *Consumer) ConsumePurchases(ctx context.Context, handler func(context.Context, PurchaseEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var event PurchaseEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.WithError(err).WithField("key", string(msg.Key)).Warn("skipping undecodable purchase event")
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}
