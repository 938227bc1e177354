package kafka

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Notifier pushes booking telemetry through the producer without forcing a
// context onto the synchronous state-machine operations. Publish failures are
// logged and swallowed; telemetry never blocks a booking.
type Notifier struct {
	producer *Producer
	topic    string
	logger   *logrus.Logger
}

func NewNotifier(producer *Producer, topic string, logger *logrus.Logger) *Notifier {
	return &Notifier{producer: producer, topic: topic, logger: logger}
}

func (n *Notifier) Notify(key string, payload interface{}) {
	if n == nil || n.producer == nil || n.topic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.producer.Publish(ctx, n.topic, key, payload); err != nil {
		n.logger.WithError(err).WithField("topic", n.topic).Warn("failed to publish booking event")
	}
}
