package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/mzilka/tripbooker/internal/domain"
)

type stubReader struct {
	messages []kafkaGo.Message
}

func (r *stubReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	if len(r.messages) == 0 {
		return kafkaGo.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *stubReader) Close() error { return nil }

func testConsumer(messages ...kafkaGo.Message) *Consumer {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Consumer{reader: &stubReader{messages: messages}, logger: logger}
}

func purchaseMessage(t *testing.T, event PurchaseEvent) kafkaGo.Message {
	t.Helper()
	value, err := json.Marshal(event)
	assert.NoError(t, err)
	return kafkaGo.Message{Key: []byte(event.SagaID), Value: value}
}

func TestConsumer_ConsumePurchases_DeliversInOrder(t *testing.T) {
	first := PurchaseEvent{SagaID: "saga-1", Redirect: domain.RedirectTickets, Email: "rider@example.com"}
	second := PurchaseEvent{SagaID: "saga-2", Redirect: domain.RedirectCart}
	consumer := testConsumer(purchaseMessage(t, first), purchaseMessage(t, second))

	var seen []string
	err := consumer.ConsumePurchases(context.Background(), func(ctx context.Context, event PurchaseEvent) error {
		seen = append(seen, event.SagaID)
		return nil
	})

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"saga-1", "saga-2"}, seen)
}

func TestConsumer_ConsumePurchases_SkipsUndecodablePayload(t *testing.T) {
	good := PurchaseEvent{SagaID: "saga-1", Redirect: domain.RedirectTickets}
	consumer := testConsumer(
		kafkaGo.Message{Key: []byte("saga-0"), Value: []byte("not json")},
		purchaseMessage(t, good),
	)

	var seen []string
	err := consumer.ConsumePurchases(context.Background(), func(ctx context.Context, event PurchaseEvent) error {
		seen = append(seen, event.SagaID)
		return nil
	})

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"saga-1"}, seen)
}

func TestConsumer_ConsumePurchases_StopsOnHandlerError(t *testing.T) {
	handlerErr := errors.New("mail gateway down")
	consumer := testConsumer(
		purchaseMessage(t, PurchaseEvent{SagaID: "saga-1"}),
		purchaseMessage(t, PurchaseEvent{SagaID: "saga-2"}),
	)

	calls := 0
	err := consumer.ConsumePurchases(context.Background(), func(ctx context.Context, event PurchaseEvent) error {
		calls++
		return handlerErr
	})

	assert.ErrorIs(t, err, handlerErr)
	assert.Equal(t, 1, calls)
}
