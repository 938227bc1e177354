package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mzilka/tripbooker/internal/domain"
)

// ActionEvent mirrors one applied booking action. Suppressed no-op actions
// are not published.
type ActionEvent struct {
	Action    string           `json:"action"`
	Direction domain.Direction `json:"direction,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	At        time.Time        `json:"at"`
}

// PurchaseEvent is emitted on every terminal saga outcome.
type PurchaseEvent struct {
	SagaID   string             `json:"saga_id"`
	Redirect domain.Redirect    `json:"redirect"`
	Tickets  []domain.TicketRef `json:"tickets,omitempty"`
	Email    string             `json:"email,omitempty"`
	NewSeats int                `json:"new_seats"`
	At       time.Time          `json:"at"`
}

// UpsellEvent reports accepted and refused fare-class suggestions.
type UpsellEvent struct {
	Outcome   string           `json:"outcome"` // accepted or refused
	SeatClass domain.SeatClass `json:"seat_class,omitempty"`
	PriceDiff float64          `json:"price_diff,omitempty"`
	At        time.Time        `json:"at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
