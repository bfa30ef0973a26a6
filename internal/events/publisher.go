package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/config"
	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const EventTypeOrderPlaced = "order.placed"

type OrderPlacedItem struct {
	ProductID   uuid.UUID          `json:"product_id"`
	ProductName string             `json:"product_name"`
	Quantity    int                `json:"quantity"`
	Price       decimal.Decimal    `json:"price"`
	Options     models.LineOptions `json:"options,omitempty"`
}

type OrderPlaced struct {
	OrderID         uuid.UUID         `json:"order_id"`
	UserID          uuid.UUID         `json:"user_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Total           decimal.Decimal   `json:"total"`
	Currency        string            `json:"currency"`
	Items           []OrderPlacedItem `json:"items"`
	PlacedAt        time.Time         `json:"placed_at"`
}

func NewOrderPlaced(order *models.Order) OrderPlaced {
	items := make([]OrderPlacedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderPlacedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Options:     item.Options,
		})
	}

	return OrderPlaced{
		OrderID:         order.ID,
		UserID:          order.UserID,
		PaymentIntentID: order.PaymentIntentID,
		Total:           order.Total,
		Currency:        order.Currency,
		Items:           items,
		PlacedAt:        order.CreatedAt,
	}
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
	Close() error
}

type kafkaPublisher struct {
	writer MessageWriter
}

// NewPublisher returns a Kafka-backed publisher, or one that drops every
// event when Kafka is disabled.
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return noopPublisher{}
	}

	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OrderTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	})
}

func NewPublisherWithWriter(w MessageWriter) Publisher {
	return &kafkaPublisher{writer: w}
}

// PublishOrderPlaced keys the message by order id so every event of one order lands on the same partition.
func (p *kafkaPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	payload, err := json.Marshal(NewOrderPlaced(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPlaced)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type noopPublisher struct{}

func (noopPublisher) PublishOrderPlaced(context.Context, *models.Order) error { return nil }

func (noopPublisher) Close() error { return nil }
