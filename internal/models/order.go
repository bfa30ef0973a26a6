package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

type PaymentStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}

	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// StatusesLeadingTo lists every status from which target is directly reachable.
func StatusesLeadingTo(target OrderStatus) []OrderStatus {
	var sources []OrderStatus

	for _, from := range []OrderStatus{OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled} {
		if from.CanTransitionTo(target) {
			sources = append(sources, from)
		}
	}

	return sources
}

// ShippingDetails is copied onto the order at placement and never edited afterwards.
type ShippingDetails struct {
	FirstName string `json:"first_name" validate:"required,max=255"`
	LastName  string `json:"last_name"  validate:"required,max=255"`
	Address1  string `json:"address1"   validate:"required,max=255"`
	Address2  string `json:"address2"   validate:"omitempty,max=255"`
	City      string `json:"city"       validate:"required,max=255"`
	State     string `json:"state"      validate:"required,max=255"`
	Zip       string `json:"zip"        validate:"required,max=20,zipcode"`
	Country   string `json:"country"    validate:"required,max=255"`
	Phone     string `json:"phone"      validate:"required,max=20,phone"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Options     LineOptions     `json:"options"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	PaymentIntentID string          `json:"payment_intent_id"`
	IdempotencyKey  string          `json:"-"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Shipping        ShippingDetails `json:"shipping"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}

	return total
}

// OrderDraft is everything the order store needs to turn the user's cart into an order.
type OrderDraft struct {
	UserID          uuid.UUID
	PaymentIntentID string
	IdempotencyKey  string
	PaymentMethod   string
	Currency        string
	AmountMinor     int64
	Shipping        ShippingDetails
	// ProductNames carries the name of every product re-resolved during reconciliation.
	ProductNames map[uuid.UUID]string
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required,oneof=pending processing completed cancelled"`
}
