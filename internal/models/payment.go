package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentStatusCreated   IntentStatus = "created"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusFailed    IntentStatus = "failed"
)

// PaymentIntentRecord remembers which gateway intent was issued for a caller's
// idempotency key, so a retried begin-checkout reuses it instead of opening a new authorization.
type PaymentIntentRecord struct {
	IntentID       string       `json:"intent_id"`
	IdempotencyKey string       `json:"-"`
	UserID         uuid.UUID    `json:"user_id"`
	CartID         uuid.UUID    `json:"cart_id"`
	AmountMinor    int64        `json:"amount_minor"`
	Currency       string       `json:"currency"`
	Status         IntentStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type BeginCheckoutRequest struct {
	Shipping       ShippingDetails `json:"shipping" validate:"required"`
	IdempotencyKey string          `json:"-"`
}

type PaymentIntentResponse struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	AmountMinor     int64           `json:"amount_minor"`
	Currency        string          `json:"currency"`
	Reused          bool            `json:"reused"`
}

type PlaceOrderRequest struct {
	Shipping        ShippingDetails `json:"shipping"          validate:"required"`
	PaymentIntentID string          `json:"payment_intent_id" validate:"required,startswith=pi_,max=255"`
	IdempotencyKey  string          `json:"-"`
}

type CheckoutResult struct {
	Order    *Order `json:"order"`
	Replayed bool   `json:"replayed"`
}
