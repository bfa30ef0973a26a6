package stripe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jerseyshop/storefront-api/internal/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

type PaymentIntent = stripe.PaymentIntent

var ErrNotConfigured = errors.New("payment gateway is not configured")

// ErrorKind tells callers whether a gateway failure is worth retrying.
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	ErrorKindNotConfigured
	// ErrorKindTransient covers network failures, timeouts, throttling, 5xx and an open breaker.
	ErrorKindTransient
	// ErrorKindRejected means the gateway answered and refused the request.
	ErrorKindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindNotConfigured:
		return "not_configured"
	case ErrorKindTransient:
		return "transient"
	case ErrorKindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type CreateIntentParams struct {
	AmountMinor    int64
	Currency       string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

// Client is the narrow view of the payment gateway used by checkout.
type Client interface {
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	Ping(ctx context.Context) error
}

type stripeClient struct {
	api     *client.API
	breaker *gobreaker.CircuitBreaker[*stripe.PaymentIntent]
}

// NewStripeClient builds a client with its own backend. The SDK's automatic
// network retries are disabled: a failed call is reported, never replayed.
func NewStripeClient(cfg config.Stripe) Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &stripeClient{}
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		HTTPClient:        &http.Client{Timeout: 80 * time.Second},
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}

	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// a declined card says nothing about the gateway's health
		IsSuccessful: func(err error) bool {
			return err == nil || ClassifyError(err) == ErrorKindRejected
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	}

	return &stripeClient{
		api:     client.New(cfg.APIKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		breaker: gobreaker.NewCircuitBreaker[*stripe.PaymentIntent](settings),
	}
}

// CreatePaymentIntent asks the gateway to authorize an amount. Automatic payment
// methods are enabled so the client side decides how the customer pays.
func (s *stripeClient) CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (*PaymentIntent, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	return s.execute(func() (*stripe.PaymentIntent, error) {
		return s.api.PaymentIntents.New(params)
	})
}

func (s *stripeClient) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	if s.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}

	return s.execute(func() (*stripe.PaymentIntent, error) {
		return s.api.PaymentIntents.Get(id, params)
	})
}

// execute runs call through the breaker. The SDK hands back an empty intent
// alongside its errors, which must not reach callers.
func (s *stripeClient) execute(call func() (*stripe.PaymentIntent, error)) (*PaymentIntent, error) {
	intent, err := s.breaker.Execute(call)
	if err != nil {
		return nil, err
	}

	return intent, nil
}

// Ping reads the account balance, the cheapest authenticated call.
func (s *stripeClient) Ping(ctx context.Context) error {
	if s.api == nil {
		return ErrNotConfigured
	}

	_, err := s.api.Balance.Get(&stripe.BalanceParams{Params: stripe.Params{Context: ctx}})

	return err
}

func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	if errors.Is(err, ErrNotConfigured) {
		return ErrorKindNotConfigured
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorKindTransient
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests, stripeErr.HTTPStatusCode >= http.StatusInternalServerError:
			return ErrorKindTransient
		case stripeErr.HTTPStatusCode == http.StatusUnauthorized, stripeErr.HTTPStatusCode == http.StatusForbidden:
			return ErrorKindNotConfigured
		case stripeErr.Type == stripe.ErrorTypeAPI:
			return ErrorKindTransient
		default:
			return ErrorKindRejected
		}
	}

	// transport level failure: the request may or may not have reached the gateway
	return ErrorKindTransient
}
