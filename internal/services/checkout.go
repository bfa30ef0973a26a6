package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/api/middleware"
	"github.com/jerseyshop/storefront-api/internal/config"
	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/events"
	"github.com/jerseyshop/storefront-api/internal/metrics"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	"github.com/jerseyshop/storefront-api/internal/utils"
	stripeClient "github.com/jerseyshop/storefront-api/pkg/stripe"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	phaseBegin    = "begin"
	phaseFinalize = "finalize"

	defaultGatewayTimeout      = 10 * time.Second
	defaultFinalizeTimeout     = 15 * time.Second
	defaultNotificationTimeout = 10 * time.Second
)

var tracer = otel.Tracer("github.com/jerseyshop/storefront-api/internal/services")

// CheckoutService turns a cart into a paid order in two calls. BeginCheckout
// opens a payment intent for the cart total; FinalizeCheckout verifies the
// payment and converts the cart into an order exactly once per intent.
type CheckoutService interface {
	BeginCheckout(ctx context.Context, userID uuid.UUID, req *models.BeginCheckoutRequest) (*models.PaymentIntentResponse, error)
	FinalizeCheckout(ctx context.Context, userID uuid.UUID, req *models.PlaceOrderRequest) (*models.CheckoutResult, error)
	// Shutdown waits for post-order notifications that are still in flight.
	Shutdown(ctx context.Context) error
}

type CheckoutDeps struct {
	Carts     repository.CartRepository
	Orders    repository.OrderRepository
	Payments  repository.PaymentRepository
	RateLimit repository.RateLimitRepository
	Pricing   PricingResolver
	Gateway   stripeClient.Client
	Notifier  NotificationService
	Publisher events.Publisher
}

type checkoutService struct {
	CheckoutDeps
	cfg       config.CheckoutConfig
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	inflight  sync.WaitGroup
}

func NewCheckoutService(deps CheckoutDeps, cfg config.CheckoutConfig) CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	cfg.Currency = strings.ToLower(cfg.Currency)

	return &checkoutService{
		CheckoutDeps: deps,
		cfg:          cfg,
		validator:    utils.NewValidator(),
		sanitizer:    bluemonday.StrictPolicy(),
	}
}

func (s *checkoutService) BeginCheckout(ctx context.Context, userID uuid.UUID, req *models.BeginCheckoutRequest) (*models.PaymentIntentResponse, error) {
	ctx, span := tracer.Start(ctx, "checkout.begin", trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()

	resp, err := s.beginCheckout(ctx, userID, req)
	if err == nil {
		span.SetAttributes(attribute.String("payment_intent.id", resp.PaymentIntentID), attribute.Bool("payment_intent.reused", resp.Reused))
	}

	observe(span, phaseBegin, err)

	return resp, err
}

func (s *checkoutService) beginCheckout(ctx context.Context, userID uuid.UUID, req *models.BeginCheckoutRequest) (*models.PaymentIntentResponse, error) {
	logger := middleware.LoggerFromContext(ctx)

	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, appErrors.BadRequestError("Idempotency-Key header is required")
	}

	if _, err := s.cleanShipping(req.Shipping); err != nil {
		return nil, err
	}

	allowed, _, retryAfter, err := s.RateLimit.CheckRateLimit(ctx, "checkout:"+userID.String())
	if err != nil {
		logger.Warn("Checkout rate limit unavailable, allowing request", slog.Any("error", err))
	} else if !allowed {
		return nil, appErrors.TooManyRequestsError(fmt.Sprintf("Too many checkout attempts, retry in %d seconds", retryAfter))
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.reconcile(ctx, cart); err != nil {
		return nil, err
	}

	amountMinor, ok := models.ToMinorUnits(cart.Total)
	if !ok || amountMinor <= 0 {
		return nil, appErrors.ValidationError("Cart total must be a positive amount")
	}

	record, err := s.Payments.GetIntentByIdempotencyKey(ctx, req.IdempotencyKey)

	switch {
	case err == nil:
		return s.reuseIntent(ctx, userID, cart, amountMinor, record)
	case !errors.Is(err, repository.ErrIntentNotFound):
		return nil, appErrors.DatabaseError("Failed to look up payment").WithError(err)
	}

	gatewayCtx, cancel := utils.WithTimeoutOr(ctx, s.cfg.GatewayTimeout, defaultGatewayTimeout)
	defer cancel()

	intent, err := s.Gateway.CreatePaymentIntent(gatewayCtx, stripeClient.CreateIntentParams{
		AmountMinor: amountMinor,
		Currency:    s.cfg.Currency,
		Description: "Jersey Shop order",
		Metadata: map[string]string{
			"user_id":    userID.String(),
			"cart_id":    cart.ID.String(),
			"cart_total": cart.Total.StringFixed(2),
		},
		IdempotencyKey: "checkout:" + userID.String() + ":" + req.IdempotencyKey,
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	err = s.Payments.CreateIntentRecord(ctx, &models.PaymentIntentRecord{
		IntentID:       intent.ID,
		IdempotencyKey: req.IdempotencyKey,
		UserID:         userID,
		CartID:         cart.ID,
		AmountMinor:    amountMinor,
		Currency:       s.cfg.Currency,
		Status:         models.IntentStatusCreated,
	})
	if err != nil {
		// the gateway deduplicates on the derived key, so a retry still gets this intent
		logger.Warn("Failed to record payment intent", slog.String("paymentIntentId", intent.ID), slog.Any("error", err))
	}

	logger.Info("Payment intent created", slog.String("paymentIntentId", intent.ID), slog.Int64("amountMinor", amountMinor))

	return intentResponse(intent, cart.Total, amountMinor, s.cfg.Currency, false), nil
}

// reuseIntent answers a repeated begin call with the intent issued for the same key.
func (s *checkoutService) reuseIntent(ctx context.Context, userID uuid.UUID, cart *models.Cart, amountMinor int64, record *models.PaymentIntentRecord) (*models.PaymentIntentResponse, error) {
	if record.UserID != userID || record.CartID != cart.ID || record.AmountMinor != amountMinor || record.Currency != s.cfg.Currency {
		return nil, appErrors.ConflictError("Idempotency key was already used for a different cart total")
	}

	if record.Status == models.IntentStatusFailed {
		return nil, appErrors.ConflictError("Payment for this idempotency key failed, use a new key")
	}

	gatewayCtx, cancel := utils.WithTimeoutOr(ctx, s.cfg.GatewayTimeout, defaultGatewayTimeout)
	defer cancel()

	intent, err := s.Gateway.GetPaymentIntent(gatewayCtx, record.IntentID)
	if err != nil {
		return nil, gatewayError(err)
	}

	return intentResponse(intent, cart.Total, amountMinor, s.cfg.Currency, true), nil
}

func (s *checkoutService) FinalizeCheckout(ctx context.Context, userID uuid.UUID, req *models.PlaceOrderRequest) (*models.CheckoutResult, error) {
	ctx, span := tracer.Start(ctx, "checkout.finalize", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("payment_intent.id", req.PaymentIntentID),
	))
	defer span.End()

	result, err := s.finalizeCheckout(ctx, userID, req)
	if err == nil {
		span.SetAttributes(attribute.String("order.id", result.Order.ID.String()), attribute.Bool("order.replayed", result.Replayed))
	}

	observe(span, phaseFinalize, err)

	return result, err
}

func (s *checkoutService) finalizeCheckout(ctx context.Context, userID uuid.UUID, req *models.PlaceOrderRequest) (*models.CheckoutResult, error) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("paymentIntentId", req.PaymentIntentID))

	if strings.TrimSpace(req.PaymentIntentID) == "" {
		return nil, appErrors.ValidationError("Payment intent id is required")
	}

	shipping, err := s.cleanShipping(req.Shipping)
	if err != nil {
		return nil, err
	}

	existing, err := s.Orders.GetOrderByPaymentIntent(ctx, req.PaymentIntentID)

	switch {
	case err == nil:
		return replay(existing, userID)
	case !errors.Is(err, repository.ErrOrderNotFound):
		return nil, appErrors.DatabaseError("Failed to look up order").WithError(err)
	}

	intent, err := s.verifyPayment(ctx, userID, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	names, err := s.reconcile(ctx, cart)
	if err != nil {
		return nil, err
	}

	finalizeCtx, cancel := utils.WithTimeoutOr(ctx, s.cfg.FinalizeTimeout, defaultFinalizeTimeout)
	defer cancel()

	order, replayed, err := s.Orders.FinalizeOrder(finalizeCtx, &models.OrderDraft{
		UserID:          userID,
		PaymentIntentID: intent.ID,
		IdempotencyKey:  req.IdempotencyKey,
		PaymentMethod:   paymentMethodOf(intent),
		Currency:        s.cfg.Currency,
		AmountMinor:     intent.Amount,
		Shipping:        shipping,
		ProductNames:    names,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmptyCart):
			return nil, appErrors.EmptyCartError().WithError(err)
		case errors.Is(err, repository.ErrCartChanged):
			return nil, appErrors.ConflictError("Cart changed after payment, please review your cart").WithError(err)
		default:
			logger.Error("Order transaction rolled back", slog.Any("error", err))
			return nil, appErrors.PersistenceError().WithError(err)
		}
	}

	if replayed {
		return replay(order, userID)
	}

	if err := s.Payments.UpdateIntentStatus(ctx, intent.ID, models.IntentStatusSucceeded); err != nil && !errors.Is(err, repository.ErrIntentNotFound) {
		logger.Warn("Failed to mark payment intent succeeded", slog.Any("error", err))
	}

	metrics.RecordOrderPlaced()
	logger.Info("Order placed", slog.String("orderId", order.ID.String()), slog.String("total", order.Total.StringFixed(2)))

	s.afterOrderPlaced(ctx, order)

	return &models.CheckoutResult{Order: order}, nil
}

// verifyPayment asks the gateway whether the caller's intent has been paid.
func (s *checkoutService) verifyPayment(ctx context.Context, userID uuid.UUID, intentID string) (*stripe.PaymentIntent, error) {
	gatewayCtx, cancel := utils.WithTimeoutOr(ctx, s.cfg.GatewayTimeout, defaultGatewayTimeout)
	defer cancel()

	intent, err := s.Gateway.GetPaymentIntent(gatewayCtx, intentID)
	if err != nil {
		return nil, gatewayError(err)
	}

	if intent.Metadata["user_id"] != userID.String() {
		return nil, appErrors.ForbiddenError("Payment does not belong to this user")
	}

	if !strings.EqualFold(string(intent.Currency), s.cfg.Currency) {
		return nil, appErrors.ConflictError("Payment currency does not match the checkout currency")
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return intent, nil
	case stripe.PaymentIntentStatusCanceled:
		return nil, appErrors.PaymentFailedError("Payment was canceled")
	default:
		return nil, appErrors.PaymentNotConfirmedError()
	}
}

// afterOrderPlaced hands the order to the confirmation mail and the order
// event without waiting for either. Each sink runs detached from the request
// under its own deadline and its failures never reach the caller.
func (s *checkoutService) afterOrderPlaced(ctx context.Context, order *models.Order) {
	logger := middleware.LoggerFromContext(ctx).With(slog.String("orderId", order.ID.String()))
	detached := context.WithoutCancel(ctx)

	s.dispatch(detached, func(ctx context.Context) {
		if err := s.Notifier.SendOrderConfirmation(ctx, order); err != nil {
			logger.Warn("Order confirmation not delivered", slog.Any("error", err))
		}
	})

	s.dispatch(detached, func(ctx context.Context) {
		if err := s.Publisher.PublishOrderPlaced(ctx, order); err != nil {
			logger.Warn("Order event not published", slog.Any("error", err))
		}
	})
}

func (s *checkoutService) dispatch(ctx context.Context, sink func(context.Context)) {
	s.inflight.Add(1)

	go func() {
		defer s.inflight.Done()

		sinkCtx, cancel := utils.WithTimeoutOr(ctx, s.cfg.NotificationTimeout, defaultNotificationTimeout)
		defer cancel()

		sink(sinkCtx)
	}()
}

func (s *checkoutService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *checkoutService) loadCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Carts.GetCartByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, appErrors.EmptyCartError()
		}

		return nil, appErrors.DatabaseError("Failed to retrieve cart").WithError(err)
	}

	if cart.IsEmpty() {
		return nil, appErrors.EmptyCartError()
	}

	return cart, nil
}

// reconcile re-reads every product in the cart. Stock is checked against the
// summed quantity per product. Line prices stay as captured; drift is only logged.
func (s *checkoutService) reconcile(ctx context.Context, cart *models.Cart) (map[uuid.UUID]string, error) {
	logger := middleware.LoggerFromContext(ctx)

	names := make(map[uuid.UUID]string, len(cart.Lines))
	wanted := make(map[uuid.UUID]int, len(cart.Lines))
	snapshots := make(map[uuid.UUID]*models.PriceSnapshot, len(cart.Lines))

	for _, line := range cart.Lines {
		snapshot, err := s.Pricing.Resolve(ctx, line.ProductID, line.Options)
		if err != nil {
			return nil, err
		}

		if !snapshot.UnitPrice.Equal(line.Price) {
			logger.Info("Price changed since the item was added",
				slog.String("productId", line.ProductID.String()),
				slog.String("cartPrice", line.Price.StringFixed(2)),
				slog.String("currentPrice", snapshot.UnitPrice.StringFixed(2)))
		}

		names[line.ProductID] = snapshot.ProductName
		wanted[line.ProductID] += line.Quantity
		snapshots[line.ProductID] = snapshot
	}

	for productID, quantity := range wanted {
		if snapshot := snapshots[productID]; snapshot.AvailableStock < quantity {
			return nil, appErrors.ConflictError("Insufficient stock for " + snapshot.ProductName)
		}
	}

	return names, nil
}

// cleanShipping strips markup from every field and validates the result.
func (s *checkoutService) cleanShipping(in models.ShippingDetails) (models.ShippingDetails, error) {
	clean := func(v string) string {
		return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(v)))
	}

	out := models.ShippingDetails{
		FirstName: clean(in.FirstName),
		LastName:  clean(in.LastName),
		Address1:  clean(in.Address1),
		Address2:  clean(in.Address2),
		City:      clean(in.City),
		State:     clean(in.State),
		Zip:       clean(in.Zip),
		Country:   clean(in.Country),
		Phone:     clean(in.Phone),
	}

	if err := s.validator.Struct(out); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			first := validationErrs[0]
			return out, appErrors.UnprocessableError("Invalid shipping details").
				WithDetail(fmt.Sprintf("%s failed %s validation", first.Field(), first.Tag())).
				WithError(err)
		}

		return out, appErrors.UnprocessableError("Invalid shipping details").WithError(err)
	}

	return out, nil
}

func replay(order *models.Order, userID uuid.UUID) (*models.CheckoutResult, error) {
	if order.UserID != userID {
		return nil, appErrors.ForbiddenError("Payment does not belong to this user")
	}

	return &models.CheckoutResult{Order: order, Replayed: true}, nil
}

func intentResponse(intent *stripe.PaymentIntent, total decimal.Decimal, amountMinor int64, currency string, reused bool) *models.PaymentIntentResponse {
	return &models.PaymentIntentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          total,
		AmountMinor:     amountMinor,
		Currency:        currency,
		Reused:          reused,
	}
}

func paymentMethodOf(intent *stripe.PaymentIntent) string {
	if intent.PaymentMethod != nil {
		if intent.PaymentMethod.Type != "" {
			return string(intent.PaymentMethod.Type)
		}

		return intent.PaymentMethod.ID
	}

	if len(intent.PaymentMethodTypes) > 0 {
		return intent.PaymentMethodTypes[0]
	}

	return ""
}

// gatewayError maps a gateway failure to the response the client sees.
// Gateway messages stay in the wrapped error.
func gatewayError(err error) *appErrors.AppError {
	kind := stripeClient.ClassifyError(err)
	metrics.RecordGatewayError(kind.String())

	switch kind {
	case stripeClient.ErrorKindNotConfigured:
		return appErrors.PaymentNotConfiguredError().WithError(err)
	case stripeClient.ErrorKindRejected:
		return appErrors.PaymentFailedError("Payment was rejected by the provider").WithError(err)
	default:
		return appErrors.PaymentUnavailableError().WithError(err)
	}
}

func observe(span trace.Span, phase string, err error) {
	if err == nil {
		metrics.RecordCheckout(phase, "ok")
		span.SetStatus(codes.Ok, "")

		return
	}

	outcome := appErrors.ErrCodeInternal
	if appErr, ok := appErrors.IsAppError(err); ok {
		outcome = appErr.Code
	}

	metrics.RecordCheckout(phase, outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
}
