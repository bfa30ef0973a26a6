package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jerseyshop/storefront-api/internal/api/middleware"
	"github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	service "github.com/jerseyshop/storefront-api/internal/services"
	"github.com/jerseyshop/storefront-api/internal/utils"
	"github.com/jerseyshop/storefront-api/internal/utils/response"
)

const idempotencyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validator: utils.NewValidator()}
}

// CreatePaymentIntent godoc
//	@Summary		Begin checkout
//	@Description	Opens a payment intent for the cart total. Repeating the call with the same Idempotency-Key returns the same intent.
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string							true	"Client generated key for this checkout attempt"
//	@Param			checkout		body		models.BeginCheckoutRequest		true	"Shipping details"
//	@Success		200				{object}	models.PaymentIntentResponse	"Payment intent to confirm on the client"
//	@Failure		400				{object}	response.ErrorResponse			"Empty cart or missing Idempotency-Key"
//	@Failure		401				{object}	response.ErrorResponse			"Authentication required"
//	@Failure		402				{object}	response.ErrorResponse			"Payment rejected"
//	@Failure		409				{object}	response.ErrorResponse			"Insufficient stock or key reused for a different total"
//	@Failure		422				{object}	response.ErrorResponse			"Invalid shipping details"
//	@Failure		429				{object}	response.ErrorResponse			"Too many checkout attempts"
//	@Failure		503				{object}	response.ErrorResponse			"Payment provider unavailable, retry"
//	@Security		BearerAuth
//	@Router			/checkout/payment-intent [post]
func (h *CheckoutHandler) CreatePaymentIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userId", claims.UserID.String()))

		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if key == "" {
			logger.Warn("Checkout without idempotency key")
			response.Error(w, errors.BadRequestError("Idempotency-Key header is required"))

			return
		}

		var req models.BeginCheckoutRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		req.IdempotencyKey = key

		intent, err := h.checkoutService.BeginCheckout(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Failed to begin checkout", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, intent)
	}
}

// PlaceOrder godoc
//	@Summary		Finalize checkout
//	@Description	Verifies the payment and turns the cart into an order. A payment intent that already produced an order returns that order with status 200.
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string						false	"Client generated key for this checkout attempt"
//	@Param			order			body		models.PlaceOrderRequest	true	"Shipping details and the confirmed payment intent"
//	@Success		201				{object}	models.CheckoutResult		"Order placed"
//	@Success		200				{object}	models.CheckoutResult		"Order already placed for this payment"
//	@Failure		400				{object}	response.ErrorResponse		"Empty cart or invalid payment intent id"
//	@Failure		401				{object}	response.ErrorResponse		"Authentication required"
//	@Failure		402				{object}	response.ErrorResponse		"Payment not confirmed or failed"
//	@Failure		403				{object}	response.ErrorResponse		"Payment belongs to another user"
//	@Failure		409				{object}	response.ErrorResponse		"Cart changed or insufficient stock"
//	@Failure		422				{object}	response.ErrorResponse		"Invalid shipping details"
//	@Failure		500				{object}	response.ErrorResponse		"Order could not be saved, retry"
//	@Failure		503				{object}	response.ErrorResponse		"Payment provider unavailable, retry"
//	@Security		BearerAuth
//	@Router			/checkout [post]
func (h *CheckoutHandler) PlaceOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		claims, ok := requireClaims(w, r, logger)
		if !ok {
			return
		}

		logger = logger.With(slog.String("userId", claims.UserID.String()))

		var req models.PlaceOrderRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		// shipping is sanitized and validated by the checkout service
		if err := h.validator.Var(req.PaymentIntentID, "required,startswith=pi_,max=255"); err != nil {
			response.Error(w, errors.ValidationError("Invalid payment intent id"))
			return
		}

		req.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyHeader))
		logger = logger.With(slog.String("paymentIntentId", req.PaymentIntentID))

		result, err := h.checkoutService.FinalizeCheckout(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Failed to place order", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}

		logger.Info("Checkout finalized", slog.String("orderId", result.Order.ID.String()), slog.Bool("replayed", result.Replayed))
		response.Success(w, status, result)
	}
}
