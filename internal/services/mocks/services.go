// Package mocks holds testify mocks of the service interfaces for handler tests.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/models"
	service "github.com/jerseyshop/storefront-api/internal/services"
	"github.com/stretchr/testify/mock"
)

type CartService struct {
	mock.Mock
}

func (m *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(*models.Cart)

	return cart, args.Error(1)
}

func (m *CartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	args := m.Called(ctx, userID, req)
	cart, _ := args.Get(0).(*models.Cart)

	return cart, args.Error(1)
}

func (m *CartService) UpdateItemQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error) {
	args := m.Called(ctx, userID, lineID, quantity)
	cart, _ := args.Get(0).(*models.Cart)

	return cart, args.Error(1)
}

func (m *CartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID, lineID)
	cart, _ := args.Get(0).(*models.Cart)

	return cart, args.Error(1)
}

type CheckoutService struct {
	mock.Mock
}

func (m *CheckoutService) BeginCheckout(ctx context.Context, userID uuid.UUID, req *models.BeginCheckoutRequest) (*models.PaymentIntentResponse, error) {
	args := m.Called(ctx, userID, req)
	resp, _ := args.Get(0).(*models.PaymentIntentResponse)

	return resp, args.Error(1)
}

func (m *CheckoutService) FinalizeCheckout(ctx context.Context, userID uuid.UUID, req *models.PlaceOrderRequest) (*models.CheckoutResult, error) {
	args := m.Called(ctx, userID, req)
	result, _ := args.Get(0).(*models.CheckoutResult)

	return result, args.Error(1)
}

func (m *CheckoutService) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type OrderService struct {
	mock.Mock
}

func (m *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, userID, orderID)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Error(1)
}

func (m *OrderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Error(1)
}

func (m *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*models.PaginatedResponse, error) {
	args := m.Called(ctx, userID, page, size)
	resp, _ := args.Get(0).(*models.PaginatedResponse)

	return resp, args.Error(1)
}

func (m *OrderService) ListAllOrders(ctx context.Context, page, size int) (*models.PaginatedResponse, error) {
	args := m.Called(ctx, page, size)
	resp, _ := args.Get(0).(*models.PaginatedResponse)

	return resp, args.Error(1)
}

func (m *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, orderID, status)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Error(1)
}

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error) {
	args := m.Called(ctx, req)
	notification, _ := args.Get(0).(*models.Notification)

	return notification, args.Error(1)
}

func (m *NotificationService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *NotificationService) RetryFailed(ctx context.Context) (int, error) {
	args := m.Called(ctx)

	return args.Int(0), args.Error(1)
}

func (m *NotificationService) RunRetryLoop(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}

type PricingResolver struct {
	mock.Mock
}

func (m *PricingResolver) Resolve(ctx context.Context, productID uuid.UUID, options models.LineOptions) (*models.PriceSnapshot, error) {
	args := m.Called(ctx, productID, options)
	snapshot, _ := args.Get(0).(*models.PriceSnapshot)

	return snapshot, args.Error(1)
}

var (
	_ service.CartService         = (*CartService)(nil)
	_ service.CheckoutService     = (*CheckoutService)(nil)
	_ service.OrderService        = (*OrderService)(nil)
	_ service.NotificationService = (*NotificationService)(nil)
	_ service.PricingResolver     = (*PricingResolver)(nil)
)
