// Package mocks holds testify mocks of the repository interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	"github.com/stretchr/testify/mock"
)

type CartRepository struct {
	mock.Mock
}

func (m *CartRepository) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(*models.Cart)

	return cart, args.Error(1)
}

func (m *CartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	cart, _ := args.Get(0).(*models.Cart)

	return cart, args.Error(1)
}

// MutateCart applies mutate to the cart configured as the first return value,
// the way the real store applies it to the locked row.
func (m *CartRepository) MutateCart(ctx context.Context, userID uuid.UUID, createIfMissing bool, mutate repository.CartMutation) (*models.Cart, error) {
	args := m.Called(ctx, userID, createIfMissing, mutate)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	cart, _ := args.Get(0).(*models.Cart)
	if cart == nil {
		return nil, repository.ErrCartNotFound
	}

	if _, err := mutate(cart); err != nil {
		return nil, err
	}

	return cart, nil
}

func (m *CartRepository) GetLineOwner(ctx context.Context, lineID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, lineID)

	return args.Get(0).(uuid.UUID), args.Error(1)
}

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) FinalizeOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, bool, error) {
	args := m.Called(ctx, draft)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Bool(1), args.Error(2)
}

func (m *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Error(1)
}

func (m *OrderRepository) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Error(1)
}

func (m *OrderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)
	orders, _ := args.Get(0).([]*models.Order)

	return orders, args.Int(1), args.Error(2)
}

func (m *OrderRepository) ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error) {
	args := m.Called(ctx, page, size)
	orders, _ := args.Get(0).([]*models.Order)

	return orders, args.Int(1), args.Error(2)
}

func (m *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	order, _ := args.Get(0).(*models.Order)

	return order, args.Error(1)
}

type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) CreateIntentRecord(ctx context.Context, record *models.PaymentIntentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *PaymentRepository) GetIntentByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntentRecord, error) {
	args := m.Called(ctx, key)
	record, _ := args.Get(0).(*models.PaymentIntentRecord)

	return record, args.Error(1)
}

func (m *PaymentRepository) UpdateIntentStatus(ctx context.Context, intentID string, status models.IntentStatus) error {
	return m.Called(ctx, intentID, status).Error(0)
}

type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)

	return product, args.Error(1)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)

	return user, args.Error(1)
}

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return m.Called(ctx, notification).Error(0)
}

func (m *NotificationRepository) GetNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	notification, _ := args.Get(0).(*models.Notification)

	return notification, args.Error(1)
}

func (m *NotificationRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status models.NotificationStatus, errorMsg string) error {
	return m.Called(ctx, id, status, errorMsg).Error(0)
}

func (m *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, maxAttempts, limit)
	notifications, _ := args.Get(0).([]*models.Notification)

	return notifications, args.Error(1)
}

type RateLimitRepository struct {
	mock.Mock
}

func (m *RateLimitRepository) CheckRateLimit(ctx context.Context, key string) (bool, int, int, error) {
	args := m.Called(ctx, key)

	return args.Bool(0), args.Int(1), args.Int(2), args.Error(3)
}

var (
	_ repository.CartRepository         = (*CartRepository)(nil)
	_ repository.OrderRepository        = (*OrderRepository)(nil)
	_ repository.PaymentRepository      = (*PaymentRepository)(nil)
	_ repository.ProductRepository      = (*ProductRepository)(nil)
	_ repository.UserRepository         = (*UserRepository)(nil)
	_ repository.NotificationRepository = (*NotificationRepository)(nil)
	_ repository.RateLimitRepository    = (*RateLimitRepository)(nil)
)
