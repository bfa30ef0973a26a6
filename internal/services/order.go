package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
)

type OrderService interface {
	// GetOrder returns an order owned by userID.
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	// GetOrderByID skips the ownership check and is meant for admin routes.
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*models.PaginatedResponse, error)
	// ListAllOrders pages through every user's orders for admin routes.
	ListAllOrders(ctx context.Context, page, size int) (*models.PaginatedResponse, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
}

func NewOrderService(orderRepo repository.OrderRepository) OrderService {
	return &orderService{orderRepo: orderRepo}
}

func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.UserID != userID {
		return nil, appErrors.ForbiddenError("You do not have permission to view this order")
	}

	return order, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to retrieve order").WithError(err)
	}

	return order, nil
}

// ListOrders pages through the user's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page, size int) (*models.PaginatedResponse, error) {
	page, size = models.NormalizePage(page, size)

	orders, total, err := s.orderRepo.ListOrdersByUser(ctx, userID, page, size)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orderPage(orders, total, page, size), nil
}

func (s *orderService) ListAllOrders(ctx context.Context, page, size int) (*models.PaginatedResponse, error) {
	page, size = models.NormalizePage(page, size)

	orders, total, err := s.orderRepo.ListOrders(ctx, page, size)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orderPage(orders, total, page, size), nil
}

func orderPage(orders []*models.Order, total, page, size int) *models.PaginatedResponse {
	if orders == nil {
		orders = []*models.Order{}
	}

	return &models.PaginatedResponse{
		Data:     orders,
		Total:    total,
		Page:     page,
		PageSize: size,
	}
}

// UpdateOrderStatus moves an order along the state machine. The store applies
// the change only if the current status still allows it.
func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, appErrors.ValidationError("Unknown order status")
	}

	order, err := s.orderRepo.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			return nil, appErrors.NotFoundError("Order not found").WithError(err)
		case errors.Is(err, repository.ErrIllegalTransition):
			return nil, appErrors.ConflictError("Order cannot move to status " + string(status)).WithError(err)
		default:
			return nil, appErrors.DatabaseError("Failed to update order status").WithError(err)
		}
	}

	return order, nil
}
