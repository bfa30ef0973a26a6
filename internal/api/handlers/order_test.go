package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/api/handlers"
	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/jerseyshop/storefront-api/internal/services/mocks"
	"github.com/jerseyshop/storefront-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupOrderTest() (*mocks.OrderService, *handlers.OrderHandler) {
	mockOrderService := new(mocks.OrderService)

	return mockOrderService, handlers.NewOrderHandler(mockOrderService)
}

func TestGetOrder(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockOrderService, handler := setupOrderTest()
		userID := uuid.New()
		order := &models.Order{ID: uuid.New(), UserID: userID, Status: models.OrderStatusPending}
		mockOrderService.On("GetOrder", mock.Anything, userID, order.ID).Return(order, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil, userID,
			map[string]string{"id": order.ID.String()})
		rr := httptest.NewRecorder()

		// Act
		handler.GetOrder().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.Order
		decodeResponse(t, rr, &got)
		assert.Equal(t, order.ID, got.ID)
		mockOrderService.AssertExpectations(t)
	})

	t.Run("Failure - Another user's order", func(t *testing.T) {
		mockOrderService, handler := setupOrderTest()
		userID, orderID := uuid.New(), uuid.New()
		mockOrderService.On("GetOrder", mock.Anything, userID, orderID).Return(nil, appErrors.ForbiddenError("You do not have permission to view this order")).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil, userID,
			map[string]string{"id": orderID.String()})
		rr := httptest.NewRecorder()

		handler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Failure - Invalid id", func(t *testing.T) {
		_, handler := setupOrderTest()
		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders/nope", nil, uuid.New(),
			map[string]string{"id": "nope"})
		rr := httptest.NewRecorder()

		handler.GetOrder().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetOrderAdmin(t *testing.T) {
	mockOrderService, handler := setupOrderTest()
	order := &models.Order{ID: uuid.New(), UserID: uuid.New()}
	mockOrderService.On("GetOrderByID", mock.Anything, order.ID).Return(order, nil).Once()

	req := testutils.CreateAdminTestRequest(http.MethodGet, "/api/v1/admin/orders/"+order.ID.String(), nil, uuid.New(),
		map[string]string{"id": order.ID.String()})
	rr := httptest.NewRecorder()

	handler.GetOrderAdmin().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	mockOrderService.AssertExpectations(t)
}

func TestListOrders(t *testing.T) {
	t.Run("Success - Query parameters reach the service", func(t *testing.T) {
		// Arrange
		mockOrderService, handler := setupOrderTest()
		userID := uuid.New()
		page := &models.PaginatedResponse{Data: []*models.Order{{ID: uuid.New(), UserID: userID}}, Total: 11, Page: 2, PageSize: 5}
		mockOrderService.On("ListOrders", mock.Anything, userID, 2, 5).Return(page, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders?page=2&pageSize=5", nil, userID, nil)
		rr := httptest.NewRecorder()

		// Act
		handler.ListOrders().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.PaginatedResponse
		decodeResponse(t, rr, &got)
		assert.Equal(t, 11, got.Total)
		assert.Equal(t, 2, got.Page)
		mockOrderService.AssertExpectations(t)
	})

	t.Run("Success - Garbage paging is passed as zero", func(t *testing.T) {
		mockOrderService, handler := setupOrderTest()
		userID := uuid.New()
		mockOrderService.On("ListOrders", mock.Anything, userID, 0, 0).
			Return(&models.PaginatedResponse{Data: []*models.Order{}, Page: 1, PageSize: models.DefaultPageSize}, nil).Once()

		req := testutils.CreateTestRequestWithContext(http.MethodGet, "/api/v1/orders?page=x&pageSize=y", nil, userID, nil)
		rr := httptest.NewRecorder()

		handler.ListOrders().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockOrderService.AssertExpectations(t)
	})
}

func TestListAllOrders(t *testing.T) {
	t.Run("Success - Orders of every user", func(t *testing.T) {
		// Arrange
		mockOrderService, handler := setupOrderTest()
		orders := []*models.Order{{ID: uuid.New(), UserID: uuid.New()}, {ID: uuid.New(), UserID: uuid.New()}}
		page := &models.PaginatedResponse{Data: orders, Total: 2, Page: 1, PageSize: 20}
		mockOrderService.On("ListAllOrders", mock.Anything, 1, 20).Return(page, nil).Once()

		req := testutils.CreateAdminTestRequest(http.MethodGet, "/api/v1/admin/orders?page=1&pageSize=20", nil, uuid.New(), nil)
		rr := httptest.NewRecorder()

		// Act
		handler.ListAllOrders().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.PaginatedResponse
		decodeResponse(t, rr, &got)
		assert.Equal(t, 2, got.Total)
		assert.Equal(t, 20, got.PageSize)
		mockOrderService.AssertExpectations(t)
		mockOrderService.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Database error", func(t *testing.T) {
		mockOrderService, handler := setupOrderTest()
		mockOrderService.On("ListAllOrders", mock.Anything, 0, 0).Return(nil, appErrors.DatabaseError("Failed to fetch orders")).Once()

		req := testutils.CreateAdminTestRequest(http.MethodGet, "/api/v1/admin/orders", nil, uuid.New(), nil)
		rr := httptest.NewRecorder()

		handler.ListAllOrders().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockOrderService.AssertExpectations(t)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockOrderService, handler := setupOrderTest()
		orderID := uuid.New()
		updated := &models.Order{ID: orderID, Status: models.OrderStatusProcessing}
		mockOrderService.On("UpdateOrderStatus", mock.Anything, orderID, models.OrderStatusProcessing).Return(updated, nil).Once()

		req := testutils.CreateAdminTestRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status",
			strings.NewReader(`{"status":"processing"}`), uuid.New(), map[string]string{"id": orderID.String()})
		rr := httptest.NewRecorder()

		// Act
		handler.UpdateOrderStatus().ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)

		var got models.Order
		decodeResponse(t, rr, &got)
		assert.Equal(t, models.OrderStatusProcessing, got.Status)
	})

	t.Run("Failure - Unknown status", func(t *testing.T) {
		mockOrderService, handler := setupOrderTest()
		orderID := uuid.New()

		req := testutils.CreateAdminTestRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status",
			strings.NewReader(`{"status":"shipped"}`), uuid.New(), map[string]string{"id": orderID.String()})
		rr := httptest.NewRecorder()

		handler.UpdateOrderStatus().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockOrderService.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - Illegal transition", func(t *testing.T) {
		mockOrderService, handler := setupOrderTest()
		orderID := uuid.New()
		mockOrderService.On("UpdateOrderStatus", mock.Anything, orderID, models.OrderStatusCompleted).
			Return(nil, appErrors.ConflictError("Order cannot move to status completed")).Once()

		req := testutils.CreateAdminTestRequest(http.MethodPatch, "/api/v1/admin/orders/"+orderID.String()+"/status",
			strings.NewReader(`{"status":"completed"}`), uuid.New(), map[string]string{"id": orderID.String()})
		rr := httptest.NewRecorder()

		handler.UpdateOrderStatus().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
