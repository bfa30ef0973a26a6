package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/models"
	repoMocks "github.com/jerseyshop/storefront-api/internal/repositories/mocks"
	service "github.com/jerseyshop/storefront-api/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupNotificationServiceTest() (service.NotificationService, *repoMocks.NotificationRepository, *repoMocks.UserRepository, *mockEmailService) {
	mockRepo := new(repoMocks.NotificationRepository)
	mockUsers := new(repoMocks.UserRepository)
	mockEmail := new(mockEmailService)

	return service.NewNotificationService(mockRepo, mockUsers, mockEmail, 3), mockRepo, mockUsers, mockEmail
}

func TestNotificationService_SendEmail(t *testing.T) {
	req := &models.EmailNotificationRequest{
		To:       "fan@example.com",
		Subject:  "Hello",
		Content:  "Body",
		Metadata: map[string]string{"key": "value"},
	}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, mockRepo, _, mockEmail := setupNotificationServiceTest()

		mockRepo.On("CreateNotification", mock.Anything, mock.AnythingOfType("*models.Notification")).Return(nil).Once().Run(func(args mock.Arguments) {
			n := args.Get(1).(*models.Notification)
			assert.Equal(t, models.StatusPending, n.Status)
			assert.JSONEq(t, `{"key":"value"}`, string(n.Metadata))
		})
		mockEmail.On("Send", mock.Anything, req).Return(nil).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, mock.AnythingOfType("uuid.UUID"), models.StatusSent, "").Return(nil).Once()

		// Act
		n, err := svc.SendEmail(t.Context(), req)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, n.Status)
		assert.Equal(t, 1, n.Attempts)
		assert.Equal(t, req.To, n.Recipient)
		mockRepo.AssertExpectations(t)
		mockEmail.AssertExpectations(t)
	})

	t.Run("Failure - Provider error is recorded", func(t *testing.T) {
		// Arrange
		svc, mockRepo, _, mockEmail := setupNotificationServiceTest()

		mockRepo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil).Once()
		mockEmail.On("Send", mock.Anything, req).Return(errors.New("status code: 503")).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, mock.Anything, models.StatusFailed, "status code: 503").Return(nil).Once()

		// Act
		n, err := svc.SendEmail(t.Context(), req)

		// Assert
		require.Error(t, err)
		assert.Equal(t, models.StatusFailed, n.Status)
		assert.Equal(t, "status code: 503", n.ErrorMessage)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Failure - Log write fails before sending", func(t *testing.T) {
		// Arrange
		svc, mockRepo, _, mockEmail := setupNotificationServiceTest()
		mockRepo.On("CreateNotification", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		// Act
		n, err := svc.SendEmail(t.Context(), req)

		// Assert
		assert.Nil(t, n)
		require.Error(t, err)
		mockEmail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Success - Status update failure is only logged", func(t *testing.T) {
		svc, mockRepo, _, mockEmail := setupNotificationServiceTest()

		mockRepo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil).Once()
		mockEmail.On("Send", mock.Anything, req).Return(nil).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, mock.Anything, models.StatusSent, "").Return(errors.New("db down")).Once()

		n, err := svc.SendEmail(t.Context(), req)

		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, n.Status)
	})
}

func TestNotificationService_SendOrderConfirmation(t *testing.T) {
	user := &models.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"}
	order := &models.Order{
		ID:       uuid.New(),
		UserID:   user.ID,
		Total:    decimal.RequireFromString("265.00"),
		Currency: "usd",
		Shipping: validShipping(),
		Items: []models.OrderItem{
			{ProductName: "Home Jersey", Quantity: 2, Price: decimal.RequireFromString("90.00"), Options: models.LineOptions{"size": "M"}},
			{ProductName: "Away <Jersey>", Quantity: 1, Price: decimal.RequireFromString("85.00")},
		},
	}

	t.Run("Success - Summary goes to the account address", func(t *testing.T) {
		// Arrange
		svc, mockRepo, mockUsers, mockEmail := setupNotificationServiceTest()

		var sent *models.EmailNotificationRequest

		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(user, nil).Once()
		mockRepo.On("CreateNotification", mock.Anything, mock.Anything).Return(nil).Once()
		mockEmail.On("Send", mock.Anything, mock.AnythingOfType("*models.EmailNotificationRequest")).Return(nil).Once().Run(func(args mock.Arguments) {
			sent = args.Get(1).(*models.EmailNotificationRequest)
		})
		mockRepo.On("UpdateNotificationStatus", mock.Anything, mock.Anything, models.StatusSent, "").Return(nil).Once()

		// Act
		err := svc.SendOrderConfirmation(t.Context(), order)

		// Assert
		require.NoError(t, err)
		require.NotNil(t, sent)
		assert.Equal(t, "ada@example.com", sent.To)
		assert.Equal(t, "Order confirmation #"+order.ID.String()[:8], sent.Subject)
		assert.Contains(t, sent.Content, "2 x Home Jersey size: M  180.00")
		assert.Contains(t, sent.Content, "Total: 265.00 USD")
		assert.Contains(t, sent.HTMLContent, "Away &lt;Jersey&gt;")
		assert.NotContains(t, sent.HTMLContent, "<Jersey>")
		assert.Equal(t, order.ID.String(), sent.Metadata["order_id"])
		assert.Equal(t, "order_confirmation", sent.Metadata["kind"])
	})

	t.Run("Failure - Recipient lookup fails and the mail is kept for retry", func(t *testing.T) {
		// Arrange
		svc, mockRepo, mockUsers, mockEmail := setupNotificationServiceTest()

		var stored *models.Notification

		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(nil, errors.New("accounts: timeout")).Once()
		mockRepo.On("CreateNotification", mock.Anything, mock.AnythingOfType("*models.Notification")).Return(nil).Once().Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.Notification)
		})

		// Act
		err := svc.SendOrderConfirmation(t.Context(), order)

		// Assert
		require.Error(t, err)
		require.NotNil(t, stored)
		assert.Empty(t, stored.Recipient)
		assert.Equal(t, models.StatusFailed, stored.Status)
		assert.Equal(t, 1, stored.Attempts)
		assert.Contains(t, stored.ErrorMessage, "accounts: timeout")
		assert.Contains(t, stored.Content, "Thanks for your order!")
		assert.Contains(t, stored.Content, "Total: 265.00 USD")

		var metadata map[string]string
		require.NoError(t, json.Unmarshal(stored.Metadata, &metadata))
		assert.Equal(t, order.ID.String(), metadata["order_id"])
		assert.Equal(t, user.ID.String(), metadata["user_id"])
		mockEmail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Lookup and logging both fail", func(t *testing.T) {
		svc, mockRepo, mockUsers, _ := setupNotificationServiceTest()
		mockUsers.On("GetUserByID", mock.Anything, user.ID).Return(nil, errors.New("accounts: timeout")).Once()
		mockRepo.On("CreateNotification", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		err := svc.SendOrderConfirmation(t.Context(), order)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "accounts: timeout")
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestNotificationService_RetryFailed(t *testing.T) {
	failed := func(subject string) *models.Notification {
		return &models.Notification{
			ID:        uuid.New(),
			Type:      models.NotificationTypeEmail,
			Recipient: "fan@example.com",
			Subject:   subject,
			Content:   "Body",
			Status:    models.StatusFailed,
			Attempts:  1,
			Metadata:  json.RawMessage(`{"order_id":"42"}`),
		}
	}

	t.Run("Success - Counts only delivered messages", func(t *testing.T) {
		// Arrange
		svc, mockRepo, _, mockEmail := setupNotificationServiceTest()
		first, second := failed("first"), failed("second")

		mockRepo.On("ListRetryable", mock.Anything, 3, 50).Return([]*models.Notification{first, second}, nil).Once()
		mockEmail.On("Send", mock.Anything, mock.MatchedBy(func(r *models.EmailNotificationRequest) bool {
			return r.Subject == "first" && r.Metadata["order_id"] == "42"
		})).Return(nil).Once()
		mockEmail.On("Send", mock.Anything, mock.MatchedBy(func(r *models.EmailNotificationRequest) bool {
			return r.Subject == "second"
		})).Return(errors.New("still down")).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, first.ID, models.StatusSent, "").Return(nil).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, second.ID, models.StatusFailed, "still down").Return(nil).Once()

		// Act
		delivered, err := svc.RetryFailed(t.Context())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 1, delivered)
		assert.Equal(t, 2, first.Attempts)
		assert.Equal(t, 2, second.Attempts)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Success - Recipient resolved for a deferred confirmation", func(t *testing.T) {
		// Arrange
		svc, mockRepo, mockUsers, mockEmail := setupNotificationServiceTest()
		userID := uuid.New()
		deferred := failed("Order confirmation")
		deferred.Recipient = ""
		deferred.Metadata = json.RawMessage(`{"order_id":"42","user_id":"` + userID.String() + `"}`)

		mockRepo.On("ListRetryable", mock.Anything, 3, 50).Return([]*models.Notification{deferred}, nil).Once()
		mockUsers.On("GetUserByID", mock.Anything, userID).Return(&models.User{ID: userID, Email: "ada@example.com"}, nil).Once()
		mockEmail.On("Send", mock.Anything, mock.MatchedBy(func(r *models.EmailNotificationRequest) bool {
			return r.To == "ada@example.com"
		})).Return(nil).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, deferred.ID, models.StatusSent, "").Return(nil).Once()

		// Act
		delivered, err := svc.RetryFailed(t.Context())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 1, delivered)
		mockRepo.AssertExpectations(t)
		mockEmail.AssertExpectations(t)
	})

	t.Run("Failure - Recipient still unknown uses up an attempt", func(t *testing.T) {
		// Arrange
		svc, mockRepo, mockUsers, mockEmail := setupNotificationServiceTest()
		userID := uuid.New()
		deferred := failed("Order confirmation")
		deferred.Recipient = ""
		deferred.Metadata = json.RawMessage(`{"user_id":"` + userID.String() + `"}`)

		mockRepo.On("ListRetryable", mock.Anything, 3, 50).Return([]*models.Notification{deferred}, nil).Once()
		mockUsers.On("GetUserByID", mock.Anything, userID).Return(nil, errors.New("accounts: timeout")).Once()
		mockRepo.On("UpdateNotificationStatus", mock.Anything, deferred.ID, models.StatusFailed, mock.MatchedBy(func(msg string) bool {
			return strings.Contains(msg, "accounts: timeout")
		})).Return(nil).Once()

		// Act
		delivered, err := svc.RetryFailed(t.Context())

		// Assert
		require.NoError(t, err)
		assert.Zero(t, delivered)
		assert.Equal(t, 2, deferred.Attempts)
		mockEmail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Failure - Listing fails", func(t *testing.T) {
		svc, mockRepo, _, _ := setupNotificationServiceTest()
		mockRepo.On("ListRetryable", mock.Anything, 3, 50).Return(nil, errors.New("db down")).Once()

		delivered, err := svc.RetryFailed(t.Context())

		require.Error(t, err)
		assert.Zero(t, delivered)
	})
}

func TestNotificationService_RunRetryLoop(t *testing.T) {
	// Arrange
	svc, mockRepo, _, _ := setupNotificationServiceTest()
	polled := make(chan struct{}, 1)

	mockRepo.On("ListRetryable", mock.Anything, 3, 50).Return([]*models.Notification{}, nil).Run(func(mock.Arguments) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})

	// Act
	go func() {
		svc.RunRetryLoop(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("retry loop never polled")
	}

	cancel()

	// Assert
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop after cancellation")
	}
}
