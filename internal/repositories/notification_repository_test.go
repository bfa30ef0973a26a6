package repository_test

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notificationColumns = []string{"id", "type", "recipient", "subject", "content", "html_content", "status", "error_message", "attempts", "metadata", "created_at", "updated_at"}

func setupNotificationRepoTest(t *testing.T) (repository.NotificationRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	t.Cleanup(func() {
		db.Close()
	})

	return repository.NewNotificationRepo(db), mock
}

func TestCreateNotification(t *testing.T) {
	repo, mock := setupNotificationRepoTest(t)
	ctx := t.Context()
	insertSQL := regexp.QuoteMeta(`INSERT INTO notifications (id, type, recipient, subject, content, html_content, status, error_message, attempts, metadata, created_at, updated_at)`)

	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      models.NotificationTypeEmail,
		Recipient: "fan@example.com",
		Subject:   "Your order is confirmed",
		Content:   "Thanks",
		Status:    models.StatusPending,
		Metadata:  json.RawMessage(`{"order_id":"1"}`),
	}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		now := time.Now()
		mock.ExpectQuery(insertSQL).
			WithArgs(notification.ID, "email", "fan@example.com", "Your order is confirmed", "Thanks", "", "pending", "", 0, []byte(`{"order_id":"1"}`)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		// Act
		err := repo.CreateNotification(ctx, notification)

		// Assert
		require.NoError(t, err)
		assert.WithinDuration(t, now, notification.CreatedAt, time.Second)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error", func(t *testing.T) {
		// Arrange
		mock.ExpectQuery(insertSQL).WillReturnError(errors.New("insert failed"))

		// Act
		err := repo.CreateNotification(ctx, notification)

		// Assert
		assert.ErrorContains(t, err, "failed to create notification")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateNotificationStatus(t *testing.T) {
	repo, mock := setupNotificationRepoTest(t)
	ctx := t.Context()
	id := uuid.New()
	updateSQL := regexp.QuoteMeta(`UPDATE notifications SET status = $1, error_message = $2, attempts = attempts + 1, updated_at = NOW() WHERE id = $3`)

	t.Run("Records the attempt", func(t *testing.T) {
		mock.ExpectExec(updateSQL).WithArgs("failed", "503 from provider", id).WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateNotificationStatus(ctx, id, models.StatusFailed, "503 from provider")

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectExec(updateSQL).WithArgs("sent", "", id).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateNotificationStatus(ctx, id, models.StatusSent, "")

		assert.ErrorIs(t, err, repository.ErrNotificationNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetNotificationByID(t *testing.T) {
	repo, mock := setupNotificationRepoTest(t)
	ctx := t.Context()
	id := uuid.New()
	selectSQL := regexp.QuoteMeta(`FROM notifications WHERE id = $1`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(selectSQL).WithArgs(id).
			WillReturnRows(sqlmock.NewRows(notificationColumns).
				AddRow(id, "email", "fan@example.com", "Subject", "Body", "<p>Body</p>", "sent", "", 1, nil, time.Now(), time.Now()))

		n, err := repo.GetNotificationByID(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, n.Status)
		assert.Equal(t, "<p>Body</p>", n.HTMLContent)
		assert.Nil(t, n.Metadata)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery(selectSQL).WithArgs(id).WillReturnRows(sqlmock.NewRows(notificationColumns))

		_, err := repo.GetNotificationByID(ctx, id)

		assert.ErrorIs(t, err, repository.ErrNotificationNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListRetryable(t *testing.T) {
	repo, mock := setupNotificationRepoTest(t)
	ctx := t.Context()
	listSQL := regexp.QuoteMeta(`FROM notifications WHERE status = $1 AND attempts < $2 ORDER BY created_at LIMIT $3`)

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mock.ExpectQuery(listSQL).WithArgs("failed", 5, 50).
			WillReturnRows(sqlmock.NewRows(notificationColumns).
				AddRow(uuid.New(), "email", "a@example.com", "S", "B", "", "failed", "timeout", 1, []byte(`{"order_id":"1"}`), time.Now(), time.Now()).
				AddRow(uuid.New(), "email", "b@example.com", "S", "B", "", "failed", "timeout", 3, nil, time.Now(), time.Now()))

		// Act
		list, err := repo.ListRetryable(ctx, 5, 50)

		// Assert
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.JSONEq(t, `{"order_id":"1"}`, string(list[0].Metadata))
		assert.Equal(t, 3, list[1].Attempts)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Query error", func(t *testing.T) {
		// Arrange
		mock.ExpectQuery(listSQL).WillReturnError(errors.New("timeout"))

		// Act
		_, err := repo.ListRetryable(ctx, 5, 50)

		// Assert
		assert.ErrorContains(t, err, "failed to query notifications")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
