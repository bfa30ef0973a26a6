package repository_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserByID(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewUserRepo(db)
	ctx := t.Context()
	userID := uuid.New()
	expectedSQL := regexp.QuoteMeta(`SELECT id, name, email, created_at, updated_at FROM users WHERE id = $1`)
	columns := []string{"id", "name", "email", "created_at", "updated_at"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(expectedSQL).WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(userID, "Ada", "ada@example.com", time.Now(), time.Now()))

		user, err := repo.GetUserByID(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery(expectedSQL).WithArgs(userID).WillReturnRows(sqlmock.NewRows(columns))

		user, err := repo.GetUserByID(ctx, userID)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
