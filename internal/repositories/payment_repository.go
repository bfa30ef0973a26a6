package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/jerseyshop/storefront-api/internal/utils"
)

var (
	ErrIntentNotFound          = errors.New("payment intent record not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// PaymentRepository stores which gateway intent was issued for each checkout attempt.
type PaymentRepository interface {
	CreateIntentRecord(ctx context.Context, record *models.PaymentIntentRecord) error
	GetIntentByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntentRecord, error)
	UpdateIntentStatus(ctx context.Context, intentID string, status models.IntentStatus) error
}

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepository {
	return &paymentRepository{DB: db}
}

func (r *paymentRepository) CreateIntentRecord(ctx context.Context, record *models.PaymentIntentRecord) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO checkout_payments (intent_id, idempotency_key, user_id, cart_id, amount_minor, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.DB.QueryRowContext(dbCtx, query, record.IntentID, record.IdempotencyKey, record.UserID, record.CartID, record.AmountMinor, record.Currency, record.Status).
		Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdempotencyKey
		}

		return fmt.Errorf("failed to insert payment intent record: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetIntentByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntentRecord, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT intent_id, idempotency_key, user_id, cart_id, amount_minor, currency, status, created_at, updated_at
		FROM checkout_payments
		WHERE idempotency_key = $1
	`

	record := &models.PaymentIntentRecord{}

	err := r.DB.QueryRowContext(dbCtx, query, key).Scan(&record.IntentID, &record.IdempotencyKey, &record.UserID, &record.CartID,
		&record.AmountMinor, &record.Currency, &record.Status, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIntentNotFound
		}

		return nil, fmt.Errorf("failed to get payment intent record: %w", err)
	}

	return record, nil
}

func (r *paymentRepository) UpdateIntentStatus(ctx context.Context, intentID string, status models.IntentStatus) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE checkout_payments SET status = $1, updated_at = NOW()
		WHERE intent_id = $2
	`

	result, err := r.DB.ExecContext(dbCtx, query, status, intentID)
	if err != nil {
		return fmt.Errorf("failed to update payment intent status: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return ErrIntentNotFound
	}

	return nil
}
