package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/jerseyshop/storefront-api/internal/utils"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("cart line not found")
)

// CartMutation edits the locked cart aggregate and reports the one line it touched.
type CartMutation func(cart *models.Cart) (*models.CartLineChange, error)

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	MutateCart(ctx context.Context, userID uuid.UUID, createIfMissing bool, mutate CartMutation) (*models.Cart, error)
	GetLineOwner(ctx context.Context, lineID uuid.UUID) (uuid.UUID, error)
}

type cartRepository struct {
	DB *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepository {
	return &cartRepository{DB: db}
}

const insertCartIfMissing = `
		INSERT INTO carts (id, user_id, total, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`

// GetOrCreateCart relies on the unique user_id constraint, so concurrent first
// calls for the same user still end up with a single cart.
func (r *cartRepository) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := r.DB.ExecContext(dbCtx, insertCartIfMissing, uuid.New(), userID); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return r.getCart(dbCtx, r.DB, userID, false)
}

func (r *cartRepository) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	return r.getCart(dbCtx, r.DB, userID, false)
}

// MutateCart locks the user's cart row, applies mutate to the loaded aggregate
// and persists the touched line together with the recomputed total.
// Errors returned by mutate are passed through unchanged and nothing is written.
func (r *cartRepository) MutateCart(ctx context.Context, userID uuid.UUID, createIfMissing bool, mutate CartMutation) (*models.Cart, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var cart *models.Cart

	err := withTx(dbCtx, r.DB, func(tx *sql.Tx) error {
		if createIfMissing {
			if _, err := tx.ExecContext(dbCtx, insertCartIfMissing, uuid.New(), userID); err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
		}

		locked, err := r.getCart(dbCtx, tx, userID, true)
		if err != nil {
			return err
		}

		change, err := mutate(locked)
		if err != nil {
			return err
		}

		if change != nil {
			if err := applyLineChange(dbCtx, tx, change); err != nil {
				return err
			}
		}

		query := `
			UPDATE carts SET total = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING updated_at
		`

		if err := tx.QueryRowContext(dbCtx, query, locked.Total, locked.ID).Scan(&locked.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update cart total: %w", err)
		}

		cart = locked

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

func (r *cartRepository) GetLineOwner(ctx context.Context, lineID uuid.UUID) (uuid.UUID, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT c.user_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = $1
	`

	var owner uuid.UUID

	err := r.DB.QueryRowContext(dbCtx, query, lineID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrLineNotFound
		}

		return uuid.Nil, fmt.Errorf("failed to get cart line owner: %w", err)
	}

	return owner, nil
}

func (r *cartRepository) getCart(ctx context.Context, q queryer, userID uuid.UUID, forUpdate bool) (*models.Cart, error) {
	query := `
		SELECT id, user_id, total, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	cart := &models.Cart{}

	err := q.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.Total, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}

		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines, err := loadCartLines(ctx, q, cart.ID)
	if err != nil {
		return nil, err
	}

	cart.Lines = lines
	cart.Recalculate()

	return cart, nil
}

func applyLineChange(ctx context.Context, tx *sql.Tx, change *models.CartLineChange) error {
	line := change.Line

	switch change.Kind {
	case models.LineInserted:
		query := `
			INSERT INTO cart_items (id, cart_id, product_id, quantity, price, options, options_key, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		`

		if _, err := tx.ExecContext(ctx, query, line.ID, line.CartID, line.ProductID, line.Quantity, line.Price, line.Options, line.Options.Key(), line.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
	case models.LineUpdated:
		query := `
			UPDATE cart_items SET quantity = $1, updated_at = $2
			WHERE id = $3
		`

		if _, err := tx.ExecContext(ctx, query, line.Quantity, line.UpdatedAt, line.ID); err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
	case models.LineDeleted:
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, line.ID); err != nil {
			return fmt.Errorf("failed to delete cart item: %w", err)
		}
	default:
		return fmt.Errorf("unknown cart line change %d", change.Kind)
	}

	return nil
}
