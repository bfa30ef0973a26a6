package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/models"
	"github.com/jerseyshop/storefront-api/internal/utils"
	"github.com/lib/pq"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrCartChanged       = errors.New("cart changed after payment")
)

type OrderRepository interface {
	// FinalizeOrder turns the user's cart into an order in one transaction.
	// The bool result is true when an order for the payment intent already existed.
	FinalizeOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, bool, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]*models.Order, int, error)
	// ListOrders pages through every order regardless of owner.
	ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderRepository struct {
	DB *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepository {
	return &orderRepository{DB: db}
}

const orderColumns = `id, user_id, status, payment_status, total, currency, payment_intent_id,
		COALESCE(idempotency_key, ''), COALESCE(payment_method, ''),
		first_name, last_name, address1, COALESCE(address2, ''), city, state, zip, country, phone,
		created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	s := &order.Shipping

	err := row.Scan(&order.ID, &order.UserID, &order.Status, &order.PaymentStatus, &order.Total, &order.Currency, &order.PaymentIntentID,
		&order.IdempotencyKey, &order.PaymentMethod,
		&s.FirstName, &s.LastName, &s.Address1, &s.Address2, &s.City, &s.State, &s.Zip, &s.Country, &s.Phone,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// FinalizeOrder is bounded by the caller's context: the whole unit shares one deadline.
func (r *orderRepository) FinalizeOrder(ctx context.Context, draft *models.OrderDraft) (*models.Order, bool, error) {
	var (
		order    *models.Order
		replayed bool
	)

	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var (
			cartID uuid.UUID
			err    error
		)

		lockQuery := `
			SELECT id FROM carts
			WHERE user_id = $1
			FOR UPDATE
		`

		err = tx.QueryRowContext(ctx, lockQuery, draft.UserID).Scan(&cartID)
		if errors.Is(err, sql.ErrNoRows) {
			// a concurrent finalize may have consumed the cart already
			existing, lookupErr := r.orderByPaymentIntent(ctx, tx, draft.PaymentIntentID)
			if lookupErr == nil {
				order, replayed = existing, true
				return nil
			}

			if errors.Is(lookupErr, ErrOrderNotFound) {
				return ErrEmptyCart
			}

			return lookupErr
		}

		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		existing, err := r.orderByPaymentIntent(ctx, tx, draft.PaymentIntentID)
		if err == nil {
			order, replayed = existing, true
			return nil
		}

		if !errors.Is(err, ErrOrderNotFound) {
			return err
		}

		lines, err := loadCartLines(ctx, tx, cartID)
		if err != nil {
			return err
		}

		if len(lines) == 0 {
			return ErrEmptyCart
		}

		cart := &models.Cart{ID: cartID, UserID: draft.UserID, Lines: lines}
		cart.Recalculate()

		minor, ok := models.ToMinorUnits(cart.Total)
		if !ok || minor != draft.AmountMinor {
			return fmt.Errorf("%w: cart total %s does not match paid amount %d", ErrCartChanged, cart.Total, draft.AmountMinor)
		}

		for _, line := range lines {
			if _, ok := draft.ProductNames[line.ProductID]; !ok {
				return fmt.Errorf("%w: product %s was not reconciled", ErrCartChanged, line.ProductID)
			}
		}

		created, inserted, err := insertOrder(ctx, tx, draft, cart)
		if err != nil {
			return err
		}

		if !inserted {
			order, err = r.orderByPaymentIntent(ctx, tx, draft.PaymentIntentID)
			if err != nil {
				return err
			}

			replayed = true

			return nil
		}

		for _, line := range lines {
			item, err := insertOrderItem(ctx, tx, created.ID, line, draft.ProductNames[line.ProductID])
			if err != nil {
				return err
			}

			created.Items = append(created.Items, *item)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("failed to delete cart items: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}

		order = created

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return order, replayed, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, draft *models.OrderDraft, cart *models.Cart) (*models.Order, bool, error) {
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          draft.UserID,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusSucceeded,
		Total:           cart.Total,
		Currency:        draft.Currency,
		PaymentIntentID: draft.PaymentIntentID,
		IdempotencyKey:  draft.IdempotencyKey,
		PaymentMethod:   draft.PaymentMethod,
		Shipping:        draft.Shipping,
		Items:           []models.OrderItem{},
	}
	s := draft.Shipping

	query := `
		INSERT INTO orders (id, user_id, status, payment_status, total, currency, payment_intent_id, idempotency_key, payment_method,
			first_name, last_name, address1, address2, city, state, zip, country, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		ON CONFLICT (payment_intent_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowContext(ctx, query, order.ID, order.UserID, order.Status, order.PaymentStatus, order.Total, order.Currency,
		order.PaymentIntentID, nullString(order.IdempotencyKey), nullString(order.PaymentMethod),
		s.FirstName, s.LastName, s.Address1, nullString(s.Address2), s.City, s.State, s.Zip, s.Country, s.Phone,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to insert order: %w", err)
	}

	return order, true, nil
}

func insertOrderItem(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, line models.CartLine, productName string) (*models.OrderItem, error) {
	item := &models.OrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   line.ProductID,
		ProductName: productName,
		Quantity:    line.Quantity,
		Price:       line.Price,
		Options:     line.Options,
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, options, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	err := tx.QueryRowContext(ctx, query, item.ID, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Options).Scan(&item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order item: %w", err)
	}

	return item, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to get the order: %w", err)
	}

	if err := loadOrderItems(dbCtx, r.DB, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	return r.orderByPaymentIntent(dbCtx, r.DB, paymentIntentID)
}

func (r *orderRepository) orderByPaymentIntent(ctx context.Context, q queryer, paymentIntentID string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_intent_id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, paymentIntentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to get order by payment intent: %w", err)
	}

	if err := loadOrderItems(ctx, q, order); err != nil {
		return nil, err
	}

	return order, nil
}

// ListOrdersByUser returns one page of the user's orders, newest first, with their items.
func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	countQuery := `SELECT COUNT(*) FROM orders WHERE user_id = $1`
	if err := r.DB.QueryRowContext(dbCtx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	orders, err := r.queryOrderPage(dbCtx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var total int

	if err := r.DB.QueryRowContext(dbCtx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	orders, err := r.queryOrderPage(dbCtx, query, size, (page-1)*size)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// queryOrderPage runs a page query over orders and attaches each order's items.
func (r *orderRepository) queryOrderPage(ctx context.Context, query string, args ...any) ([]*models.Order, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	byID := map[uuid.UUID]*models.Order{}
	ids := []string{}

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan the orders: %w", err)
		}

		order.Items = []models.OrderItem{}
		orders = append(orders, order)
		byID[order.ID] = order
		ids = append(ids, order.ID.String())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, quantity, price, options, created_at
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY created_at, id
	`

	itemRows, err := r.DB.QueryContext(ctx, itemsQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get the order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.OrderItem

		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.Options, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over order items: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus moves an order to status only if its current status may
// transition there. The check and the write are one conditional UPDATE.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	sources := []string{}
	for _, from := range models.StatusesLeadingTo(status) {
		sources = append(sources, string(from))
	}

	query := `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
		RETURNING ` + orderColumns

	order, err := scanOrder(r.DB.QueryRowContext(dbCtx, query, status, id, pq.Array(sources)))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to update order status: %w", err)
		}

		var exists bool
		if err := r.DB.QueryRowContext(dbCtx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check order existence: %w", err)
		}

		if !exists {
			return nil, ErrOrderNotFound
		}

		return nil, ErrIllegalTransition
	}

	if err := loadOrderItems(dbCtx, r.DB, order); err != nil {
		return nil, err
	}

	return order, nil
}

func loadOrderItems(ctx context.Context, q queryer, order *models.Order) error {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, price, options, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.QueryContext(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get the order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}

	for rows.Next() {
		var item models.OrderItem

		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.Options, &item.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating over order items: %w", err)
	}

	order.Items = items

	return nil
}
