package orders

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a freshly minted order with its lines. The order id is the
// customer-facing ORD token and the table's primary key, so an id collision
// fails loudly here instead of overwriting.
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, subtotal, promo_code, discount_percent, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, order.ID, order.CustomerID, order.Subtotal, order.PromoCode,
		order.DiscountPercent, order.Total, order.Status, order.CreatedAt)
	if err != nil {
		return err
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, line_no, product_id, name, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), order.ID, i, line.ProductID, line.Name, line.UnitPrice)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, subtotal, promo_code, discount_percent, total, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerID, &order.Subtotal, &order.PromoCode,
		&order.DiscountPercent, &order.Total, &order.Status, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price
		FROM order_lines
		WHERE order_id = $1
		ORDER BY line_no
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ProductID, &line.Name, &line.UnitPrice); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// ListByCustomer returns a customer's orders, newest first, lines loaded in
// one batch.
func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, subtotal, promo_code, discount_percent, total, status, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.Subtotal, &order.PromoCode,
			&order.DiscountPercent, &order.Total, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Lines = []domain.CartLine{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, unit_price
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY line_no
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var orderID string
		var line domain.CartLine
		if err := lineRows.Scan(&orderID, &line.ProductID, &line.Name, &line.UnitPrice); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		out = append(out, *orderMap[id])
	}

	return out, nil
}
