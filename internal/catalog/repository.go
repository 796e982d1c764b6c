package catalog

import (
	"context"
	"database/sql"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Repository reads the product catalog and answers the checkout pipeline's
// stock queries.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, in_stock
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.InStock); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *Repository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, in_stock
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.Name, &p.Price, &p.InStock)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

// IsInStock implements the orchestrator's stock collaborator. An unknown
// product counts as out of stock; a query failure propagates as an error.
func (r *Repository) IsInStock(ctx context.Context, productID string) (bool, error) {
	var inStock bool
	err := r.db.QueryRowContext(ctx, `
		SELECT in_stock FROM products WHERE id = $1
	`, productID).Scan(&inStock)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return inStock, nil
}

// SetStock flips a product's availability. Returns false if the product
// does not exist.
func (r *Repository) SetStock(ctx context.Context, productID string, inStock bool) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET in_stock = $1 WHERE id = $2
	`, inStock, productID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
