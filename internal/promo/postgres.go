package promo

import (
	"context"
	"database/sql"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// PostgresStore persists promos and the usage ledger. Redemption relies on a
// conditional UPDATE plus the (code, customer_id) primary key on
// promo_usages, so the use cap and once-per-customer rule hold under
// concurrent transactions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*domain.PromoCode, error) {
	promo := &domain.PromoCode{}

	err := s.db.QueryRowContext(ctx, `
		SELECT code, discount_percent, expires_at, max_uses, current_uses, is_active, created_at
		FROM promos
		WHERE code = $1
	`, code).Scan(&promo.Code, &promo.DiscountPercent, &promo.ExpiresAt,
		&promo.MaxUses, &promo.CurrentUses, &promo.IsActive, &promo.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return promo, nil
}

func (s *PostgresStore) Create(ctx context.Context, promo *domain.PromoCode) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO promos (code, discount_percent, expires_at, max_uses, current_uses, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO NOTHING
	`, promo.Code, promo.DiscountPercent, promo.ExpiresAt,
		promo.MaxUses, promo.CurrentUses, promo.IsActive, promo.CreatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrExists
	}
	return nil
}

func (s *PostgresStore) SetActive(ctx context.Context, code string, active bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE promos SET is_active = $1 WHERE code = $2
	`, active, code)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the promo row only. promo_usages has no foreign key on
// purpose: usage history outlives the code.
func (s *PostgresStore) Delete(ctx context.Context, code string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM promos WHERE code = $1`, code)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Redeem(ctx context.Context, code, customerID string) (*domain.PromoCode, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// The primary key catches repeat redemptions by the same customer.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO promo_usages (code, customer_id, redeemed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (code, customer_id) DO NOTHING
	`, code, customerID)
	if err != nil {
		return nil, err
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if inserted == 0 {
		return nil, ErrAlreadyRedeemed
	}

	// Conditional increment: zero rows means the code is missing, inactive,
	// expired or out of uses, never that two racers both got the last use.
	promo := &domain.PromoCode{}
	err = tx.QueryRowContext(ctx, `
		UPDATE promos
		SET current_uses = current_uses + 1
		WHERE code = $1 AND is_active AND expires_at > NOW() AND current_uses < max_uses
		RETURNING code, discount_percent, expires_at, max_uses, current_uses, is_active, created_at
	`, code).Scan(&promo.Code, &promo.DiscountPercent, &promo.ExpiresAt,
		&promo.MaxUses, &promo.CurrentUses, &promo.IsActive, &promo.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, s.diagnoseRedeemFailure(ctx, code)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *PostgresStore) diagnoseRedeemFailure(ctx context.Context, code string) error {
	promo, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	switch {
	case promo == nil:
		return ErrNotFound
	case !promo.IsActive:
		return ErrInactive
	case promo.Exhausted():
		return ErrExhausted
	default:
		return ErrExpired
	}
}

func (s *PostgresStore) HasRedeemed(ctx context.Context, code, customerID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM promo_usages WHERE code = $1 AND customer_id = $2
		)
	`, code, customerID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) CustomerCodes(ctx context.Context, customerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code
		FROM promo_usages
		WHERE customer_id = $1
		ORDER BY redeemed_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}
