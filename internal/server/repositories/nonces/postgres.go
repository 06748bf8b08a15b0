package nonces

import (
	"context"
	"fmt"
	"time"

	"github.com/rendlabs/rend/internal/dbx"
	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/shared"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new unused nonce for walletAddress expiring after validity.
// Existing unused nonces for the same address stay valid.
func (r *PostgresRepository) Create(ctx context.Context, walletAddress, nonce string, validity time.Duration) (*models.Nonce, error) {
	query := `
		INSERT INTO nonces (wallet_address, nonce, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	n := &models.Nonce{
		WalletAddress: walletAddress,
		Nonce:         nonce,
		ExpiresAt:     time.Now().Add(validity),
	}
	err := r.db.QueryRowContext(ctx, query, n.WalletAddress, n.Nonce, n.ExpiresAt).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return n, nil
}

// Redeem is a single-statement compare-and-set: only an unused, unexpired
// nonce row flips to used. The row count decides success, so two concurrent
// redemptions of the same nonce cannot both win.
func (r *PostgresRepository) Redeem(ctx context.Context, walletAddress, nonce string) error {
	query := `
		UPDATE nonces
		SET used = true
		WHERE wallet_address = $1 AND nonce = $2 AND used = false AND expires_at > now()
	`

	res, err := r.db.ExecContext(ctx, query, walletAddress, nonce)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return shared.ErrorNotFound
	}

	return nil
}

// DeleteExpired purges nonces whose expiry has passed, used or not.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nonces WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return affected, nil
}

var _ Repository = (*PostgresRepository)(nil)
