// Package nonces provides the nonce store: short-lived, single-use wallet
// authentication challenges keyed by wallet address.
package nonces

import (
	"context"
	"time"

	"github.com/rendlabs/rend/internal/server/models"
)

// Repository persists challenge nonces. Redeem is the anti-replay primitive:
// it must mark a matching unused, unexpired nonce as used atomically, so that
// concurrent redemptions of the same nonce see at most one success.
type Repository interface {
	Create(ctx context.Context, walletAddress, nonce string, validity time.Duration) (*models.Nonce, error)

	// Redeem atomically flips used=false to used=true for the matching
	// unexpired nonce. Returns shared.ErrorNotFound when the nonce is
	// absent, already used, or past its expiry.
	Redeem(ctx context.Context, walletAddress, nonce string) error

	// DeleteExpired evicts nonces past their expiry and reports how many
	// rows went away. Runs periodically from the janitor.
	DeleteExpired(ctx context.Context) (int64, error)
}
