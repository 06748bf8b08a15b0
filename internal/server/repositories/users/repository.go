// Package users provides the credential store: persistence for user records
// keyed by their unique identifiers (email, username, wallet address,
// google id).
package users

import (
	"context"

	"github.com/rendlabs/rend/internal/server/models"
)

// Repository is the contract the identity resolver depends on. All lookups
// return shared.ErrorNotFound when no row matches; Create and Update return
// shared.ErrorAlreadyExists on a unique-constraint violation so callers can
// resolve find-or-create races.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	GetByWalletAddress(ctx context.Context, address string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
}
