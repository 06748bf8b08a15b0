// Package models defines the persistent entities of the identity service and
// the invariant checks that run before any of them is written to the store.
package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rendlabs/rend/internal/shared"
)

// Roles a user can hold. Exactly one is required.
const (
	RoleCreator  = "creator"
	RoleReviewer = "reviewer"
)

// Wallet schemes supported for signature authentication.
const (
	WalletSchemeEVM    = "evm"
	WalletSchemeSolana = "solana"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// User is one authenticatable principal. A user holds at least one of three
// credentials: a password, a verified wallet, or a linked Google identity.
// Password-only accounts additionally require a username and an email.
// Username, email, wallet address and Google ID are each globally unique when
// present; absence does not collide (sparse uniqueness, NULL in the store).
//
// PasswordHash and the reset-token fields never leave the server.
type User struct {
	ID                  string
	Username            string
	Email               string
	PasswordHash        string
	WalletAddress       string
	WalletScheme        string
	WalletAuthenticated bool
	GoogleID            string
	GoogleAuthenticated bool
	Role                string
	ResetTokenHash      string
	ResetTokenExpires   *time.Time
	CreatedAt           time.Time
}

// HasCredential reports whether at least one authentication strategy is
// attached to the user.
func (u *User) HasCredential() bool {
	return u.PasswordHash != "" || u.WalletAddress != "" || u.GoogleID != ""
}

// Validate enforces the entity invariants. It is run before persistence;
// repositories never see an invalid user.
func (u *User) Validate() error {
	if !u.HasCredential() {
		return fmt.Errorf("%w: user needs a password, wallet, or google credential", shared.ErrorValidation)
	}
	if u.Role != RoleCreator && u.Role != RoleReviewer {
		return fmt.Errorf("%w: role must be %q or %q", shared.ErrorValidation, RoleCreator, RoleReviewer)
	}
	// password-only accounts resolve by email or username at login, so both
	// are required unless a wallet or Google identity is attached
	if u.WalletAddress == "" && u.GoogleID == "" {
		if u.Username == "" {
			return fmt.Errorf("%w: username is required", shared.ErrorValidation)
		}
		if u.Email == "" {
			return fmt.Errorf("%w: email is required", shared.ErrorValidation)
		}
	}
	if u.Username != "" && len(u.Username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters long", shared.ErrorValidation)
	}
	if u.Email != "" && !emailPattern.MatchString(u.Email) {
		return fmt.Errorf("%w: please provide a valid email", shared.ErrorValidation)
	}
	if u.WalletAddress != "" && u.WalletScheme != WalletSchemeEVM && u.WalletScheme != WalletSchemeSolana {
		return fmt.Errorf("%w: wallet scheme must be %q or %q", shared.ErrorValidation, WalletSchemeEVM, WalletSchemeSolana)
	}
	return nil
}

// ValidWalletScheme reports whether scheme names a supported wallet scheme.
func ValidWalletScheme(scheme string) bool {
	return scheme == WalletSchemeEVM || scheme == WalletSchemeSolana
}

// ValidEmail reports whether email looks like an RFC-shaped address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ResetTokenValid reports whether the stored reset token is present and not
// yet expired at instant now. The expiry is exclusive: a token checked
// exactly at its expiry instant is invalid.
func (u *User) ResetTokenValid(now time.Time) bool {
	if u.ResetTokenHash == "" || u.ResetTokenExpires == nil {
		return false
	}
	return u.ResetTokenExpires.After(now)
}

// ClearResetToken removes the reset-token fields from the user.
func (u *User) ClearResetToken() {
	u.ResetTokenHash = ""
	u.ResetTokenExpires = nil
}
