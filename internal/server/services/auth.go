// Package services contains server-side business logic. This file implements
// AuthService, which resolves identities across the password, wallet, and
// Google strategies and mints session tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rendlabs/rend/internal/dbx"
	"github.com/rendlabs/rend/internal/logging"
	"github.com/rendlabs/rend/internal/server/auth"
	"github.com/rendlabs/rend/internal/server/config"
	"github.com/rendlabs/rend/internal/server/googleauth"
	"github.com/rendlabs/rend/internal/server/mail"
	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/server/repositories/repomanager"
	"github.com/rendlabs/rend/internal/server/wallet"
	"github.com/rendlabs/rend/internal/shared"
)

const (
	minPasswordLength = 6
	nonceByteLength   = 32
	resetTokenBytes   = 20
)

// AuthResult is what every successful authentication returns, regardless of
// strategy: a signed session token and the resolved user.
type AuthResult struct {
	Token string
	User  *models.User
}

// NonceChallenge is the server half of the wallet handshake: the raw nonce
// and the exact message the wallet must sign.
type NonceChallenge struct {
	Nonce   string
	Message string
}

// AuthService implements all authentication strategies:
//   - Register / Login: email+password with bcrypt
//   - IssueNonce / AuthenticateWallet: signature challenge for EVM and Solana
//   - AuthenticateGoogle / ExchangeGoogleCode: federated Google identity
//   - RequestPasswordReset / ResetPassword: reset-token lifecycle
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	verifiers   wallet.Verifiers
	google      googleauth.Verifier
	mailer      mail.Mailer
	logger      logging.Logger
}

// NewAuthService constructs an AuthService from its collaborators.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	verifiers wallet.Verifiers, google googleauth.Verifier, mailer mail.Mailer,
	logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		config:      cfg,
		verifiers:   verifiers,
		google:      google,
		mailer:      mailer,
		logger:      logger,
	}
}

// Register creates a password-credentialed user. Email collisions are
// reported before username collisions when both would apply.
func (s *AuthService) Register(ctx context.Context, username, email, password, role string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters long", shared.ErrorValidation, minPasswordLength)
	}

	repo := s.repomanager.Users(s.db)

	existing, err := repo.GetByEmailOrUsername(ctx, email, username)
	if err == nil {
		if existing.Email == email {
			return nil, shared.ErrorEmailExists
		}
		return nil, shared.ErrorUsernameExists
	}
	if !errors.Is(err, shared.ErrorNotFound) {
		return nil, shared.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, shared.ErrorAlreadyExists) {
			// lost a race with a concurrent registration
			if raced, lookupErr := repo.GetByEmailOrUsername(ctx, email, username); lookupErr == nil {
				if raced.Email == email {
					return nil, shared.ErrorEmailExists
				}
				return nil, shared.ErrorUsernameExists
			}
			return nil, shared.ErrorAlreadyExists
		}
		if errors.Is(err, shared.ErrorValidation) {
			return nil, err
		}
		return nil, shared.ErrorInternal
	}

	return s.authResult(created)
}

// Login verifies an email-or-username plus password pair. Every failure mode
// collapses into ErrorInvalidCredentials so callers cannot probe which
// accounts exist.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmailOrUsername(ctx, strings.ToLower(strings.TrimSpace(identifier)), strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorInvalidCredentials
		}
		return nil, shared.ErrorInternal
	}

	if user.PasswordHash == "" {
		return nil, shared.ErrorInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.ErrorInvalidCredentials
	}

	return s.authResult(user)
}

// Me loads the user bound to an already-verified session token.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorNotFound
		}
		return nil, shared.ErrorInternal
	}
	return user, nil
}

// IssueNonce creates a fresh single-use challenge for the given wallet and
// returns both the nonce and the message the wallet must sign.
func (s *AuthService) IssueNonce(ctx context.Context, address, scheme string) (*NonceChallenge, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: wallet address is required", shared.ErrorValidation)
	}
	if !models.ValidWalletScheme(scheme) {
		return nil, fmt.Errorf("%w: unsupported wallet scheme %q", shared.ErrorValidation, scheme)
	}
	address = wallet.NormalizeAddress(address, scheme)

	nonce, err := shared.MakeRandHexString(nonceByteLength)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	if _, err := s.repomanager.Nonces(s.db).Create(ctx, address, nonce, s.config.NonceValidity); err != nil {
		return nil, shared.ErrorInternal
	}

	return &NonceChallenge{Nonce: nonce, Message: wallet.CreateAuthMessage(nonce)}, nil
}

// AuthenticateWallet completes the wallet handshake. The nonce is redeemed
// before the signature is checked, so a failed signature still burns the
// nonce and the client must request a new challenge.
func (s *AuthService) AuthenticateWallet(ctx context.Context, address, scheme, signature, message string) (*AuthResult, error) {
	if address == "" || signature == "" {
		return nil, fmt.Errorf("%w: wallet address and signature are required", shared.ErrorValidation)
	}
	verifier, ok := s.verifiers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported wallet scheme %q", shared.ErrorValidation, scheme)
	}
	address = wallet.NormalizeAddress(address, scheme)

	nonce, ok := wallet.ExtractNonce(message)
	if !ok {
		return nil, shared.ErrorInvalidMessage
	}

	if err := s.repomanager.Nonces(s.db).Redeem(ctx, address, nonce); err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorInvalidNonce
		}
		return nil, shared.ErrorInternal
	}

	if !verifier.VerifySignature(message, signature, address) {
		return nil, shared.ErrorInvalidSignature
	}

	user, err := s.findOrCreateWalletUser(ctx, address, scheme)
	if err != nil {
		return nil, err
	}
	return s.authResult(user)
}

func (s *AuthService) findOrCreateWalletUser(ctx context.Context, address, scheme string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByWalletAddress(ctx, address)
	if err == nil {
		if !user.WalletAuthenticated {
			user.WalletAuthenticated = true
			if updErr := repo.Update(ctx, user); updErr != nil {
				return nil, shared.ErrorInternal
			}
		}
		return user, nil
	}
	if !errors.Is(err, shared.ErrorNotFound) {
		return nil, shared.ErrorInternal
	}

	created, err := repo.Create(ctx, &models.User{
		WalletAddress:       address,
		WalletScheme:        scheme,
		WalletAuthenticated: true,
		Role:                models.RoleCreator,
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, shared.ErrorAlreadyExists) {
		// a concurrent handshake for the same wallet created the row first
		if raced, lookupErr := repo.GetByWalletAddress(ctx, address); lookupErr == nil {
			return raced, nil
		}
	}
	return nil, shared.ErrorInternal
}

// AuthenticateGoogle verifies a Google ID token and resolves it to a user,
// linking by email when the Google ID is new.
func (s *AuthService) AuthenticateGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	if !s.google.IsConfigured() {
		return nil, shared.ErrorGoogleNotConfigured
	}
	claims, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, shared.ErrorInvalidGoogleToken
	}

	user, err := s.resolveGoogleUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.authResult(user)
}

// GoogleAuthURL returns the consent-screen URL for the configured client.
func (s *AuthService) GoogleAuthURL() (string, error) {
	if !s.google.IsConfigured() {
		return "", shared.ErrorGoogleNotConfigured
	}
	return s.google.AuthCodeURL(), nil
}

// ExchangeGoogleCode completes the server-side OAuth flow: it swaps the
// authorization code for an ID token and resolves the identity the same way
// AuthenticateGoogle does.
func (s *AuthService) ExchangeGoogleCode(ctx context.Context, code string) (*AuthResult, error) {
	if !s.google.IsConfigured() {
		return nil, shared.ErrorGoogleNotConfigured
	}
	claims, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		return nil, shared.ErrorInvalidGoogleToken
	}

	user, err := s.resolveGoogleUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.authResult(user)
}

// resolveGoogleUser maps verified Google claims onto a user record. Order
// matters: an existing user with this Google ID wins; otherwise an existing
// user with the same email gets the Google identity linked; otherwise a new
// user is created. Repeated logins are idempotent and never duplicate users.
func (s *AuthService) resolveGoogleUser(ctx context.Context, claims *googleauth.Claims) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByGoogleID(ctx, claims.GoogleID)
	if err == nil {
		if !user.GoogleAuthenticated {
			user.GoogleAuthenticated = true
			if updErr := repo.Update(ctx, user); updErr != nil {
				return nil, shared.ErrorInternal
			}
		}
		return user, nil
	}
	if !errors.Is(err, shared.ErrorNotFound) {
		return nil, shared.ErrorInternal
	}

	email := strings.ToLower(claims.Email)
	if email != "" {
		user, err = repo.GetByEmail(ctx, email)
		if err == nil {
			user.GoogleID = claims.GoogleID
			user.GoogleAuthenticated = true
			if updErr := repo.Update(ctx, user); updErr != nil {
				return nil, shared.ErrorInternal
			}
			return user, nil
		}
		if !errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorInternal
		}
	}

	created, err := repo.Create(ctx, &models.User{
		Username:            deriveGoogleUsername(claims),
		Email:               email,
		GoogleID:            claims.GoogleID,
		GoogleAuthenticated: true,
		Role:                models.RoleCreator,
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, shared.ErrorAlreadyExists) {
		// a concurrent login with the same Google account created the row
		if raced, lookupErr := repo.GetByGoogleID(ctx, claims.GoogleID); lookupErr == nil {
			return raced, nil
		}
	}
	return nil, shared.ErrorInternal
}

// deriveGoogleUsername collapses whitespace out of the display name and
// lowercases it; when that yields nothing usable it falls back to a handle
// built from the Google subject.
func deriveGoogleUsername(claims *googleauth.Claims) string {
	slug := strings.ToLower(strings.Join(strings.Fields(claims.Name), ""))
	if len(slug) >= 3 {
		return slug
	}

	sub := claims.GoogleID
	if len(sub) > 8 {
		sub = sub[len(sub)-8:]
	}
	return "user_" + sub
}

// RequestPasswordReset starts the reset flow. The result is deliberately
// uniform for known and unknown emails; only a mail-delivery failure for an
// existing account surfaces as an error, after rolling the token back.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			s.logger.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return shared.ErrorInternal
	}

	token, err := shared.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return shared.ErrorInternal
	}

	expires := time.Now().Add(s.config.ResetTokenValidity)
	user.ResetTokenHash = shared.HashTokenHex(token)
	user.ResetTokenExpires = &expires
	if err := repo.Update(ctx, user); err != nil {
		return shared.ErrorInternal
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "Password reset",
		Body: "You requested a password reset. Submit your new password to " +
			"/api/auth/reset-password/" + token + " within the next hour. " +
			"If you did not request this, ignore this email.",
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "reset email delivery failed", "error", err)
		user.ClearResetToken()
		if updErr := repo.Update(ctx, user); updErr != nil {
			s.logger.Error(ctx, "failed to roll back reset token", "error", updErr)
		}
		return shared.ErrorMailDelivery
	}

	return nil
}

// ResetPassword redeems a reset token and installs the new password. The
// token is matched by digest and its expiry is exclusive. A successful reset
// consumes the token and logs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*AuthResult, error) {
	if len(newPassword) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters long", shared.ErrorValidation, minPasswordLength)
	}

	user, err := s.repomanager.Users(s.db).GetByResetTokenHash(ctx, shared.HashTokenHex(token))
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorInvalidResetToken
		}
		return nil, shared.ErrorInternal
	}
	if !user.ResetTokenValid(time.Now()) {
		return nil, shared.ErrorInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	user.PasswordHash = string(hash)
	user.ClearResetToken()

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Update(ctx, user)
	}); err != nil {
		return nil, shared.ErrorInternal
	}

	return s.authResult(user)
}

// PurgeExpiredNonces evicts stale challenges. Called from the janitor.
func (s *AuthService) PurgeExpiredNonces(ctx context.Context) (int64, error) {
	return s.repomanager.Nonces(s.db).DeleteExpired(ctx)
}

func (s *AuthService) authResult(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(user.ID, []byte(s.config.SecretKey), s.config.SessionTokenValidity)
	if err != nil {
		return nil, shared.ErrorInternal
	}
	return &AuthResult{Token: token, User: user}, nil
}
