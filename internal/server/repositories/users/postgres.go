package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rendlabs/rend/internal/dbx"
	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/shared"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, email, password_hash, wallet_address, wallet_scheme,
	wallet_authenticated, google_id, google_authenticated, role,
	reset_token_hash, reset_token_expires, created_at`

// Create validates and inserts a new user. The ID is generated here; the
// created_at timestamp comes back from the database.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, wallet_address, wallet_scheme,
			wallet_authenticated, google_id, google_authenticated, role,
			reset_token_hash, reset_token_expires)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, nullable(user.Username), nullable(user.Email), nullable(user.PasswordHash),
		nullable(user.WalletAddress), nullable(user.WalletScheme), user.WalletAuthenticated,
		nullable(user.GoogleID), user.GoogleAuthenticated, user.Role,
		nullable(user.ResetTokenHash), user.ResetTokenExpires,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, shared.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Update overwrites the mutable fields of an existing user row.
func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, wallet_address = $5,
			wallet_scheme = $6, wallet_authenticated = $7, google_id = $8,
			google_authenticated = $9, role = $10, reset_token_hash = $11,
			reset_token_expires = $12
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		user.ID, nullable(user.Username), nullable(user.Email), nullable(user.PasswordHash),
		nullable(user.WalletAddress), nullable(user.WalletScheme), user.WalletAuthenticated,
		nullable(user.GoogleID), user.GoogleAuthenticated, user.Role,
		nullable(user.ResetTokenHash), user.ResetTokenExpires,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrorAlreadyExists
		}
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

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `WHERE email = $1`, email)
}

// GetByEmailOrUsername performs the combined duplicate lookup used at
// registration. When rows match both fields, the email match wins.
func (r *PostgresRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return r.getOne(ctx, `WHERE email = $1 OR username = $2 ORDER BY (email = $1) DESC LIMIT 1`, email, username)
}

func (r *PostgresRepository) GetByWalletAddress(ctx context.Context, address string) (*models.User, error) {
	return r.getOne(ctx, `WHERE wallet_address = $1`, address)
}

func (r *PostgresRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.getOne(ctx, `WHERE google_id = $1`, googleID)
}

func (r *PostgresRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.getOne(ctx, `WHERE reset_token_hash = $1`, tokenHash)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, args ...any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ` + where

	var (
		user              models.User
		username          sql.NullString
		email             sql.NullString
		passwordHash      sql.NullString
		walletAddress     sql.NullString
		walletScheme      sql.NullString
		googleID          sql.NullString
		resetTokenHash    sql.NullString
		resetTokenExpires sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &username, &email, &passwordHash, &walletAddress, &walletScheme,
		&user.WalletAuthenticated, &googleID, &user.GoogleAuthenticated, &user.Role,
		&resetTokenHash, &resetTokenExpires, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Username = username.String
	user.Email = email.String
	user.PasswordHash = passwordHash.String
	user.WalletAddress = walletAddress.String
	user.WalletScheme = walletScheme.String
	user.GoogleID = googleID.String
	user.ResetTokenHash = resetTokenHash.String
	if resetTokenExpires.Valid {
		expires := resetTokenExpires.Time
		user.ResetTokenExpires = &expires
	}

	return &user, nil
}

// nullable maps the empty string to NULL so sparse unique indexes never see
// colliding empties.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Repository = (*PostgresRepository)(nil)
