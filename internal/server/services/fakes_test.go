package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rendlabs/rend/internal/dbx"
	"github.com/rendlabs/rend/internal/server/googleauth"
	"github.com/rendlabs/rend/internal/server/mail"
	"github.com/rendlabs/rend/internal/server/models"
	"github.com/rendlabs/rend/internal/server/repositories/nonces"
	"github.com/rendlabs/rend/internal/server/repositories/users"
	"github.com/rendlabs/rend/internal/shared"
)

// fakeUsersRepo is an in-memory users.Repository that emulates the store's
// sparse unique indexes.
type fakeUsersRepo struct {
	mu     sync.Mutex
	seq    int
	users  map[string]*models.User
	failOp map[string]error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: make(map[string]*models.User), failOp: make(map[string]error)}
}

func (r *fakeUsersRepo) clone(u *models.User) *models.User {
	c := *u
	if u.ResetTokenExpires != nil {
		t := *u.ResetTokenExpires
		c.ResetTokenExpires = &t
	}
	return &c
}

func (r *fakeUsersRepo) collides(u *models.User) bool {
	for _, other := range r.users {
		if other.ID == u.ID {
			continue
		}
		if u.Username != "" && other.Username == u.Username {
			return true
		}
		if u.Email != "" && other.Email == u.Email {
			return true
		}
		if u.WalletAddress != "" && other.WalletAddress == u.WalletAddress {
			return true
		}
		if u.GoogleID != "" && other.GoogleID == u.GoogleID {
			return true
		}
	}
	return false
}

func (r *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOp["create"]; err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if r.collides(user) {
		return nil, shared.ErrorAlreadyExists
	}
	r.seq++
	c := r.clone(user)
	c.ID = fmt.Sprintf("user-%d", r.seq)
	c.CreatedAt = time.Now()
	r.users[c.ID] = c
	return r.clone(c), nil
}

func (r *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOp["update"]; err != nil {
		return err
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if _, ok := r.users[user.ID]; !ok {
		return shared.ErrorNotFound
	}
	if r.collides(user) {
		return shared.ErrorAlreadyExists
	}
	r.users[user.ID] = r.clone(user)
	return nil
}

func (r *fakeUsersRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range r.users {
		if match(u) {
			return r.clone(u), nil
		}
	}
	return nil, shared.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *models.User) bool { return u.Email != "" && u.Email == email })
}

func (r *fakeUsersRepo) GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// email matches win over username matches
	if u, err := r.find(func(u *models.User) bool { return u.Email != "" && u.Email == email }); err == nil {
		return u, nil
	}
	return r.find(func(u *models.User) bool { return u.Username != "" && u.Username == username })
}

func (r *fakeUsersRepo) GetByWalletAddress(ctx context.Context, address string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *models.User) bool { return u.WalletAddress != "" && u.WalletAddress == address })
}

func (r *fakeUsersRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *models.User) bool { return u.GoogleID != "" && u.GoogleID == googleID })
}

func (r *fakeUsersRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(func(u *models.User) bool { return u.ResetTokenHash != "" && u.ResetTokenHash == tokenHash })
}

func (r *fakeUsersRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// fakeNoncesRepo is an in-memory nonces.Repository with CAS redemption.
type fakeNoncesRepo struct {
	mu     sync.Mutex
	rows   map[string]*models.Nonce
	seq    int64
	failOp map[string]error
}

func newFakeNoncesRepo() *fakeNoncesRepo {
	return &fakeNoncesRepo{rows: make(map[string]*models.Nonce), failOp: make(map[string]error)}
}

func nonceKey(address, nonce string) string { return address + "|" + nonce }

func (r *fakeNoncesRepo) Create(ctx context.Context, walletAddress, nonce string, validity time.Duration) (*models.Nonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOp["create"]; err != nil {
		return nil, err
	}
	r.seq++
	n := &models.Nonce{
		ID:            r.seq,
		WalletAddress: walletAddress,
		Nonce:         nonce,
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(validity),
	}
	r.rows[nonceKey(walletAddress, nonce)] = n
	return n, nil
}

func (r *fakeNoncesRepo) Redeem(ctx context.Context, walletAddress, nonce string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOp["redeem"]; err != nil {
		return err
	}
	n, ok := r.rows[nonceKey(walletAddress, nonce)]
	if !ok || n.Used || !n.ExpiresAt.After(time.Now()) {
		return shared.ErrorNotFound
	}
	n.Used = true
	return nil
}

func (r *fakeNoncesRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for k, n := range r.rows {
		if !n.ExpiresAt.After(time.Now()) {
			delete(r.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeNoncesRepo) expire(walletAddress, nonce string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.rows[nonceKey(walletAddress, nonce)]; ok {
		n.ExpiresAt = time.Now().Add(-time.Second)
	}
}

func (r *fakeNoncesRepo) stored(walletAddress string) *models.Nonce {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.rows {
		if n.WalletAddress == walletAddress {
			return n
		}
	}
	return nil
}

// fakeRepoManager hands out the same fakes regardless of the handle.
type fakeRepoManager struct {
	users  *fakeUsersRepo
	nonces *fakeNoncesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), nonces: newFakeNoncesRepo()}
}

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository   { return m.users }
func (m *fakeRepoManager) Nonces(db dbx.DBTX) nonces.Repository { return m.nonces }
func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

// fakeMailer records sends and can be told to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last() *mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return &m.sent[len(m.sent)-1]
}

// fakeGoogleVerifier returns canned claims.
type fakeGoogleVerifier struct {
	configured bool
	claims     *googleauth.Claims
	err        error
}

func (v *fakeGoogleVerifier) IsConfigured() bool { return v.configured }

func (v *fakeGoogleVerifier) Verify(ctx context.Context, idToken string) (*googleauth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func (v *fakeGoogleVerifier) AuthCodeURL() string {
	return "https://accounts.google.com/o/oauth2/v2/auth?client_id=test"
}

func (v *fakeGoogleVerifier) ExchangeCode(ctx context.Context, code string) (*googleauth.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}
