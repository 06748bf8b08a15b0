package models

import "time"

// Nonce is a single-use challenge backing one wallet authentication attempt.
// A nonce is bound to a normalized wallet address, expires five minutes after
// issue, and can be consumed at most once. Several unused nonces may coexist
// for the same address; each is independently single-use.
type Nonce struct {
	ID            int64
	WalletAddress string
	Nonce         string
	Used          bool
	CreatedAt     time.Time
	ExpiresAt     time.Time
}
