// Package wallet implements the cryptographic side of wallet authentication:
// the challenge message format and the per-scheme signature verifiers.
package wallet

import (
	"strings"

	"github.com/rendlabs/rend/internal/server/models"
)

// Verifier checks a wallet signature over a challenge message. Verifiers are
// side-effect-free and safe to call with adversarial input: malformed
// signatures, addresses, or messages yield false, never a panic or error.
type Verifier interface {
	VerifySignature(message, signature, address string) bool
}

// Verifiers maps wallet schemes to their verifier implementations.
type Verifiers map[string]Verifier

// DefaultVerifiers returns the production verifier set covering both
// supported schemes.
func DefaultVerifiers() Verifiers {
	return Verifiers{
		models.WalletSchemeEVM:    &EVMVerifier{},
		models.WalletSchemeSolana: &SolanaVerifier{},
	}
}

// NormalizeAddress canonicalizes an address per scheme: EVM addresses are
// hex and case-insensitive by convention, so they are lowercased; Solana
// addresses are base58 and case-sensitive, so they pass through unchanged.
func NormalizeAddress(address, scheme string) string {
	if scheme == models.WalletSchemeEVM {
		return strings.ToLower(address)
	}
	return address
}
