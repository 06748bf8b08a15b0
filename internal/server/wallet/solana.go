package wallet

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/mr-tron/base58"
)

// SolanaVerifier verifies detached Ed25519 signatures produced by Solana
// wallets (Phantom and friends). The claimed address is the base58-encoded
// public key; the signature arrives base64-encoded; the message is verified
// as raw UTF-8 bytes.
type SolanaVerifier struct{}

func (v *SolanaVerifier) VerifySignature(message, signature, address string) bool {
	publicKey, err := base58.Decode(address)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(publicKey, []byte(message), sig)
}
