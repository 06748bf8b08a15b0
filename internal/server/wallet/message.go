package wallet

import (
	"fmt"
	"regexp"
)

// AuthMessage is the fixed-format challenge wallets are asked to sign. The
// format is part of the protocol: clients display it verbatim, and the nonce
// is parsed back out of the signed message on login.
const authMessageFormat = "Sign this message to authenticate with Rend.\n\nNonce: %s"

var noncePattern = regexp.MustCompile(`Nonce: ([a-f0-9]+)`)

// CreateAuthMessage builds the challenge message embedding nonce.
func CreateAuthMessage(nonce string) string {
	return fmt.Sprintf(authMessageFormat, nonce)
}

// ExtractNonce parses the nonce out of a signed challenge message. The
// second result is false when the message does not carry a nonce in the
// expected format.
func ExtractNonce(message string) (string, bool) {
	m := noncePattern.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return m[1], true
}
