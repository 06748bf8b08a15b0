// Package shared defines sentinel errors and small utilities used across
// the server layers. Callers should match these values with errors.Is.
package shared

import "errors"

var (
	// common errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorInternal      = errors.New("internal error")
	ErrorValidation    = errors.New("validation error")

	// session token errors
	ErrorUnauthorized            = errors.New("unauthorized")
	ErrorInvalidToken            = errors.New("invalid token")
	ErrorTokenExpired            = errors.New("token expired")
	ErrorInvalidAuthheaderFormat = errors.New("invalid auth header format")

	// registration / login errors
	ErrorEmailExists        = errors.New("email already in use")
	ErrorUsernameExists     = errors.New("username already taken")
	ErrorInvalidCredentials = errors.New("invalid credentials")

	// wallet authentication errors
	ErrorInvalidMessage   = errors.New("invalid message format")
	ErrorInvalidNonce     = errors.New("invalid or expired nonce")
	ErrorInvalidSignature = errors.New("invalid signature")

	// google authentication errors
	ErrorGoogleNotConfigured = errors.New("google oauth is not configured")
	ErrorInvalidGoogleToken  = errors.New("invalid or expired google token")

	// password reset errors
	ErrorInvalidResetToken = errors.New("invalid or expired token")
	ErrorMailDelivery      = errors.New("email could not be sent")
)
