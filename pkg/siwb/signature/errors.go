package signature

import "errors"

// Rejection reasons. They are logged by Verify and never returned from it.
var (
	ErrSignatureEncoding = errors.New("signature is not valid hex")
	ErrSignatureLength   = errors.New("unexpected signature length")
	ErrRecoveryID        = errors.New("invalid recovery id")
	ErrSignatureScalar   = errors.New("signature scalar out of range")
	ErrSignatureFormat   = errors.New("malformed signature")
	ErrRecoverFailed     = errors.New("public key recovery failed")
	ErrPublicKeyEncoding = errors.New("public key is not valid hex")
	ErrPublicKey         = errors.New("public key is not a valid curve point")
	ErrKeyMismatch       = errors.New("recovered key does not match claimed key")
	ErrVerifyFailed      = errors.New("signature verification failed")

	ErrUnknownStrategy = errors.New("unknown verification strategy")
	ErrPrivateKey      = errors.New("invalid private key")
)
