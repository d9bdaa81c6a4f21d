package signature

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Logger receives the reason a signature was rejected.
type Logger interface {
	Debug(msg string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

// Verifier checks signatures with a single, fixed Strategy. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	strategy Strategy
	logger   Logger
}

// NewVerifier creates a Verifier. A nil logger discards diagnostics.
func NewVerifier(strategy Strategy, logger Logger) (*Verifier, error) {
	if strategy != StrategyRecover && strategy != StrategyDirect {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Verifier{
		strategy: strategy,
		logger:   logger,
	}, nil
}

// Strategy reports the strategy the verifier was built with.
func (v *Verifier) Strategy() Strategy {
	return v.strategy
}

// HashMessage returns SHA-256 over the UTF-8 bytes of message. This digest is
// what clients sign.
func HashMessage(message string) [32]byte {
	return sha256.Sum256([]byte(message))
}

// Verify reports whether signatureHex is a valid signature of message by the
// key in publicKeyHex. Every failure yields false.
func (v *Verifier) Verify(message, signatureHex, publicKeyHex string) bool {
	if err := v.check(message, signatureHex, publicKeyHex); err != nil {
		v.logger.Debug("signature rejected", "strategy", v.strategy.String(), "reason", err)
		return false
	}
	return true
}

func (v *Verifier) check(message, signatureHex, publicKeyHex string) error {
	digest := HashMessage(message)

	sig, err := decodeSignature(signatureHex)
	if err != nil {
		return err
	}

	if v.strategy == StrategyDirect {
		return verifyDirect(digest[:], sig, publicKeyHex)
	}
	return recoverAndCompare(digest[:], sig, publicKeyHex)
}

func verifyDirect(digest, sig []byte, publicKeyHex string) error {
	parsed, err := parseStandard(sig)
	if err != nil {
		return err
	}
	key, err := parsePublicKey(publicKeyHex)
	if err != nil {
		return err
	}
	if !parsed.Verify(digest, key) {
		return ErrVerifyFailed
	}
	return nil
}

func recoverAndCompare(digest, sig []byte, publicKeyHex string) error {
	compact, err := parseRecoverable(sig)
	if err != nil {
		return err
	}
	recovered, _, err := secpecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecoverFailed, err)
	}
	claimed, err := parsePublicKey(publicKeyHex)
	if err != nil {
		return err
	}
	if !bytes.Equal(recovered.SerializeCompressed(), claimed.SerializeCompressed()) {
		return ErrKeyMismatch
	}
	return nil
}
