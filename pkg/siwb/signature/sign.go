package signature

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// ParsePrivateKey decodes a hex encoded 32 byte secp256k1 private key.
func ParsePrivateKey(privateKeyHex string) (*btcec.PrivateKey, error) {
	raw, err := hexDecode(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrivateKey, err)
	}
	if len(raw) != scalarLength {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrPrivateKey, len(raw), scalarLength)
	}
	var d secp256k1.ModNScalar
	if overflow := d.SetByteSlice(raw); overflow || d.IsZero() {
		return nil, fmt.Errorf("%w: out of range", ErrPrivateKey)
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

// GeneratePrivateKey creates a fresh key from the system CSPRNG.
func GeneratePrivateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// PrivateKeyHex returns the 32 byte scalar of priv as hex.
func PrivateKeyHex(priv *btcec.PrivateKey) string {
	return hex.EncodeToString(priv.Serialize())
}

// PublicKeyHex returns the compressed SEC1 encoding of the public half of priv.
func PublicKeyHex(priv *btcec.PrivateKey) string {
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

// SignRecoverable signs the digest of message and returns r || s || recid,
// the encoding StrategyRecover expects.
func SignRecoverable(priv *btcec.PrivateKey, message string) []byte {
	digest := HashMessage(message)
	compact := secpecdsa.SignCompact(priv, digest[:], true)

	out := make([]byte, RecoverableSignatureLength)
	copy(out, compact[1:])
	out[CompactSignatureLength] = compact[0] - compactHeader
	return out
}

// SignDER signs the digest of message and returns a DER signature, the
// encoding StrategyDirect expects.
func SignDER(priv *btcec.PrivateKey, message string) []byte {
	digest := HashMessage(message)
	return ecdsa.Sign(priv, digest[:]).Serialize()
}

// Sign produces the encoding matching strategy, hex encoded.
func Sign(strategy Strategy, priv *btcec.PrivateKey, message string) (string, error) {
	switch strategy {
	case StrategyRecover:
		return hex.EncodeToString(SignRecoverable(priv, message)), nil
	case StrategyDirect:
		return hex.EncodeToString(SignDER(priv, message)), nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}
}
