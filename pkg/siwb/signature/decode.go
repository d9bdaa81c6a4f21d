package signature

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// RecoverableSignatureLength is r || s || recovery id.
	RecoverableSignatureLength = 65
	// CompactSignatureLength is r || s.
	CompactSignatureLength = 64

	scalarLength = 32

	compressedKeyLength   = 33
	uncompressedKeyLength = 65

	// compactHeader is the recovery header for a compressed key as expected by
	// RecoverCompact: 27 + 4 + recovery id.
	compactHeader = 27 + 4

	derSequenceTag = 0x30
)

var errEmpty = errors.New("empty input")

// hexDecode decodes a hex string, handling 0x prefix.
func hexDecode(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if s == "" {
		return nil, errEmpty
	}
	return hex.DecodeString(s)
}

func decodeSignature(signatureHex string) ([]byte, error) {
	sig, err := hexDecode(signatureHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureEncoding, err)
	}
	return sig, nil
}

func parsePublicKey(publicKeyHex string) (*btcec.PublicKey, error) {
	raw, err := hexDecode(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKeyEncoding, err)
	}
	if !isSEC1(raw) {
		return nil, fmt.Errorf("%w: not a compressed or uncompressed SEC1 key", ErrPublicKey)
	}
	key, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKey, err)
	}
	return key, nil
}

// isSEC1 admits only the compressed (02/03) and uncompressed (04) forms.
// ParsePubKey would also take the hybrid 06/07 form.
func isSEC1(raw []byte) bool {
	switch len(raw) {
	case compressedKeyLength:
		return raw[0] == 0x02 || raw[0] == 0x03
	case uncompressedKeyLength:
		return raw[0] == 0x04
	default:
		return false
	}
}

// parseScalars reads r and s from the first 64 bytes of sig. Both must be
// non-zero and below the group order.
func parseScalars(sig []byte) (r, s secp256k1.ModNScalar, err error) {
	if overflow := r.SetByteSlice(sig[:scalarLength]); overflow || r.IsZero() {
		return r, s, fmt.Errorf("%w: r", ErrSignatureScalar)
	}
	if overflow := s.SetByteSlice(sig[scalarLength:CompactSignatureLength]); overflow || s.IsZero() {
		return r, s, fmt.Errorf("%w: s", ErrSignatureScalar)
	}
	return r, s, nil
}

// parseRecoverable converts r || s || recid into the header-first compact form
// understood by RecoverCompact.
func parseRecoverable(sig []byte) ([]byte, error) {
	if len(sig) != RecoverableSignatureLength {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSignatureLength, len(sig), RecoverableSignatureLength)
	}
	recoveryID := sig[CompactSignatureLength]
	if recoveryID > 1 {
		return nil, fmt.Errorf("%w: %d", ErrRecoveryID, recoveryID)
	}
	if _, _, err := parseScalars(sig); err != nil {
		return nil, err
	}

	compact := make([]byte, RecoverableSignatureLength)
	compact[0] = compactHeader + recoveryID
	copy(compact[1:], sig[:CompactSignatureLength])
	return compact, nil
}

// parseStandard accepts a strict DER signature or a 64 byte r || s pair.
// Input starting with the DER sequence tag is tried as DER first, so a 64
// byte DER signature is not mistaken for r || s.
func parseStandard(sig []byte) (*ecdsa.Signature, error) {
	var derErr error
	if len(sig) > 0 && sig[0] == derSequenceTag {
		parsed, err := ecdsa.ParseDERSignature(sig)
		if err == nil {
			return parsed, nil
		}
		derErr = err
	}
	if len(sig) == CompactSignatureLength {
		r, s, err := parseScalars(sig)
		if err != nil {
			return nil, err
		}
		return ecdsa.NewSignature(&r, &s), nil
	}
	if derErr == nil {
		_, derErr = ecdsa.ParseDERSignature(sig)
	}
	return nil, fmt.Errorf("%w: %v", ErrSignatureFormat, derErr)
}
