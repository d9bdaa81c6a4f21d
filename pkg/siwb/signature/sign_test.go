package signature

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey(t *testing.T) {
	priv, err := ParsePrivateKey(testPrivateKeyHex)
	require.NoError(t, err)
	assert.Equal(t, testPrivateKeyHex, PrivateKeyHex(priv))

	one, err := ParsePrivateKey(strings.Repeat("00", 31) + "01")
	require.NoError(t, err)
	assert.Equal(t, unrelatedPublicKeyHex, PublicKeyHex(one))

	for name, input := range map[string]string{
		"empty":   "",
		"non-hex": "not a key",
		"short":   testPrivateKeyHex[:62],
		"zero":    strings.Repeat("00", 32),
		"order":   "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141",
	} {
		_, err := ParsePrivateKey(input)
		assert.ErrorIs(t, err, ErrPrivateKey, name)
	}
}

func TestSignRecoverableLayout(t *testing.T) {
	priv := testKey(t)
	sig := SignRecoverable(priv, loginMessage)

	require.Len(t, sig, RecoverableSignatureLength)
	assert.LessOrEqual(t, sig[CompactSignatureLength], byte(1))

	// Signing is deterministic (RFC 6979).
	assert.Equal(t, sig, SignRecoverable(priv, loginMessage))
}

func TestSignMatchesStrategy(t *testing.T) {
	priv := testKey(t)

	for _, strategy := range []Strategy{StrategyRecover, StrategyDirect} {
		sigHex, err := Sign(strategy, priv, loginMessage)
		require.NoError(t, err)

		v := newTestVerifier(t, strategy)
		assert.True(t, v.Verify(loginMessage, sigHex, PublicKeyHex(priv)), strategy.String())
	}

	_, err := Sign(Strategy(3), priv, loginMessage)
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestGeneratePrivateKey(t *testing.T) {
	priv, err := GeneratePrivateKey()
	require.NoError(t, err)

	parsed, err := ParsePrivateKey(PrivateKeyHex(priv))
	require.NoError(t, err)
	assert.Equal(t, PublicKeyHex(priv), PublicKeyHex(parsed))

	raw, err := hex.DecodeString(PublicKeyHex(priv))
	require.NoError(t, err)
	assert.Len(t, raw, 33)
}
