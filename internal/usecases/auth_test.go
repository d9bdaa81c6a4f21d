package usecases

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siwb/internal/domain"
	"siwb/internal/metrics"
	"siwb/internal/replay"
)

const testPrivateKeyHex = "22a47fa09a223f2aa079edf85a7c2d4f8720ee63e502ee2869afab7de234b80c"

type failingEntropy struct{}

func (failingEntropy) Entropy(ctx context.Context) ([]byte, error) {
	return nil, errors.New("entropy device unavailable")
}

type brokenStore struct{}

func (brokenStore) Put(ctx context.Context, challenge string, ttl time.Duration) error {
	return errors.New("store down")
}

func (brokenStore) Consume(ctx context.Context, challenge string) (bool, error) {
	return false, errors.New("store down")
}

func (brokenStore) Close() error { return nil }

func newTestAuth(t *testing.T, strategy string) (AuthUsecase, *metrics.Metrics) {
	t.Helper()
	store, err := replay.NewMemoryStore(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := metrics.New()
	auth, err := NewAuthUsecase(AuthConfig{Strategy: strategy, ChallengeTTL: time.Minute}, store, m, nil)
	require.NoError(t, err)
	return auth, m
}

func newTestWallet(t *testing.T, strategy string) WalletUsecase {
	t.Helper()
	wallet, err := NewWalletUsecase("alice", testPrivateKeyHex, strategy)
	require.NoError(t, err)
	return wallet
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAuthenticateRoundTrip(t *testing.T) {
	for _, strategy := range []string{"recover", "direct"} {
		t.Run(strategy, func(t *testing.T) {
			auth, m := newTestAuth(t, strategy)
			wallet := newTestWallet(t, strategy)
			ctx := context.Background()

			ch, err := auth.IssueChallenge(ctx)
			require.NoError(t, err)
			raw, err := hex.DecodeString(ch.Value)
			require.NoError(t, err)
			assert.Len(t, raw, 16)
			assert.Equal(t, time.Minute, ch.ExpiresAt.Sub(ch.IssuedAt))

			cred, err := wallet.SignChallenge(ch.Value)
			require.NoError(t, err)
			assert.Equal(t, "login:alice:"+ch.Value, cred.Message)

			ok, err := auth.Authenticate(ctx, ch.Value, cred)
			require.NoError(t, err)
			assert.True(t, ok)

			// The challenge is gone after the first redemption.
			ok, err = auth.Authenticate(ctx, ch.Value, cred)
			require.NoError(t, err)
			assert.False(t, ok)

			body := scrape(t, m)
			assert.Contains(t, body, "siwb_challenges_issued_total 1")
			assert.Contains(t, body, `siwb_authentications_total{result="accepted"} 1`)
			assert.Contains(t, body, `siwb_authentications_total{result="replayed"} 1`)
		})
	}
}

func TestAuthenticateRejects(t *testing.T) {
	ctx := context.Background()
	wallet := newTestWallet(t, "recover")

	t.Run("unknown challenge", func(t *testing.T) {
		auth, _ := newTestAuth(t, "recover")
		cred, err := wallet.SignChallenge("00112233445566778899aabbccddeeff")
		require.NoError(t, err)

		ok, err := auth.Authenticate(ctx, "00112233445566778899aabbccddeeff", cred)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("message without challenge", func(t *testing.T) {
		auth, _ := newTestAuth(t, "recover")
		ch, err := auth.IssueChallenge(ctx)
		require.NoError(t, err)
		cred, err := wallet.SignChallenge("ffffffffffffffffffffffffffffffff")
		require.NoError(t, err)

		ok, err := auth.Authenticate(ctx, ch.Value, cred)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("bad signature burns challenge", func(t *testing.T) {
		auth, m := newTestAuth(t, "recover")
		ch, err := auth.IssueChallenge(ctx)
		require.NoError(t, err)
		cred, err := wallet.SignChallenge(ch.Value)
		require.NoError(t, err)

		forged := *cred
		forged.SignatureHex = "zz"
		ok, err := auth.Authenticate(ctx, ch.Value, &forged)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = auth.Authenticate(ctx, ch.Value, cred)
		require.NoError(t, err)
		assert.False(t, ok)

		body := scrape(t, m)
		assert.Contains(t, body, `siwb_authentications_total{result="rejected"} 1`)
		assert.Contains(t, body, `siwb_authentications_total{result="replayed"} 1`)
	})

	t.Run("strategy mismatch", func(t *testing.T) {
		auth, _ := newTestAuth(t, "direct")
		ch, err := auth.IssueChallenge(ctx)
		require.NoError(t, err)
		cred, err := wallet.SignChallenge(ch.Value)
		require.NoError(t, err)

		ok, err := auth.Authenticate(ctx, ch.Value, cred)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing input", func(t *testing.T) {
		auth, _ := newTestAuth(t, "recover")
		ok, err := auth.Authenticate(ctx, "", &domain.Credentials{})
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = auth.Authenticate(ctx, "aa", nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestIssueChallengeFailures(t *testing.T) {
	ctx := context.Background()

	store, err := replay.NewMemoryStore(time.Minute)
	require.NoError(t, err)
	defer store.Close()

	m := metrics.New()
	auth, err := NewAuthUsecase(AuthConfig{ChallengeTTL: time.Minute, Entropy: failingEntropy{}}, store, m, nil)
	require.NoError(t, err)
	_, err = auth.IssueChallenge(ctx)
	require.ErrorIs(t, err, ErrChallengeUnavailable)
	assert.Contains(t, scrape(t, m), "siwb_challenge_failures_total 1")

	auth, err = NewAuthUsecase(AuthConfig{ChallengeTTL: time.Minute}, brokenStore{}, nil, nil)
	require.NoError(t, err)
	_, err = auth.IssueChallenge(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = auth.Authenticate(ctx, "aa", &domain.Credentials{Message: "aa"})
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestNewAuthUsecaseValidation(t *testing.T) {
	_, err := NewAuthUsecase(AuthConfig{}, brokenStore{}, nil, nil)
	require.Error(t, err)

	_, err = NewAuthUsecase(AuthConfig{ChallengeTTL: time.Minute, Strategy: "auto"}, brokenStore{}, nil, nil)
	require.Error(t, err)

	_, err = NewAuthUsecase(AuthConfig{ChallengeTTL: time.Minute, EntropySize: 8}, brokenStore{}, nil, nil)
	require.Error(t, err)
}
