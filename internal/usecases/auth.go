package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"siwb/internal/domain"
	"siwb/internal/metrics"
	"siwb/internal/replay"
	"siwb/pkg/siwb/challenge"
	"siwb/pkg/siwb/signature"
)

var (
	ErrChallengeUnavailable = errors.New("challenge unavailable")
	ErrStoreUnavailable     = errors.New("challenge store unavailable")
)

// AuthUsecase issues challenges and checks signed responses to them.
type AuthUsecase interface {
	IssueChallenge(ctx context.Context) (*domain.Challenge, error)
	// Authenticate redeems challenge and verifies cred against it. The boolean
	// is the only verdict; an error means the store could not be reached.
	Authenticate(ctx context.Context, challenge string, cred *domain.Credentials) (bool, error)
}

type Logger interface {
	Error(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

// AuthConfig configures NewAuthUsecase.
type AuthConfig struct {
	Strategy     string
	ChallengeTTL time.Duration
	EntropySize  int
	// Entropy overrides the system CSPRNG. Leave nil in production.
	Entropy challenge.EntropySource
}

type authUsecaseImpl struct {
	generator *challenge.Generator
	verifier  *signature.Verifier
	store     replay.Store
	metrics   *metrics.Metrics
	ttl       time.Duration
	now       func() time.Time
	logger    Logger
}

// NewAuthUsecase wires the challenge generator and signature verifier to a
// replay store.
func NewAuthUsecase(cfg AuthConfig, store replay.Store, m *metrics.Metrics, logger Logger) (AuthUsecase, error) {
	if cfg.ChallengeTTL <= 0 {
		return nil, fmt.Errorf("challenge ttl must be positive")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if m == nil {
		m = metrics.New()
	}

	source := cfg.Entropy
	if source == nil {
		system, err := challenge.NewSystemEntropy(cfg.EntropySize)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize entropy source: %w", err)
		}
		source = system
	}
	generator, err := challenge.NewGenerator(source)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize challenge generator: %w", err)
	}

	strategy, err := signature.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	verifier, err := signature.NewVerifier(strategy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize verifier: %w", err)
	}

	return &authUsecaseImpl{
		generator: generator,
		verifier:  verifier,
		store:     store,
		metrics:   m,
		ttl:       cfg.ChallengeTTL,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// IssueChallenge generates a challenge and records it as outstanding.
func (a *authUsecaseImpl) IssueChallenge(ctx context.Context) (*domain.Challenge, error) {
	value, err := a.generator.Generate(ctx)
	if err != nil {
		a.metrics.ChallengeFailed()
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	issuedAt := a.now()
	if err := a.store.Put(ctx, value, a.ttl); err != nil {
		a.metrics.ChallengeFailed()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	a.metrics.ChallengeIssued()
	return &domain.Challenge{
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(a.ttl),
	}, nil
}

// Authenticate burns the challenge first, so a failed attempt cannot be
// retried with the same challenge.
func (a *authUsecaseImpl) Authenticate(ctx context.Context, value string, cred *domain.Credentials) (bool, error) {
	if value == "" || cred == nil {
		a.metrics.Authentication(metrics.ResultRejected)
		return false, nil
	}

	outstanding, err := a.store.Consume(ctx, value)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !outstanding {
		a.logger.Info("challenge not outstanding", "challenge", value)
		a.metrics.Authentication(metrics.ResultReplayed)
		return false, nil
	}

	if !strings.Contains(cred.Message, value) {
		a.logger.Debug("signed message does not embed challenge", "challenge", value)
		a.metrics.Authentication(metrics.ResultRejected)
		return false, nil
	}

	if !a.verifier.Verify(cred.Message, cred.SignatureHex, cred.PublicKeyHex) {
		a.metrics.Authentication(metrics.ResultRejected)
		return false, nil
	}

	a.metrics.Authentication(metrics.ResultAccepted)
	return true, nil
}
