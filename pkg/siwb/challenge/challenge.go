package challenge

/*
	Sign-In-With-Bitcoin challenges:

	The server hands out a short random token and the wallet signs a message that
	embeds it. A token is worth something only if nobody can guess the next one,
	so every token comes straight from a cryptographically secure entropy source.
	There is no fallback: if the source fails or returns too little data the call
	fails and the caller decides what to do (usually answer "service unavailable").

	The generator keeps no state. Making sure a token is used at most once is the
	job of whoever stores issued tokens.
*/

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// TokenLength is the number of random bytes in a challenge.
	TokenLength = 16
)

var (
	ErrNoEntropySource = errors.New("no entropy source configured")
	ErrGenerateRandom  = errors.New("failed to generate random challenge")
	ErrShortEntropy    = errors.New("entropy source returned too few bytes")
)

// EntropySource supplies raw random bytes. Implementations may block until the
// underlying subsystem delivers them.
type EntropySource interface {
	Entropy(ctx context.Context) ([]byte, error)
}

// Generator produces hex-encoded challenges.
type Generator struct {
	source EntropySource
}

// NewGenerator creates a Generator backed by source.
func NewGenerator(source EntropySource) (*Generator, error) {
	if source == nil {
		return nil, ErrNoEntropySource
	}
	return &Generator{source: source}, nil
}

// Generate returns TokenLength random bytes as lowercase hex.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	buf, err := g.source.Entropy(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerateRandom, err)
	}
	if len(buf) < TokenLength {
		return "", fmt.Errorf("%w: got %d, need %d", ErrShortEntropy, len(buf), TokenLength)
	}
	return hex.EncodeToString(buf[:TokenLength]), nil
}
