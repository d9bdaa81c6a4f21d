package challenge

import (
	"context"
	"crypto/rand"
	"fmt"
)

// DefaultEntropySize is how many bytes SystemEntropy reads per call when no
// size is configured.
const DefaultEntropySize = 32

// SystemEntropy reads from the operating system CSPRNG.
type SystemEntropy struct {
	size int
}

// NewSystemEntropy returns a source reading size bytes per call. Zero selects
// DefaultEntropySize.
func NewSystemEntropy(size int) (*SystemEntropy, error) {
	if size == 0 {
		size = DefaultEntropySize
	}
	if size < TokenLength {
		return nil, fmt.Errorf("%w: entropy size %d is below %d", ErrShortEntropy, size, TokenLength)
	}
	return &SystemEntropy{size: size}, nil
}

func (e *SystemEntropy) Entropy(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, e.size)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
