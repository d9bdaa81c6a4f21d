package signature

import (
	"fmt"
	"strings"
)

// Strategy selects how a Verifier checks a signature.
type Strategy int

const (
	// StrategyRecover recovers the signer key from a 65 byte recoverable
	// signature and compares it with the claimed key.
	StrategyRecover Strategy = iota
	// StrategyDirect verifies a DER or 64 byte compact signature against the
	// claimed key.
	StrategyDirect
)

// ParseStrategy maps a configuration value to a Strategy. An empty name
// selects StrategyRecover.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "recover":
		return StrategyRecover, nil
	case "direct":
		return StrategyDirect, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyRecover:
		return "recover"
	case StrategyDirect:
		return "direct"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}
