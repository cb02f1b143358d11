package memory

import "fmt"

// Tier controls the lifetime of a stored entry.
type Tier string

const (
	// TierEphemeral entries live for a single evaluation and are cleared
	// between runs.
	TierEphemeral Tier = "ephemeral"
	// TierSession entries live for the lifetime of the process.
	TierSession Tier = "session"
	// TierPersistent entries are written to disk and survive restarts.
	TierPersistent Tier = "persistent"
)

// ParseTier converts a user-supplied tier name into a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierEphemeral, TierSession, TierPersistent:
		return Tier(s), nil
	}
	return "", fmt.Errorf("unknown memory tier %q (want ephemeral, session, or persistent)", s)
}

func (t Tier) String() string { return string(t) }

// tierWeight ranks tiers for recall scoring: durable memory is assumed to
// have been worth keeping.
func tierWeight(t Tier) float64 {
	switch t {
	case TierPersistent:
		return 1.0
	case TierSession:
		return 0.6
	default:
		return 0.3
	}
}
