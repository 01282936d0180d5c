package models

import "time"

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Lifetime-point thresholds. Tiers never downgrade because lifetime points
// only shrink through the explicit expiry path, which does not re-derive tier.
const (
	silverThreshold   = 1000
	goldThreshold     = 5000
	platinumThreshold = 15000
)

func TierForLifetime(lifetime int64) Tier {
	switch {
	case lifetime >= platinumThreshold:
		return TierPlatinum
	case lifetime >= goldThreshold:
		return TierGold
	case lifetime >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Multiplier applied to the base accrual while the account sits in this tier.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierPlatinum:
		return 2.0
	case TierGold:
		return 1.5
	case TierSilver:
		return 1.25
	default:
		return 1.0
	}
}

// UpgradeBonus is the one-time point grant for reaching this tier.
func (t Tier) UpgradeBonus() int64 {
	switch t {
	case TierPlatinum:
		return 500
	case TierGold:
		return 250
	case TierSilver:
		return 100
	default:
		return 0
	}
}

func (t Tier) rank() int {
	switch t {
	case TierPlatinum:
		return 3
	case TierGold:
		return 2
	case TierSilver:
		return 1
	default:
		return 0
	}
}

func (t Tier) Above(other Tier) bool { return t.rank() > other.rank() }

const (
	LoyaltyTxEarned   = "earned"
	LoyaltyTxRedeemed = "redeemed"
	LoyaltyTxExpired  = "expired"
)

// LoyaltyTransaction is append-only; rows are never mutated except for the
// expired marker set by the explicit expiry sweep.
type LoyaltyTransaction struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Type        string     `json:"type"`
	Points      int64      `json:"points"`
	Description string     `json:"description"`
	BookingID   string     `json:"booking_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LoyaltyAccount invariants: Balance equals the sum of all transaction
// deltas; Lifetime equals the sum of positive earned deltas only.
type LoyaltyAccount struct {
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	Lifetime int64  `json:"lifetime_points"`
	Tier     Tier   `json:"tier"`
}
