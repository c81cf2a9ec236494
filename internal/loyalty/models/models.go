package models

import (
	"strings"
	"time"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

// PointUnit is the spend, in the smallest currency unit, that earns one point.
const PointUnit = 10000

// Tier is a loyalty level. Stored values are always one of the constants
// below; ParseTier accepts any casing found in older rows.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type threshold struct {
	tier   Tier
	points int64
}

// ladder is ordered from lowest to highest.
var ladder = []threshold{
	{TierBronze, 0},
	{TierSilver, 1000},
	{TierGold, 5000},
	{TierPlatinum, 10000},
}

// PointsEarned is floor(amount / PointUnit). Negative amounts earn nothing.
func PointsEarned(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / PointUnit
}

// TierFor returns the highest tier whose threshold points reaches.
func TierFor(points int64) Tier {
	tier := TierBronze
	for _, t := range ladder {
		if points >= t.points {
			tier = t.tier
		}
	}
	return tier
}

// NextTier returns the tier above points and how many points are missing.
// ok is false at the top tier.
func NextTier(points int64) (next Tier, gap int64, ok bool) {
	for _, t := range ladder {
		if points < t.points {
			return t.tier, t.points - points, true
		}
	}
	return "", 0, false
}

// Threshold returns the points needed to reach t.
func (t Tier) Threshold() int64 {
	for _, th := range ladder {
		if th.tier == t {
			return th.points
		}
	}
	return 0
}

func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, th := range ladder {
		if th.tier == t {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvariantViolation, "unknown loyalty tier: "+s)
}

// Account is a customer's running point balance.
type Account struct {
	CustomerID  id.CustomerID
	TotalPoints int64
	Tier        Tier
	UpdatedAt   time.Time
}

func NewAccount(customerID id.CustomerID, now time.Time) *Account {
	return &Account{
		CustomerID: customerID,
		Tier:       TierBronze,
		UpdatedAt:  now,
	}
}

// Add credits points and recomputes the tier.
func (a *Account) Add(points int64, now time.Time) {
	a.TotalPoints += points
	a.Tier = TierFor(a.TotalPoints)
	a.UpdatedAt = now
}

// LedgerEntry records one accrual. Reference is unique per customer; a
// second accrual with the same reference is not applied.
type LedgerEntry struct {
	CustomerID id.CustomerID
	Reference  string
	Amount     int64
	Points     int64
	CreatedAt  time.Time
}

// Summary is what a customer sees about their loyalty standing.
type Summary struct {
	CustomerID   id.CustomerID `json:"customer_id"`
	TotalPoints  int64         `json:"total_points"`
	Tier         Tier          `json:"tier"`
	NextTier     Tier          `json:"next_tier,omitempty"`
	PointsToNext int64         `json:"points_to_next_tier"`
}

func SummaryOf(a *Account) *Summary {
	s := &Summary{
		CustomerID:  a.CustomerID,
		TotalPoints: a.TotalPoints,
		Tier:        a.Tier,
	}
	if next, gap, ok := NextTier(a.TotalPoints); ok {
		s.NextTier = next
		s.PointsToNext = gap
	}
	return s
}
