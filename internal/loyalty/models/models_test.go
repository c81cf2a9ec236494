package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

func TestPointsEarned(t *testing.T) {
	cases := map[int64]int64{
		0:      0,
		-5000:  0,
		9999:   0,
		10000:  1,
		95000:  9,
		150000: 15,
	}
	for amount, want := range cases {
		assert.Equal(t, want, PointsEarned(amount), "amount %d", amount)
	}
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, TierBronze, TierFor(0))
	assert.Equal(t, TierBronze, TierFor(999))
	assert.Equal(t, TierSilver, TierFor(1000))
	assert.Equal(t, TierGold, TierFor(5000))
	assert.Equal(t, TierPlatinum, TierFor(10000))
	assert.Equal(t, TierPlatinum, TierFor(250000))

	next, gap, ok := NextTier(999)
	require.True(t, ok)
	assert.Equal(t, TierSilver, next)
	assert.Equal(t, int64(1), gap)

	next, gap, ok = NextTier(1000)
	require.True(t, ok)
	assert.Equal(t, TierGold, next)
	assert.Equal(t, int64(4000), gap)

	_, _, ok = NextTier(10000)
	assert.False(t, ok)
}

func TestParseTierNormalizesCase(t *testing.T) {
	for _, raw := range []string{"Gold", "GOLD", " gold "} {
		tier, err := ParseTier(raw)
		require.NoError(t, err)
		assert.Equal(t, TierGold, tier)
	}
	_, err := ParseTier("diamond")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestAccountAdd(t *testing.T) {
	now := time.Now()
	acct := NewAccount(id.CustomerID(uuid.New()), now)
	acct.Add(990, now)
	assert.Equal(t, TierBronze, acct.Tier)

	acct.Add(15, now.Add(time.Minute))
	assert.Equal(t, int64(1005), acct.TotalPoints)
	assert.Equal(t, TierSilver, acct.Tier)
	assert.Equal(t, now.Add(time.Minute), acct.UpdatedAt)

	summary := SummaryOf(acct)
	assert.Equal(t, TierGold, summary.NextTier)
	assert.Equal(t, int64(3995), summary.PointsToNext)
}
