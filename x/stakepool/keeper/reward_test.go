package keeper

import (
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

const start = int64(1_700_000_000)

func rewardFixture(staked math.Int, rate int64, settlement types.SettlementCurrency) (types.Position, types.Pool) {
	pool := types.NewPool(0, tokens(100), tokens(200), math.LegacyNewDec(rate), 7*types.SecondsPerDay, settlement, start)
	position := types.NewPosition(0, alice, pool, staked, math.LegacyMustNewDecFromStr("0.12"), start)
	return *position, *pool
}

func daysLater(days int64) int64 {
	return start + days*types.SecondsPerDay
}

// TestComputeRewardMonthly tests whole-month accrual
func TestComputeRewardMonthly(t *testing.T) {
	position, pool := rewardFixture(tokens(100), 100, types.SettlementStakeAsset)
	params := types.DefaultParams()

	testCases := []struct {
		name     string
		now      int64
		expected math.Int
		months   int64
		notDue   bool
	}{
		{name: "same instant", now: start, notDue: true},
		{name: "day 1", now: daysLater(1), notDue: true},
		{name: "one second short of 30 days", now: daysLater(30) - 1, notDue: true},
		{name: "exactly 30 days", now: daysLater(30), expected: math.NewInt(833333333), months: 1},
		{name: "59 days is still one month", now: daysLater(59), expected: math.NewInt(833333333), months: 1},
		{name: "60 days", now: daysLater(60), expected: math.NewInt(1666666666), months: 2},
		{name: "365 days", now: daysLater(365), expected: tokens(100), months: 12},
		{name: "clock behind last claim", now: start - 1, notDue: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ComputeReward(position, pool, params, tc.now)
			if tc.notDue {
				if !errors.Is(err, types.ErrRewardNotDue) {
					t.Errorf("expected ErrRewardNotDue, got %v", err)
				}
				return
			}
			require.NoError(t, err)
			if !result.Gross.Equal(tc.expected) {
				t.Errorf("expected gross %s, got %s", tc.expected, result.Gross)
			}
			if !result.Payout.Equal(result.Gross) {
				t.Errorf("stake-asset payout %s should equal gross %s", result.Payout, result.Gross)
			}
			if result.Months != tc.months {
				t.Errorf("expected %d months, got %d", tc.months, result.Months)
			}
			if result.Denom != params.StakeDenom {
				t.Errorf("expected denom %s, got %s", params.StakeDenom, result.Denom)
			}
		})
	}
}

// TestComputeRewardDailyCents reproduces the reference configuration: daily
// accrual truncated to cents of a token
func TestComputeRewardDailyCents(t *testing.T) {
	params := types.DefaultParams()
	params.AccrualBasis = types.AccrualDaily
	params.RewardPrecision = 2

	position, pool := rewardFixture(tokens(100), 100, types.SettlementStakeAsset)
	result, err := ComputeReward(position, pool, params, daysLater(30))
	require.NoError(t, err)
	require.Equal(t, "821000000", result.Gross.String()) // 8.21 tokens
	require.Equal(t, int64(30), result.Days)

	// A full year is still exactly the principal at 100% APR
	result, err = ComputeReward(position, pool, params, daysLater(365))
	require.NoError(t, err)
	require.True(t, result.Gross.Equal(tokens(100)), "got %s", result.Gross)

	// The one-month gate still applies on a daily basis
	_, err = ComputeReward(position, pool, params, daysLater(29))
	require.ErrorIs(t, err, types.ErrRewardNotDue)
}

// TestComputeRewardSecondaryAsset tests conversion at the entry price
func TestComputeRewardSecondaryAsset(t *testing.T) {
	params := types.DefaultParams()
	params.AccrualBasis = types.AccrualDaily
	params.RewardPrecision = 2

	position, pool := rewardFixture(tokens(100), 100, types.SettlementSecondaryAsset)
	result, err := ComputeReward(position, pool, params, daysLater(30))
	require.NoError(t, err)

	require.Equal(t, "821000000", result.Gross.String())
	// 8.21 * 0.12 = 0.9852 settlement tokens at 18 decimals
	require.Equal(t, "985200000000000000", result.Payout.String())
	require.Equal(t, params.SettlementDenom, result.Denom)
	require.Equal(t, types.SettlementSecondaryAsset, result.Currency)
}

func TestComputeRewardSettlementFewerDecimals(t *testing.T) {
	params := types.DefaultParams()
	params.SettlementDecimals = 6

	position, pool := rewardFixture(tokens(100), 120, types.SettlementSecondaryAsset)
	position.PriceAtEntry = math.LegacyMustNewDecFromStr("2.5")

	result, err := ComputeReward(position, pool, params, daysLater(30))
	require.NoError(t, err)
	// 100 * 120% / 12 = 10 tokens, priced at 2.5 = 25 settlement tokens
	require.Equal(t, tokens(10).String(), result.Gross.String())
	require.Equal(t, "25000000", result.Payout.String())
}

func TestComputeRewardZeroRate(t *testing.T) {
	position, pool := rewardFixture(tokens(100), 0, types.SettlementStakeAsset)
	result, err := ComputeReward(position, pool, types.DefaultParams(), daysLater(90))
	require.NoError(t, err)
	require.True(t, result.Gross.IsZero())
	require.True(t, result.Payout.IsZero())
}

// TestComputeRewardMonotonic tests reward never decreases with time or stake
func TestComputeRewardMonotonic(t *testing.T) {
	for _, basis := range []types.AccrualBasis{types.AccrualMonthly, types.AccrualDaily} {
		params := types.DefaultParams()
		params.AccrualBasis = basis

		prev := math.ZeroInt()
		position, pool := rewardFixture(math.NewInt(123_456_789), 37, types.SettlementStakeAsset)
		for days := int64(30); days <= 800; days += 7 {
			result, err := ComputeReward(position, pool, params, daysLater(days))
			require.NoError(t, err)
			if result.Gross.LT(prev) {
				t.Errorf("%s: reward decreased at day %d: %s < %s", basis, days, result.Gross, prev)
			}
			prev = result.Gross
		}

		prev = math.ZeroInt()
		for staked := int64(1); staked <= 1_000_000_000; staked *= 3 {
			position, pool := rewardFixture(math.NewInt(staked), 37, types.SettlementStakeAsset)
			result, err := ComputeReward(position, pool, params, daysLater(95))
			require.NoError(t, err)
			if result.Gross.LT(prev) {
				t.Errorf("%s: reward decreased at stake %d: %s < %s", basis, staked, result.Gross, prev)
			}
			prev = result.Gross
		}
	}
}

// TestComputeRewardIsPure tests the engine leaves its inputs untouched
func TestComputeRewardIsPure(t *testing.T) {
	position, pool := rewardFixture(tokens(100), 100, types.SettlementStakeAsset)
	before := position

	_, err := ComputeReward(position, pool, types.DefaultParams(), daysLater(60))
	require.NoError(t, err)
	require.Equal(t, before.LastClaimAt, position.LastClaimAt)
	require.True(t, before.StakedTokens.Equal(position.StakedTokens))
	require.True(t, pool.TotalStaked.IsZero())
}
