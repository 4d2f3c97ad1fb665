package keeper

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

func TestClaimMonthBoundary(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	position := f.stake(alice, poolID, tokens(100))

	f.advance(30*day - 1)
	_, _, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.ErrorIs(t, err, types.ErrRewardNotDue)

	f.advance(1)
	claimed, reward, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.NoError(t, err)
	require.Equal(t, "833333333", reward.Gross.String())
	require.Equal(t, f.ctx.BlockTime().Unix(), claimed.LastClaimAt)

	// The clock restarts at the claim
	f.advance(29 * day)
	_, _, err = f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.ErrorIs(t, err, types.ErrRewardNotDue)
}

func TestClaimPayoutFullYear(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	denom := f.keeper.GetParams(f.ctx).StakeDenom
	position := f.stake(alice, poolID, tokens(100))
	reserve := f.custody(denom)

	f.advance(365 * day)
	claimed, reward, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.NoError(t, err)

	require.True(t, reward.Gross.Equal(tokens(100)), "got %s", reward.Gross)
	require.True(t, reward.Payout.Equal(tokens(100)))
	require.Equal(t, denom, reward.Denom)
	require.True(t, f.balance(alice, denom).Equal(tokens(100)))
	require.True(t, f.custody(denom).Equal(reserve.Sub(tokens(100))))

	// Principal untouched in payout mode
	require.True(t, claimed.StakedTokens.Equal(tokens(100)))
	require.True(t, f.keeper.GetPool(f.ctx, poolID).TotalStaked.Equal(tokens(100)))
}

// TestClaimCompoundReference tests the reference configuration: daily accrual in
// cents, compounding 30 days of 100% APR on 100 tokens
func TestClaimCompoundReference(t *testing.T) {
	f := setupKeeper(t)
	f.setParams(func(p *types.Params) {
		p.AccrualBasis = types.AccrualDaily
		p.RewardPrecision = 2
	})
	poolID := f.referencePool()
	denom := f.keeper.GetParams(f.ctx).StakeDenom
	position := f.stake(alice, poolID, tokens(100))
	reserve := f.custody(denom)

	f.advance(30 * day)
	claimed, reward, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModeCompound)
	require.NoError(t, err)

	require.Equal(t, "821000000", reward.Gross.String())
	require.Equal(t, "10821000000", claimed.StakedTokens.String()) // 108.21
	require.Equal(t, f.ctx.BlockTime().Unix(), claimed.LastClaimAt)

	// Compounding moves no tokens
	require.True(t, f.balance(alice, denom).IsZero())
	require.True(t, f.custody(denom).Equal(reserve))
	require.Equal(t, "10821000000", f.keeper.GetPool(f.ctx, poolID).TotalStaked.String())

	// Immediately claiming again is gated
	_, _, err = f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModeCompound)
	require.ErrorIs(t, err, types.ErrRewardNotDue)
	f.requireInvariants()
}

func TestClaimCompoundRespectsPoolLimit(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	position := f.stake(alice, poolID, tokens(100))
	f.stake(bob, poolID, tokens(100))

	f.advance(30 * day)
	_, _, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModeCompound)
	require.ErrorIs(t, err, types.ErrPoolLimitExceeded)

	stored := f.keeper.GetPosition(f.ctx, position.PositionID)
	require.Equal(t, genesisTime.Unix(), stored.LastClaimAt)
	require.True(t, stored.StakedTokens.Equal(tokens(100)))

	// Payout still works on a full pool
	_, _, err = f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.NoError(t, err)
	f.requireInvariants()
}

// TestClaimCompoundIgnoresWalletLimit tests compounded rewards may take a
// position above the per-wallet limit
func TestClaimCompoundIgnoresWalletLimit(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	position := f.stake(alice, poolID, tokens(100))

	f.advance(60 * day)
	claimed, _, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModeCompound)
	require.NoError(t, err)
	require.True(t, claimed.StakedTokens.GT(tokens(100)))
}

func TestClaimSecondaryAsset(t *testing.T) {
	f := setupKeeper(t)
	f.setParams(func(p *types.Params) {
		p.AccrualBasis = types.AccrualDaily
		p.RewardPrecision = 2
	})
	params := f.keeper.GetParams(f.ctx)
	poolID := f.createPool(tokens(100), tokens(200), 100, 7*day, types.SettlementSecondaryAsset)

	require.NoError(t, f.keeper.SetRate(f.ctx, authority, math.LegacyMustNewDecFromStr("0.12")))
	position := f.stake(alice, poolID, tokens(100))

	// The rate moves after entry; payout uses the entry price
	require.NoError(t, f.keeper.SetRate(f.ctx, authority, math.LegacyMustNewDecFromStr("0.50")))

	f.advance(30 * day)
	claimed, reward, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.NoError(t, err)

	require.Equal(t, params.SettlementDenom, reward.Denom)
	require.Equal(t, "985200000000000000", reward.Payout.String())
	require.Equal(t, "985200000000000000", f.balance(alice, params.SettlementDenom).String())
	require.True(t, f.balance(alice, params.StakeDenom).IsZero())
	require.True(t, claimed.StakedTokens.Equal(tokens(100)))

	// Compounding a secondary pool adds the stake-asset gross
	f.advance(30 * day)
	claimed, reward, err = f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModeCompound)
	require.NoError(t, err)
	require.Equal(t, "821000000", reward.Gross.String())
	require.Equal(t, "10821000000", claimed.StakedTokens.String())
	require.Equal(t, "985200000000000000", f.balance(alice, params.SettlementDenom).String())
}

func TestClaimRejects(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	position := f.stake(alice, poolID, tokens(100))
	f.advance(30 * day)

	testCases := []struct {
		name       string
		owner      string
		positionID uint64
		mode       types.ClaimMode
		expected   error
	}{
		{"not owner", bob, position.PositionID, types.ClaimModePayout, types.ErrUnauthorized},
		{"unknown position", alice, 42, types.ClaimModePayout, types.ErrPositionNotFound},
		{"unspecified mode", alice, position.PositionID, types.ClaimModeUnspecified, types.ErrInvalidClaimMode},
		{"bad owner", "alice", position.PositionID, types.ClaimModeCompound, types.ErrInvalidAddress},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.keeper.Claim(f.ctx, tc.owner, tc.positionID, tc.mode)
			require.ErrorIs(t, err, tc.expected)
		})
	}

	require.Equal(t, genesisTime.Unix(), f.keeper.GetPosition(f.ctx, position.PositionID).LastClaimAt)
}

func TestClaimInactivePosition(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	position := f.stake(alice, poolID, tokens(100))

	f.advance(30 * day)
	_, err := f.keeper.Unstake(f.ctx, alice, position.PositionID)
	require.NoError(t, err)

	_, _, err = f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.ErrorIs(t, err, types.ErrPositionInactive)
}

// TestClaimEmptyReservesLeavesNoState tests a failed payout rolls back every write
func TestClaimEmptyReservesLeavesNoState(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	denom := f.keeper.GetParams(f.ctx).StakeDenom
	position := f.stake(alice, poolID, tokens(100))

	// Drain custody, principal included
	all := sdk.NewCoins(sdk.NewCoin(denom, f.custody(denom)))
	require.NoError(t, f.bank.SendCoinsFromModuleToAccount(f.ctx, types.ModuleName, sdk.MustAccAddressFromBech32(carol), all))

	f.advance(30 * day)
	_, _, err := f.keeper.Claim(f.ctx, alice, position.PositionID, types.ClaimModePayout)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	stored := f.keeper.GetPosition(f.ctx, position.PositionID)
	require.Equal(t, genesisTime.Unix(), stored.LastClaimAt)
	require.True(t, stored.StakedTokens.Equal(tokens(100)))
}

func TestPendingReward(t *testing.T) {
	f := setupKeeper(t)
	poolID := f.referencePool()
	position := f.stake(alice, poolID, tokens(100))

	_, err := f.keeper.PendingReward(f.ctx, position.PositionID)
	require.ErrorIs(t, err, types.ErrRewardNotDue)

	f.advance(60 * day)
	reward, err := f.keeper.PendingReward(f.ctx, position.PositionID)
	require.NoError(t, err)
	require.Equal(t, "1666666666", reward.Gross.String())

	// Dry run leaves the position untouched
	require.Equal(t, genesisTime.Unix(), f.keeper.GetPosition(f.ctx, position.PositionID).LastClaimAt)

	_, err = f.keeper.PendingReward(f.ctx, 9)
	require.ErrorIs(t, err, types.ErrPositionNotFound)
}
