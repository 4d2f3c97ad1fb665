package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

var (
	percentPerYearMonthly = int64(100) * types.MonthsPerYear // 1200
	percentPerYearDaily   = int64(100) * types.DaysPerYear   // 36500
)

// ComputeReward returns the reward accrued by position since its last claim.
//
// Rewards accrue linearly at AnnualRate percent per year over whole elapsed periods
// and are truncated, never rounded up. At least one whole 30-day month must have
// elapsed, otherwise ErrRewardNotDue is returned. Secondary-asset pools convert the
// gross stake-asset reward at the rate captured when the position was opened.
//
// ComputeReward never touches the store.
func ComputeReward(position types.Position, pool types.Pool, params types.Params, now int64) (types.RewardResult, error) {
	elapsed := now - position.LastClaimAt
	months := int64(0)
	if elapsed > 0 {
		months = elapsed / types.SecondsPerMonth
	}
	if months < 1 {
		return types.RewardResult{}, types.ErrRewardNotDue.Wrapf(
			"position %d: %ds elapsed since last claim, need %ds", position.PositionID, elapsed, types.SecondsPerMonth)
	}
	days := elapsed / types.SecondsPerDay

	var gross math.Int
	switch params.AccrualBasis {
	case types.AccrualDaily:
		gross = accrue(position.StakedTokens, pool.AnnualRate, days, percentPerYearDaily)
	default:
		gross = accrue(position.StakedTokens, pool.AnnualRate, months, percentPerYearMonthly)
	}
	gross = truncatePrecision(gross, params.StakeDecimals, params.RewardPrecision)

	result := types.RewardResult{
		Gross:    gross,
		Payout:   gross,
		Denom:    params.StakeDenom,
		Currency: pool.SettlementCurrency,
		Months:   months,
		Days:     days,
	}
	if pool.SettlementCurrency == types.SettlementSecondaryAsset {
		result.Payout = convertToSettlement(gross, position.PriceAtEntry, params.StakeDecimals, params.SettlementDecimals)
		result.Denom = params.SettlementDenom
	}
	return result, nil
}

// accrue computes staked * rate * periods / divisor, truncated
func accrue(staked math.Int, rate math.LegacyDec, periods, divisor int64) math.Int {
	if staked.IsNil() || !staked.IsPositive() || rate.IsNil() || !rate.IsPositive() {
		return math.ZeroInt()
	}
	return rate.MulInt(staked).MulInt64(periods).QuoInt64(divisor).TruncateInt()
}

// truncatePrecision drops base units below 10^-precision of a whole token
func truncatePrecision(amount math.Int, decimals, precision uint32) math.Int {
	if precision >= decimals {
		return amount
	}
	unit := types.TokenUnit(decimals - precision)
	return amount.Quo(unit).Mul(unit)
}

// convertToSettlement prices a stake-asset amount in settlement-asset base units
func convertToSettlement(amount math.Int, price math.LegacyDec, stakeDecimals, settlementDecimals uint32) math.Int {
	if price.IsNil() || !price.IsPositive() {
		return math.ZeroInt()
	}
	value := price.MulInt(amount)
	if settlementDecimals >= stakeDecimals {
		value = value.MulInt(types.TokenUnit(settlementDecimals - stakeDecimals))
	} else {
		value = value.QuoInt(types.TokenUnit(stakeDecimals - settlementDecimals))
	}
	return value.TruncateInt()
}

// PendingReward is a dry run of the reward engine for positionID at the block time
func (k *Keeper) PendingReward(ctx sdk.Context, positionID uint64) (types.RewardResult, error) {
	position := k.GetPosition(ctx, positionID)
	if position == nil {
		return types.RewardResult{}, types.ErrPositionNotFound.Wrapf("position %d", positionID)
	}
	if !position.Active {
		return types.RewardResult{}, types.ErrPositionInactive.Wrapf("position %d", positionID)
	}
	pool := k.GetPool(ctx, position.PoolID)
	if pool == nil {
		return types.RewardResult{}, types.ErrPoolNotFound.Wrapf("pool %d", position.PoolID)
	}
	return ComputeReward(*position, *pool, k.GetParams(ctx), ctx.BlockTime().Unix())
}
