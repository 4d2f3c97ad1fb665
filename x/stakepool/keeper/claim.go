package keeper

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// Claim settles the reward accrued by a position. In payout mode the reward is sent
// to the owner in the pool's settlement denom; in compound mode the gross stake-asset
// reward is added to the principal. Either way pending stake is merged and the claim
// clock restarts at the block time.
func (k *Keeper) Claim(ctx context.Context, owner string, positionID uint64, mode types.ClaimMode) (*types.Position, types.RewardResult, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if mode != types.ClaimModePayout && mode != types.ClaimModeCompound {
		return nil, types.RewardResult{}, types.ErrInvalidClaimMode.Wrapf("%s", mode)
	}
	ownerAddr, err := sdk.AccAddressFromBech32(owner)
	if err != nil {
		return nil, types.RewardResult{}, types.ErrInvalidAddress.Wrapf("owner: %s", err)
	}

	position, pool, err := k.getOwnedActivePosition(sdkCtx, owner, positionID)
	if err != nil {
		return nil, types.RewardResult{}, err
	}

	params := k.GetParams(sdkCtx)
	now := sdkCtx.BlockTime().Unix()

	// Pending stake is merged after the reward is computed and earns nothing for this window
	reward, err := ComputeReward(*position, *pool, params, now)
	if err != nil {
		return nil, types.RewardResult{}, err
	}

	cacheCtx, write := sdkCtx.CacheContext()

	switch mode {
	case types.ClaimModePayout:
		if reward.Payout.IsPositive() {
			coins := sdk.NewCoins(sdk.NewCoin(reward.Denom, reward.Payout))
			if err := k.bankKeeper.SendCoinsFromModuleToAccount(cacheCtx, types.ModuleName, ownerAddr, coins); err != nil {
				return nil, types.RewardResult{}, errorsmod.Wrap(err, "pay out reward from custody")
			}
		}
	case types.ClaimModeCompound:
		if !pool.HasCapacity(reward.Gross) {
			return nil, types.RewardResult{}, types.ErrPoolLimitExceeded.Wrapf(
				"compounding %s exceeds available capacity %s", reward.Gross, pool.Available())
		}
		position.StakedTokens = position.StakedTokens.Add(reward.Gross)
		pool.TotalStaked = pool.TotalStaked.Add(reward.Gross)
	}

	merged := position.PendingReestake
	if merged.IsPositive() {
		position.StakedTokens = position.StakedTokens.Add(merged)
		pool.TotalStaked = pool.TotalStaked.Add(merged)
		pool.TotalPending = subFloor(pool.TotalPending, merged)
	}
	position.PendingReestake = position.PendingReestake.Sub(merged)
	position.LastClaimAt = now

	k.SetPosition(cacheCtx, position)
	k.SetPool(cacheCtx, pool)

	cacheCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeClaim,
			sdk.NewAttribute(types.AttributeKeyPositionID, strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(pool.PoolID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, owner),
			sdk.NewAttribute(types.AttributeKeyMode, mode.String()),
			sdk.NewAttribute(types.AttributeKeyGross, reward.Gross.String()),
			sdk.NewAttribute(types.AttributeKeyPayout, reward.Payout.String()),
			sdk.NewAttribute(types.AttributeKeyDenom, reward.Denom),
			sdk.NewAttribute(types.AttributeKeyMerged, merged.String()),
		),
	)

	write()

	k.logger.Info("Claim processed",
		"position_id", positionID,
		"owner", owner,
		"mode", mode.String(),
		"months", reward.Months,
		"gross", reward.Gross.String(),
		"payout", reward.Payout.String(),
		"denom", reward.Denom,
	)

	return position, reward, nil
}
