package keeper

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// Unstake returns the principal of an unlocked position to its owner and closes it.
// The position is terminal afterwards.
func (k *Keeper) Unstake(ctx context.Context, owner string, positionID uint64) (math.Int, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	ownerAddr, err := sdk.AccAddressFromBech32(owner)
	if err != nil {
		return math.Int{}, types.ErrInvalidAddress.Wrapf("owner: %s", err)
	}

	position, pool, err := k.getOwnedActivePosition(sdkCtx, owner, positionID)
	if err != nil {
		return math.Int{}, err
	}

	now := sdkCtx.BlockTime().Unix()
	if position.IsLocked(now) {
		return math.Int{}, types.ErrLockNotExpired.Wrapf("position %d unlocks at %d, now %d", positionID, position.UnlockAt, now)
	}

	params := k.GetParams(sdkCtx)
	returned := position.Principal()

	cacheCtx, write := sdkCtx.CacheContext()

	if returned.IsPositive() {
		coins := sdk.NewCoins(sdk.NewCoin(params.StakeDenom, returned))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(cacheCtx, types.ModuleName, ownerAddr, coins); err != nil {
			return math.Int{}, errorsmod.Wrap(err, "return principal from custody")
		}
	}

	pool.TotalStaked = subFloor(pool.TotalStaked, position.StakedTokens)
	pool.TotalPending = subFloor(pool.TotalPending, position.PendingReestake)
	k.SetPool(cacheCtx, pool)

	position.StakedTokens = math.ZeroInt()
	position.PendingReestake = math.ZeroInt()
	position.Active = false
	k.SetPosition(cacheCtx, position)

	cacheCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeUnstake,
			sdk.NewAttribute(types.AttributeKeyPositionID, strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(pool.PoolID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, owner),
			sdk.NewAttribute(types.AttributeKeyAmount, returned.String()),
			sdk.NewAttribute(types.AttributeKeyTotalStaked, pool.TotalStaked.String()),
		),
	)

	write()

	k.logger.Info("Unstake processed",
		"position_id", positionID,
		"owner", owner,
		"returned", returned.String(),
	)

	return returned, nil
}

// Spend sends amount of staked tokens from custody to the store address.
// Pool capacity is only released when params.SpendReleasesCapacity is set.
func (k *Keeper) Spend(ctx context.Context, owner string, positionID uint64, amount math.Int) (*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if amount.IsNil() || !amount.IsPositive() {
		return nil, types.ErrInvalidAmount.Wrap("spend amount must be positive")
	}

	position, pool, err := k.getOwnedActivePosition(sdkCtx, owner, positionID)
	if err != nil {
		return nil, err
	}
	if amount.GT(position.StakedTokens) {
		return nil, types.ErrInsufficientStake.Wrapf("amount %s exceeds staked %s", amount, position.StakedTokens)
	}

	params := k.GetParams(sdkCtx)
	storeAddr, err := sdk.AccAddressFromBech32(params.StoreAddress)
	if err != nil {
		return nil, types.ErrInvalidParams.Wrapf("store address: %s", err)
	}

	cacheCtx, write := sdkCtx.CacheContext()

	coins := sdk.NewCoins(sdk.NewCoin(params.StakeDenom, amount))
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(cacheCtx, types.ModuleName, storeAddr, coins); err != nil {
		return nil, errorsmod.Wrap(err, "transfer spend to store")
	}

	position.StakedTokens = position.StakedTokens.Sub(amount)
	k.SetPosition(cacheCtx, position)

	if params.SpendReleasesCapacity {
		pool.TotalStaked = subFloor(pool.TotalStaked, amount)
		k.SetPool(cacheCtx, pool)
	}

	cacheCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeSpend,
			sdk.NewAttribute(types.AttributeKeyPositionID, strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, owner),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			sdk.NewAttribute(types.AttributeKeyRecipient, params.StoreAddress),
		),
	)

	write()

	k.logger.Info("Spend processed",
		"position_id", positionID,
		"owner", owner,
		"amount", amount.String(),
		"remaining", position.StakedTokens.String(),
	)

	return position, nil
}
