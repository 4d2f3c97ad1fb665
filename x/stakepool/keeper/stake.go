package keeper

import (
	"context"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// Stake opens a position for owner in poolID and pulls amount of the stake denom into custody
func (k *Keeper) Stake(ctx context.Context, owner string, poolID uint64, amount math.Int) (*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	ownerAddr, err := sdk.AccAddressFromBech32(owner)
	if err != nil {
		return nil, types.ErrInvalidAddress.Wrapf("owner: %s", err)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return nil, types.ErrInvalidAmount.Wrap("stake amount must be positive")
	}

	pool := k.GetPool(sdkCtx, poolID)
	if pool == nil {
		return nil, types.ErrPoolNotFound.Wrapf("pool %d", poolID)
	}
	if amount.GT(pool.MaxPerWallet) {
		return nil, types.ErrWalletLimitExceeded.Wrapf("amount %s exceeds max per wallet %s", amount, pool.MaxPerWallet)
	}
	if !pool.HasCapacity(amount) {
		return nil, types.ErrPoolLimitExceeded.Wrapf("amount %s exceeds available capacity %s", amount, pool.Available())
	}
	if k.HasActivePosition(sdkCtx, owner, poolID) {
		return nil, types.ErrDuplicatePosition.Wrapf("%s already has an active position in pool %d", owner, poolID)
	}

	rate := k.GetRate(sdkCtx)
	if pool.SettlementCurrency == types.SettlementSecondaryAsset && !rate.IsPositive() {
		return nil, types.ErrOracleRateUnset.Wrapf("pool %d settles in the secondary asset", poolID)
	}

	params := k.GetParams(sdkCtx)
	now := sdkCtx.BlockTime().Unix()

	// Custody transfer and ledger writes commit together
	cacheCtx, write := sdkCtx.CacheContext()

	coins := sdk.NewCoins(sdk.NewCoin(params.StakeDenom, amount))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(cacheCtx, ownerAddr, types.ModuleName, coins); err != nil {
		return nil, errorsmod.Wrap(err, "transfer stake into custody")
	}

	position := types.NewPosition(k.nextID(cacheCtx, PositionCountKey), owner, pool, amount, rate, now)
	k.SetPosition(cacheCtx, position)

	pool.TotalStaked = pool.TotalStaked.Add(amount)
	k.SetPool(cacheCtx, pool)

	cacheCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeStake,
			sdk.NewAttribute(types.AttributeKeyPositionID, strconv.FormatUint(position.PositionID, 10)),
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(poolID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, owner),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			sdk.NewAttribute(types.AttributeKeyRate, rate.String()),
			sdk.NewAttribute(types.AttributeKeyTotalStaked, pool.TotalStaked.String()),
		),
	)

	write()

	k.logger.Info("Stake processed",
		"position_id", position.PositionID,
		"pool_id", poolID,
		"owner", owner,
		"amount", amount.String(),
		"unlock_at", position.UnlockAt,
	)

	return position, nil
}

// StakeMore deposits amount into custody as pending stake, merged at the next claim.
// The deposit reserves wallet and pool capacity immediately.
func (k *Keeper) StakeMore(ctx context.Context, owner string, positionID uint64, amount math.Int) (*types.Position, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	ownerAddr, err := sdk.AccAddressFromBech32(owner)
	if err != nil {
		return nil, types.ErrInvalidAddress.Wrapf("owner: %s", err)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return nil, types.ErrInvalidAmount.Wrap("stake amount must be positive")
	}

	position, pool, err := k.getOwnedActivePosition(sdkCtx, owner, positionID)
	if err != nil {
		return nil, err
	}
	if position.Principal().Add(amount).GT(pool.MaxPerWallet) {
		return nil, types.ErrWalletLimitExceeded.Wrapf("principal %s plus %s exceeds max per wallet %s",
			position.Principal(), amount, pool.MaxPerWallet)
	}
	if !pool.HasCapacity(amount) {
		return nil, types.ErrPoolLimitExceeded.Wrapf("amount %s exceeds available capacity %s", amount, pool.Available())
	}

	params := k.GetParams(sdkCtx)
	cacheCtx, write := sdkCtx.CacheContext()

	coins := sdk.NewCoins(sdk.NewCoin(params.StakeDenom, amount))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(cacheCtx, ownerAddr, types.ModuleName, coins); err != nil {
		return nil, errorsmod.Wrap(err, "transfer stake into custody")
	}

	position.PendingReestake = position.PendingReestake.Add(amount)
	k.SetPosition(cacheCtx, position)

	pool.TotalPending = pool.TotalPending.Add(amount)
	k.SetPool(cacheCtx, pool)

	cacheCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeStakeMore,
			sdk.NewAttribute(types.AttributeKeyPositionID, strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(pool.PoolID, 10)),
			sdk.NewAttribute(types.AttributeKeyOwner, owner),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)

	write()

	k.logger.Info("Stake more processed",
		"position_id", positionID,
		"owner", owner,
		"amount", amount.String(),
		"pending", position.PendingReestake.String(),
	)

	return position, nil
}

// subFloor returns a - b, clamped at zero
func subFloor(a, b math.Int) math.Int {
	if b.GTE(a) {
		return math.ZeroInt()
	}
	return a.Sub(b)
}
