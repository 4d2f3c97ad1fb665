package keeper

import (
	"context"
	"encoding/json"
	"strconv"

	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// SetPool saves a pool to the store
func (k *Keeper) SetPool(ctx sdk.Context, pool *types.Pool) {
	bz, _ := json.Marshal(pool)
	k.GetStore(ctx).Set(poolKey(pool.PoolID), bz)
}

// GetPool retrieves a pool from the store
func (k *Keeper) GetPool(ctx sdk.Context, poolID uint64) *types.Pool {
	bz := k.GetStore(ctx).Get(poolKey(poolID))
	if bz == nil {
		return nil
	}
	var pool types.Pool
	if err := json.Unmarshal(bz, &pool); err != nil {
		return nil
	}
	return &pool
}

// GetAllPools returns all pools ordered by id
func (k *Keeper) GetAllPools(ctx sdk.Context) []*types.Pool {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), PoolKeyPrefix)
	defer iterator.Close()

	var pools []*types.Pool
	for ; iterator.Valid(); iterator.Next() {
		var pool types.Pool
		if err := json.Unmarshal(iterator.Value(), &pool); err != nil {
			continue
		}
		pools = append(pools, &pool)
	}
	return pools
}

// GetPoolCount returns the number of pools ever created
func (k *Keeper) GetPoolCount(ctx sdk.Context) uint64 {
	return k.getCounter(ctx, PoolCountKey)
}

// CreatePool appends a new pool and returns its index (authority only)
func (k *Keeper) CreatePool(
	ctx context.Context,
	authority string,
	maxPerWallet, maxPerPool math.Int,
	annualRate math.LegacyDec,
	lockDuration int64,
	settlement types.SettlementCurrency,
) (uint64, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := k.checkAuthority(authority); err != nil {
		return 0, err
	}

	pool := types.NewPool(0, maxPerWallet, maxPerPool, annualRate, lockDuration, settlement, sdkCtx.BlockTime().Unix())
	if err := pool.Validate(); err != nil {
		return 0, err
	}

	pool.PoolID = k.nextID(sdkCtx, PoolCountKey)
	k.SetPool(sdkCtx, pool)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeCreatePool,
			sdk.NewAttribute(types.AttributeKeyPoolID, strconv.FormatUint(pool.PoolID, 10)),
			sdk.NewAttribute("max_per_wallet", maxPerWallet.String()),
			sdk.NewAttribute("max_per_pool", maxPerPool.String()),
			sdk.NewAttribute("annual_rate", annualRate.String()),
			sdk.NewAttribute("lock_duration", strconv.FormatInt(lockDuration, 10)),
			sdk.NewAttribute(types.AttributeKeySettlement, settlement.String()),
		),
	)

	k.logger.Info("Pool created",
		"pool_id", pool.PoolID,
		"max_per_wallet", maxPerWallet.String(),
		"max_per_pool", maxPerPool.String(),
		"annual_rate", annualRate.String(),
		"lock_duration", lockDuration,
		"settlement", settlement.String(),
	)

	return pool.PoolID, nil
}
