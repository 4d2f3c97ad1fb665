package keeper

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// RegisterInvariants registers the stakepool invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k *Keeper) {
	ir.RegisterRoute(types.ModuleName, "pool-capacity", PoolCapacityInvariant(k))
	ir.RegisterRoute(types.ModuleName, "active-index", ActiveIndexInvariant(k))
}

// AllInvariants runs all invariants of the stakepool module
func AllInvariants(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		res, stop := PoolCapacityInvariant(k)(ctx)
		if stop {
			return res, stop
		}
		return ActiveIndexInvariant(k)(ctx)
	}
}

// PoolCapacityInvariant checks that no pool holds more than MaxPerPool
func PoolCapacityInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg    string
			broken bool
		)
		for _, pool := range k.GetAllPools(ctx) {
			if pool.Committed().GT(pool.MaxPerPool) {
				broken = true
				msg += fmt.Sprintf("\tpool %d: staked %s + pending %s > max %s\n",
					pool.PoolID, pool.TotalStaked, pool.TotalPending, pool.MaxPerPool)
			}
		}
		return sdk.FormatInvariant(types.ModuleName, "pool-capacity", msg), broken
	}
}

// ActiveIndexInvariant checks that every active position is the indexed one for its (owner, pool)
func ActiveIndexInvariant(k *Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var (
			msg    string
			broken bool
		)
		for _, position := range k.GetAllPositions(ctx) {
			if !position.Active {
				continue
			}
			indexed := k.GetActivePosition(ctx, position.Owner, position.PoolID)
			if indexed == nil || indexed.PositionID != position.PositionID {
				broken = true
				msg += fmt.Sprintf("\tposition %d: active but not indexed for %s in pool %d\n",
					position.PositionID, position.Owner, position.PoolID)
			}
		}
		return sdk.FormatInvariant(types.ModuleName, "active-index", msg), broken
	}
}
