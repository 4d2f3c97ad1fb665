package keeper

import (
	"encoding/binary"
	"encoding/json"

	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// SetPosition saves a position and keeps the owner and active indexes in step with it
func (k *Keeper) SetPosition(ctx sdk.Context, position *types.Position) {
	store := k.GetStore(ctx)

	if old := k.GetPosition(ctx, position.PositionID); old != nil {
		if old.Owner != position.Owner {
			store.Delete(ownerPositionKey(old.Owner, old.PositionID))
		}
		if old.Active && (!position.Active || old.Owner != position.Owner || old.PoolID != position.PoolID) {
			k.clearActiveIndex(ctx, old)
		}
	}

	bz, _ := json.Marshal(position)
	store.Set(positionKey(position.PositionID), bz)
	store.Set(ownerPositionKey(position.Owner, position.PositionID), []byte{0x01})

	if position.Active {
		store.Set(activePositionKey(position.Owner, position.PoolID), idBytes(position.PositionID))
	}
}

// clearActiveIndex drops the active entry for position if it still points at it
func (k *Keeper) clearActiveIndex(ctx sdk.Context, position *types.Position) {
	store := k.GetStore(ctx)
	key := activePositionKey(position.Owner, position.PoolID)
	bz := store.Get(key)
	if bz != nil && binary.BigEndian.Uint64(bz) == position.PositionID {
		store.Delete(key)
	}
}

// GetPosition retrieves a position from the store
func (k *Keeper) GetPosition(ctx sdk.Context, positionID uint64) *types.Position {
	bz := k.GetStore(ctx).Get(positionKey(positionID))
	if bz == nil {
		return nil
	}
	var position types.Position
	if err := json.Unmarshal(bz, &position); err != nil {
		return nil
	}
	return &position
}

// GetAllPositions returns all positions ordered by id
func (k *Keeper) GetAllPositions(ctx sdk.Context) []*types.Position {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), PositionKeyPrefix)
	defer iterator.Close()

	var positions []*types.Position
	for ; iterator.Valid(); iterator.Next() {
		var position types.Position
		if err := json.Unmarshal(iterator.Value(), &position); err != nil {
			continue
		}
		positions = append(positions, &position)
	}
	return positions
}

// GetPositionsByOwner returns all positions held by owner, active or not
func (k *Keeper) GetPositionsByOwner(ctx sdk.Context, owner string) []*types.Position {
	prefix := ownerPositionPrefix(owner)
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	var positions []*types.Position
	for ; iterator.Valid(); iterator.Next() {
		positionID := binary.BigEndian.Uint64(iterator.Key()[len(prefix):])
		if position := k.GetPosition(ctx, positionID); position != nil {
			positions = append(positions, position)
		}
	}
	return positions
}

// GetActivePosition returns the active position of owner in poolID, if any
func (k *Keeper) GetActivePosition(ctx sdk.Context, owner string, poolID uint64) *types.Position {
	bz := k.GetStore(ctx).Get(activePositionKey(owner, poolID))
	if bz == nil {
		return nil
	}
	return k.GetPosition(ctx, binary.BigEndian.Uint64(bz))
}

// HasActivePosition checks the (owner, poolID) active index
func (k *Keeper) HasActivePosition(ctx sdk.Context, owner string, poolID uint64) bool {
	return k.GetStore(ctx).Has(activePositionKey(owner, poolID))
}

// GetPositionCount returns the number of positions ever created
func (k *Keeper) GetPositionCount(ctx sdk.Context) uint64 {
	return k.getCounter(ctx, PositionCountKey)
}

// getOwnedActivePosition loads a position for an owner-initiated operation
func (k *Keeper) getOwnedActivePosition(ctx sdk.Context, owner string, positionID uint64) (*types.Position, *types.Pool, error) {
	position := k.GetPosition(ctx, positionID)
	if position == nil {
		return nil, nil, types.ErrPositionNotFound.Wrapf("position %d", positionID)
	}
	if !position.Active {
		return nil, nil, types.ErrPositionInactive.Wrapf("position %d", positionID)
	}
	if position.Owner != owner {
		return nil, nil, types.ErrUnauthorized.Wrapf("position %d is not owned by %s", positionID, owner)
	}
	pool := k.GetPool(ctx, position.PoolID)
	if pool == nil {
		return nil, nil, types.ErrPoolNotFound.Wrapf("pool %d", position.PoolID)
	}
	return position, pool, nil
}
