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

// AdminKeeper is the administrative override surface for positions. Its setters
// bypass business rules, so every call is restricted to the authority and leaves
// an audit record, an event and a warning log line.
type AdminKeeper struct {
	k *Keeper
}

// NewAdminKeeper wraps k with the override surface
func NewAdminKeeper(k *Keeper) AdminKeeper {
	return AdminKeeper{k: k}
}

// SetPositionOwner reassigns a position to newOwner
func (a AdminKeeper) SetPositionOwner(ctx context.Context, authority string, positionID uint64, newOwner string) (types.AuditRecord, error) {
	if _, err := sdk.AccAddressFromBech32(newOwner); err != nil {
		return types.AuditRecord{}, types.ErrInvalidAddress.Wrapf("new owner: %s", err)
	}
	return a.override(ctx, authority, positionID, types.AuditFieldOwner, func(_ sdk.Context, p *types.Position) (string, string, error) {
		old := p.Owner
		p.Owner = newOwner
		return old, newOwner, nil
	})
}

// SetPositionStakedTokens overwrites the principal of a position. Pool totals are not adjusted.
func (a AdminKeeper) SetPositionStakedTokens(ctx context.Context, authority string, positionID uint64, amount math.Int) (types.AuditRecord, error) {
	if amount.IsNil() || amount.IsNegative() {
		return types.AuditRecord{}, types.ErrInvalidAmount.Wrap("staked tokens must be non-negative")
	}
	return a.override(ctx, authority, positionID, types.AuditFieldStakedTokens, func(_ sdk.Context, p *types.Position) (string, string, error) {
		old := p.StakedTokens.String()
		p.StakedTokens = amount
		return old, amount.String(), nil
	})
}

// SetPositionLockUntil overwrites the unlock time of a position
func (a AdminKeeper) SetPositionLockUntil(ctx context.Context, authority string, positionID uint64, unlockAt int64) (types.AuditRecord, error) {
	return a.override(ctx, authority, positionID, types.AuditFieldLockUntil, func(_ sdk.Context, p *types.Position) (string, string, error) {
		old := strconv.FormatInt(p.UnlockAt, 10)
		p.UnlockAt = unlockAt
		return old, strconv.FormatInt(unlockAt, 10), nil
	})
}

// SetPositionActive flips the active flag of a position
func (a AdminKeeper) SetPositionActive(ctx context.Context, authority string, positionID uint64, active bool) (types.AuditRecord, error) {
	return a.override(ctx, authority, positionID, types.AuditFieldActive, func(_ sdk.Context, p *types.Position) (string, string, error) {
		old := strconv.FormatBool(p.Active)
		p.Active = active
		return old, strconv.FormatBool(active), nil
	})
}

// SetPositionPool moves a position to another existing pool
func (a AdminKeeper) SetPositionPool(ctx context.Context, authority string, positionID uint64, poolID uint64) (types.AuditRecord, error) {
	return a.override(ctx, authority, positionID, types.AuditFieldPool, func(ctx sdk.Context, p *types.Position) (string, string, error) {
		if a.k.GetPool(ctx, poolID) == nil {
			return "", "", types.ErrPoolNotFound.Wrapf("pool %d", poolID)
		}
		old := strconv.FormatUint(p.PoolID, 10)
		p.PoolID = poolID
		return old, strconv.FormatUint(poolID, 10), nil
	})
}

type positionMutator func(ctx sdk.Context, p *types.Position) (oldValue, newValue string, err error)

func (a AdminKeeper) override(ctx context.Context, authority string, positionID uint64, field string, mutate positionMutator) (types.AuditRecord, error) {
	k := a.k
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := k.checkAuthority(authority); err != nil {
		return types.AuditRecord{}, err
	}

	position := k.GetPosition(sdkCtx, positionID)
	if position == nil {
		return types.AuditRecord{}, types.ErrPositionNotFound.Wrapf("position %d", positionID)
	}

	oldValue, newValue, err := mutate(sdkCtx, position)
	if err != nil {
		return types.AuditRecord{}, err
	}

	// The active index holds one position per (owner, pool)
	if position.Active {
		if current := k.GetActivePosition(sdkCtx, position.Owner, position.PoolID); current != nil && current.PositionID != positionID {
			return types.AuditRecord{}, types.ErrDuplicatePosition.Wrapf(
				"position %d is already active for %s in pool %d", current.PositionID, position.Owner, position.PoolID)
		}
	}

	cacheCtx, write := sdkCtx.CacheContext()

	k.SetPosition(cacheCtx, position)
	record := k.appendAuditRecord(cacheCtx, types.AuditRecord{
		Authority:  authority,
		PositionID: positionID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Timestamp:  sdkCtx.BlockTime().Unix(),
	})

	cacheCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeAdminOverride,
			sdk.NewAttribute(types.AttributeKeySequence, strconv.FormatUint(record.Sequence, 10)),
			sdk.NewAttribute(types.AttributeKeyAuthority, authority),
			sdk.NewAttribute(types.AttributeKeyPositionID, strconv.FormatUint(positionID, 10)),
			sdk.NewAttribute(types.AttributeKeyField, field),
			sdk.NewAttribute(types.AttributeKeyOldValue, oldValue),
			sdk.NewAttribute(types.AttributeKeyNewValue, newValue),
		),
	)

	write()

	k.logger.Warn("Admin override applied",
		"audit", record.Sequence,
		"authority", authority,
		"position_id", positionID,
		"field", field,
		"old", oldValue,
		"new", newValue,
	)

	return record, nil
}

// ============ Audit log ============

func (k *Keeper) appendAuditRecord(ctx sdk.Context, record types.AuditRecord) types.AuditRecord {
	record.Sequence = k.nextID(ctx, AuditCountKey)
	k.setAuditRecord(ctx, record)
	return record
}

func (k *Keeper) setAuditRecord(ctx sdk.Context, record types.AuditRecord) {
	bz, _ := json.Marshal(record)
	k.GetStore(ctx).Set(auditKey(record.Sequence), bz)
}

// GetAuditRecord returns the audit record with the given sequence
func (k *Keeper) GetAuditRecord(ctx sdk.Context, sequence uint64) *types.AuditRecord {
	bz := k.GetStore(ctx).Get(auditKey(sequence))
	if bz == nil {
		return nil
	}
	var record types.AuditRecord
	if err := json.Unmarshal(bz, &record); err != nil {
		return nil
	}
	return &record
}

// GetAuditLog returns audit records with sequence >= from, oldest first
func (k *Keeper) GetAuditLog(ctx sdk.Context, from uint64) []types.AuditRecord {
	store := k.GetStore(ctx)
	iterator := store.Iterator(auditKey(from), storetypes.PrefixEndBytes(AuditKeyPrefix))
	defer iterator.Close()

	var records []types.AuditRecord
	for ; iterator.Valid(); iterator.Next() {
		var record types.AuditRecord
		if err := json.Unmarshal(iterator.Value(), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records
}
