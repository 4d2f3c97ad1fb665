package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// QueryServer defines the stakepool QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Params returns the module params
func (q *QueryServer) Params(ctx context.Context) (types.Params, error) {
	return q.keeper.GetParams(sdk.UnwrapSDKContext(ctx)), nil
}

// Rate returns the oracle rate
func (q *QueryServer) Rate(ctx context.Context) (math.LegacyDec, error) {
	return q.keeper.GetRate(sdk.UnwrapSDKContext(ctx)), nil
}

// Pool returns a pool by ID
func (q *QueryServer) Pool(ctx context.Context, poolID uint64) (*types.Pool, error) {
	pool := q.keeper.GetPool(sdk.UnwrapSDKContext(ctx), poolID)
	if pool == nil {
		return nil, types.ErrPoolNotFound.Wrapf("pool %d", poolID)
	}
	return pool, nil
}

// Pools returns all pools with pagination
func (q *QueryServer) Pools(ctx context.Context, offset, limit uint64) ([]*types.Pool, uint64, error) {
	pools := q.keeper.GetAllPools(sdk.UnwrapSDKContext(ctx))
	page, total := paginate(pools, offset, limit)
	return page, total, nil
}

// Position returns a position by ID
func (q *QueryServer) Position(ctx context.Context, positionID uint64) (*types.Position, error) {
	position := q.keeper.GetPosition(sdk.UnwrapSDKContext(ctx), positionID)
	if position == nil {
		return nil, types.ErrPositionNotFound.Wrapf("position %d", positionID)
	}
	return position, nil
}

// Positions returns all positions with pagination
func (q *QueryServer) Positions(ctx context.Context, offset, limit uint64) ([]*types.Position, uint64, error) {
	positions := q.keeper.GetAllPositions(sdk.UnwrapSDKContext(ctx))
	page, total := paginate(positions, offset, limit)
	return page, total, nil
}

// PositionsByOwner returns every position held by owner
func (q *QueryServer) PositionsByOwner(ctx context.Context, owner string) ([]*types.Position, error) {
	if _, err := sdk.AccAddressFromBech32(owner); err != nil {
		return nil, types.ErrInvalidAddress.Wrapf("owner: %s", err)
	}
	return q.keeper.GetPositionsByOwner(sdk.UnwrapSDKContext(ctx), owner), nil
}

// ActivePosition returns the active position of owner in poolID
func (q *QueryServer) ActivePosition(ctx context.Context, owner string, poolID uint64) (*types.Position, error) {
	position := q.keeper.GetActivePosition(sdk.UnwrapSDKContext(ctx), owner, poolID)
	if position == nil {
		return nil, types.ErrPositionNotFound.Wrapf("no active position for %s in pool %d", owner, poolID)
	}
	return position, nil
}

// PendingReward returns what a claim would yield at the block time
func (q *QueryServer) PendingReward(ctx context.Context, positionID uint64) (types.RewardResult, error) {
	return q.keeper.PendingReward(sdk.UnwrapSDKContext(ctx), positionID)
}

// UnlockSchedule returns active positions ordered by unlock time
func (q *QueryServer) UnlockSchedule(ctx context.Context, from, to int64, limit int) ([]types.ScheduleEntry, error) {
	schedule := q.keeper.BuildUnlockSchedule(sdk.UnwrapSDKContext(ctx))
	return schedule.Range(from, to, limit), nil
}

// AuditLog returns admin override records from sequence onwards
func (q *QueryServer) AuditLog(ctx context.Context, from uint64) ([]types.AuditRecord, error) {
	records := q.keeper.GetAuditLog(sdk.UnwrapSDKContext(ctx), from)
	if records == nil {
		records = []types.AuditRecord{}
	}
	return records, nil
}

func paginate[T any](items []T, offset, limit uint64) ([]T, uint64) {
	total := uint64(len(items))
	if offset >= total {
		return []T{}, total
	}
	end := offset + limit
	if end > total || limit == 0 {
		end = total
	}
	return items[offset:end], total
}
