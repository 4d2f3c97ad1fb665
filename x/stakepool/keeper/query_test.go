package keeper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

func TestQueryPoolsAndPositions(t *testing.T) {
	f := setupKeeper(t)
	q := NewQueryServerImpl(f.keeper)

	for i := 0; i < 5; i++ {
		f.referencePool()
	}
	f.stake(alice, 0, tokens(10))
	f.stake(alice, 1, tokens(10))
	f.stake(bob, 1, tokens(10))

	pools, total, err := q.Pools(f.ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(5), total)
	require.Len(t, pools, 2)
	require.Equal(t, uint64(1), pools[0].PoolID)
	require.Equal(t, uint64(2), pools[1].PoolID)

	pools, _, err = q.Pools(f.ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	pools, _, err = q.Pools(f.ctx, 9, 10)
	require.NoError(t, err)
	require.Empty(t, pools)

	positions, total, err := q.Positions(f.ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(3), total)
	require.Len(t, positions, 3)

	owned, err := q.PositionsByOwner(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, owned, 2)

	_, err = q.PositionsByOwner(f.ctx, "alice")
	require.ErrorIs(t, err, types.ErrInvalidAddress)

	active, err := q.ActivePosition(f.ctx, bob, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), active.PositionID)

	_, err = q.ActivePosition(f.ctx, bob, 0)
	require.ErrorIs(t, err, types.ErrPositionNotFound)

	_, err = q.Pool(f.ctx, 5)
	require.ErrorIs(t, err, types.ErrPoolNotFound)
	_, err = q.Position(f.ctx, 3)
	require.ErrorIs(t, err, types.ErrPositionNotFound)

	params, err := q.Params(f.ctx)
	require.NoError(t, err)
	require.Equal(t, types.DefaultParams(), params)
}

func TestQueryUnlockSchedule(t *testing.T) {
	f := setupKeeper(t)
	q := NewQueryServerImpl(f.keeper)

	short := f.createPool(tokens(100), tokens(1000), 10, 1*day, types.SettlementStakeAsset)
	long := f.createPool(tokens(100), tokens(1000), 10, 30*day, types.SettlementStakeAsset)

	a := f.stake(alice, long, tokens(10))  // unlocks day 30
	b := f.stake(bob, short, tokens(20))   // unlocks day 1
	c := f.stake(carol, short, tokens(30)) // unlocks day 1, later id
	f.advance(2 * day)
	d := f.stake(alice, short, tokens(40)) // unlocks day 3

	entries, err := q.UnlockSchedule(f.ctx, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	order := []uint64{b.PositionID, c.PositionID, d.PositionID, a.PositionID}
	for i, entry := range entries {
		if entry.PositionID != order[i] {
			t.Errorf("entry %d: expected position %d, got %d", i, order[i], entry.PositionID)
		}
	}
	require.True(t, entries[0].Unlocked)
	require.True(t, entries[1].Unlocked)
	require.False(t, entries[2].Unlocked)
	require.True(t, entries[3].Principal.Equal(tokens(10)))

	// Bounded window and limit
	from := genesisTime.Add(2 * day).Unix()
	to := genesisTime.Add(31 * day).Unix()
	entries, err = q.UnlockSchedule(f.ctx, from, to, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, d.PositionID, entries[0].PositionID)

	schedule := f.keeper.BuildUnlockSchedule(f.ctx)
	require.Equal(t, 4, schedule.Len())
	next, ok := schedule.Next()
	require.True(t, ok)
	require.Equal(t, d.PositionID, next.PositionID)

	// Closed positions drop out
	_, err = f.keeper.Unstake(f.ctx, bob, b.PositionID)
	require.NoError(t, err)
	entries, err = q.UnlockSchedule(f.ctx, 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestQueryAuditLogEmpty(t *testing.T) {
	f := setupKeeper(t)
	q := NewQueryServerImpl(f.keeper)

	records, err := q.AuditLog(f.ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}
