package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

func TestCreatePoolSequentialIDs(t *testing.T) {
	f := setupKeeper(t)

	for i := 0; i < 3; i++ {
		poolID := f.createPool(tokens(100), tokens(200), int64(10*(i+1)), 7*day, types.SettlementStakeAsset)
		require.Equal(t, uint64(i), poolID)
	}
	require.Equal(t, uint64(3), f.keeper.GetPoolCount(f.ctx))

	pools := f.keeper.GetAllPools(f.ctx)
	require.Len(t, pools, 3)
	for i, pool := range pools {
		require.Equal(t, uint64(i), pool.PoolID)
		require.True(t, pool.TotalStaked.IsZero())
		require.True(t, pool.TotalPending.IsZero())
		require.Equal(t, genesisTime.Unix(), pool.CreatedAt)
	}
	require.True(t, pools[2].AnnualRate.Equal(math.LegacyNewDec(30)))
	require.Equal(t, int64(7*24*60*60), pools[0].LockDuration)
}

func TestCreatePoolRejects(t *testing.T) {
	testCases := []struct {
		name         string
		authority    string
		maxPerWallet math.Int
		maxPerPool   math.Int
		rate         math.LegacyDec
		lock         int64
		settlement   types.SettlementCurrency
		expected     error
	}{
		{"not authority", alice, tokens(1), tokens(2), math.LegacyNewDec(1), 0, types.SettlementStakeAsset, types.ErrUnauthorized},
		{"wallet above pool", authority, tokens(3), tokens(2), math.LegacyNewDec(1), 0, types.SettlementStakeAsset, types.ErrInvalidPool},
		{"negative rate", authority, tokens(1), tokens(2), math.LegacyNewDec(-1), 0, types.SettlementStakeAsset, types.ErrInvalidPool},
		{"negative lock", authority, tokens(1), tokens(2), math.LegacyNewDec(1), -1, types.SettlementStakeAsset, types.ErrInvalidPool},
		{"lock above maximum", authority, tokens(1), tokens(2), math.LegacyNewDec(1), types.MaxLockDuration + 1, types.SettlementStakeAsset, types.ErrInvalidPool},
		{"lock overflows unlock time", authority, tokens(1), tokens(2), math.LegacyNewDec(1), 1<<63 - 1, types.SettlementStakeAsset, types.ErrInvalidPool},
		{"unknown settlement", authority, tokens(1), tokens(2), math.LegacyNewDec(1), 0, types.SettlementCurrency(9), types.ErrInvalidPool},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupKeeper(t)
			_, err := f.keeper.CreatePool(f.ctx, tc.authority, tc.maxPerWallet, tc.maxPerPool, tc.rate, tc.lock, tc.settlement)
			require.ErrorIs(t, err, tc.expected)
			require.Equal(t, uint64(0), f.keeper.GetPoolCount(f.ctx))
		})
	}
}

func TestGetPoolMissing(t *testing.T) {
	f := setupKeeper(t)
	require.Nil(t, f.keeper.GetPool(f.ctx, 0))
	require.Empty(t, f.keeper.GetAllPools(f.ctx))
}

func TestPoolCapacityHelpers(t *testing.T) {
	pool := types.NewPool(0, tokens(100), tokens(200), math.LegacyNewDec(10), 0, types.SettlementStakeAsset, 0)
	pool.TotalStaked = tokens(120)
	pool.TotalPending = tokens(30)

	require.True(t, pool.Committed().Equal(tokens(150)))
	require.True(t, pool.Available().Equal(tokens(50)))
	require.True(t, pool.HasCapacity(tokens(50)))
	require.False(t, pool.HasCapacity(tokens(50).AddRaw(1)))

	// Admin overrides can leave a pool over its limit
	pool.TotalStaked = tokens(250)
	require.True(t, pool.Available().IsZero())
	require.False(t, pool.HasCapacity(math.OneInt()))
}
