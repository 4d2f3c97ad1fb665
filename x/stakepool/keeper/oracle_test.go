package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

func TestSetRate(t *testing.T) {
	f := setupKeeper(t)
	require.True(t, f.keeper.GetRate(f.ctx).IsZero())

	err := f.keeper.SetRate(f.ctx, alice, math.LegacyNewDec(2))
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = f.keeper.SetRate(f.ctx, authority, math.LegacyZeroDec())
	require.ErrorIs(t, err, types.ErrInvalidRate)

	err = f.keeper.SetRate(f.ctx, authority, math.LegacyNewDec(-3))
	require.ErrorIs(t, err, types.ErrInvalidRate)
	require.True(t, f.keeper.GetRate(f.ctx).IsZero())

	require.NoError(t, f.keeper.SetRate(f.ctx, authority, math.LegacyMustNewDecFromStr("0.12")))
	require.Equal(t, "0.120000000000000000", f.keeper.GetRate(f.ctx).String())

	// Only the latest value is kept
	require.NoError(t, f.keeper.SetRate(f.ctx, authority, math.LegacyMustNewDecFromStr("1.5")))
	require.True(t, f.keeper.GetRate(f.ctx).Equal(math.LegacyMustNewDecFromStr("1.5")))
}
