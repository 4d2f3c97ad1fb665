package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// GetRate returns the oracle rate in settlement units per stake unit. Zero means unset.
func (k *Keeper) GetRate(ctx sdk.Context) math.LegacyDec {
	bz := k.GetStore(ctx).Get(RateKey)
	if bz == nil {
		return math.LegacyZeroDec()
	}
	rate, err := math.LegacyNewDecFromStr(string(bz))
	if err != nil {
		return math.LegacyZeroDec()
	}
	return rate
}

func (k *Keeper) setRate(ctx sdk.Context, rate math.LegacyDec) {
	k.GetStore(ctx).Set(RateKey, []byte(rate.String()))
}

// SetRate updates the oracle rate (authority only). No history is kept.
func (k *Keeper) SetRate(ctx context.Context, authority string, rate math.LegacyDec) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := k.checkAuthority(authority); err != nil {
		return err
	}
	if rate.IsNil() || !rate.IsPositive() {
		return types.ErrInvalidRate.Wrap("rate must be positive")
	}

	old := k.GetRate(sdkCtx)
	k.setRate(sdkCtx, rate)

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeSetRate,
			sdk.NewAttribute(types.AttributeKeyRate, rate.String()),
			sdk.NewAttribute(types.AttributeKeyOldValue, old.String()),
		),
	)

	k.logger.Info("Oracle rate updated",
		"old_rate", old.String(),
		"new_rate", rate.String(),
	)
	return nil
}
