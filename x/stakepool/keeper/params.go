package keeper

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// UpdateParams replaces the module params (authority only)
func (k *Keeper) UpdateParams(ctx context.Context, authority string, params types.Params) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := k.checkAuthority(authority); err != nil {
		return err
	}
	// Custody and stored amounts are denominated in the current assets
	if k.GetPoolCount(sdkCtx) > 0 {
		current := k.GetParams(sdkCtx)
		if params.StakeDenom != current.StakeDenom || params.SettlementDenom != current.SettlementDenom ||
			params.StakeDecimals != current.StakeDecimals || params.SettlementDecimals != current.SettlementDecimals {
			return errorsmod.Wrap(types.ErrInvalidParams, "denoms and decimals are fixed once a pool exists")
		}
	}
	if err := k.SetParams(sdkCtx, params); err != nil {
		return err
	}

	sdkCtx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeUpdateParams,
			sdk.NewAttribute(types.AttributeKeyAuthority, authority),
			sdk.NewAttribute(types.AttributeKeyDenom, params.StakeDenom+"/"+params.SettlementDenom),
		),
	)

	k.logger.Info("Params updated",
		"stake_denom", params.StakeDenom,
		"settlement_denom", params.SettlementDenom,
		"accrual_basis", string(params.AccrualBasis),
		"reward_precision", params.RewardPrecision,
		"spend_releases_capacity", params.SpendReleasesCapacity,
	)
	return nil
}
