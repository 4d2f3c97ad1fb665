package types

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

// Default parameter values
const (
	DefaultStakeDenom         = "ustake"
	DefaultSettlementDenom    = "usettle"
	DefaultStakeDecimals      = uint32(8)
	DefaultSettlementDecimals = uint32(18)
	MaxDecimals               = uint32(18)

	// StoreModuleName derives the default spend recipient address
	StoreModuleName = "stakepool_store"
)

// Params defines the module parameters
type Params struct {
	StakeDenom            string       `json:"stake_denom"`
	SettlementDenom       string       `json:"settlement_denom"`
	StakeDecimals         uint32       `json:"stake_decimals"`
	SettlementDecimals    uint32       `json:"settlement_decimals"`
	StoreAddress          string       `json:"store_address"`
	AccrualBasis          AccrualBasis `json:"accrual_basis"`
	RewardPrecision       uint32       `json:"reward_precision"` // decimals of a whole stake token kept in rewards
	SpendReleasesCapacity bool         `json:"spend_releases_capacity"`
}

// DefaultParams returns the default module parameters
func DefaultParams() Params {
	return Params{
		StakeDenom:            DefaultStakeDenom,
		SettlementDenom:       DefaultSettlementDenom,
		StakeDecimals:         DefaultStakeDecimals,
		SettlementDecimals:    DefaultSettlementDecimals,
		StoreAddress:          authtypes.NewModuleAddress(StoreModuleName).String(),
		AccrualBasis:          AccrualMonthly,
		RewardPrecision:       DefaultStakeDecimals,
		SpendReleasesCapacity: false,
	}
}

// Validate checks the parameters
func (p Params) Validate() error {
	if err := sdk.ValidateDenom(p.StakeDenom); err != nil {
		return errorsmod.Wrapf(ErrInvalidParams, "stake denom: %s", err)
	}
	if err := sdk.ValidateDenom(p.SettlementDenom); err != nil {
		return errorsmod.Wrapf(ErrInvalidParams, "settlement denom: %s", err)
	}
	if p.StakeDenom == p.SettlementDenom {
		return errorsmod.Wrap(ErrInvalidParams, "stake and settlement denoms must differ")
	}
	if p.StakeDecimals > MaxDecimals || p.SettlementDecimals > MaxDecimals {
		return errorsmod.Wrapf(ErrInvalidParams, "decimals must not exceed %d", MaxDecimals)
	}
	if p.RewardPrecision > p.StakeDecimals {
		return errorsmod.Wrapf(ErrInvalidParams, "reward precision %d exceeds stake decimals %d", p.RewardPrecision, p.StakeDecimals)
	}
	if _, err := sdk.AccAddressFromBech32(p.StoreAddress); err != nil {
		return errorsmod.Wrapf(ErrInvalidParams, "store address: %s", err)
	}
	switch p.AccrualBasis {
	case AccrualMonthly, AccrualDaily:
	default:
		return errorsmod.Wrapf(ErrInvalidParams, "unknown accrual basis %q", p.AccrualBasis)
	}
	return nil
}

// RewardDenom returns the denom rewards of the given currency are paid in
func (p Params) RewardDenom(c SettlementCurrency) string {
	if c == SettlementSecondaryAsset {
		return p.SettlementDenom
	}
	return p.StakeDenom
}

// TokenUnit returns 10^decimals base units
func TokenUnit(decimals uint32) math.Int {
	return math.NewIntWithDecimal(1, int(decimals))
}
