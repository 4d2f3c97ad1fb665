package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GenesisState defines the stakepool genesis state
type GenesisState struct {
	Params    Params         `json:"params"`
	Rate      math.LegacyDec `json:"rate"`
	Pools     []Pool         `json:"pools"`
	Positions []Position     `json:"positions"`
	AuditLog  []AuditRecord  `json:"audit_log"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:    DefaultParams(),
		Rate:      math.LegacyZeroDec(),
		Pools:     []Pool{},
		Positions: []Position{},
		AuditLog:  []AuditRecord{},
	}
}

// Validate performs basic genesis state validation. Pool and position ids must be
// contiguous from zero, at most one position may be active per (owner, pool), and
// pool totals must stay within their limits.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return err
	}
	if gs.Rate.IsNil() || gs.Rate.IsNegative() {
		return errorsmod.Wrap(ErrInvalidGenesis, "rate must be non-negative")
	}

	pools := make(map[uint64]bool, len(gs.Pools))
	for i, pool := range gs.Pools {
		if pool.PoolID != uint64(i) {
			return errorsmod.Wrapf(ErrInvalidGenesis, "pool id %d at index %d", pool.PoolID, i)
		}
		if err := pool.Validate(); err != nil {
			return errorsmod.Wrapf(ErrInvalidGenesis, "pool %d: %s", pool.PoolID, err)
		}
		if pool.TotalStaked.IsNil() || pool.TotalPending.IsNil() {
			return errorsmod.Wrapf(ErrInvalidGenesis, "pool %d: missing totals", pool.PoolID)
		}
		if pool.Committed().GT(pool.MaxPerPool) {
			return errorsmod.Wrapf(ErrInvalidGenesis, "pool %d: committed %s exceeds max per pool %s", pool.PoolID, pool.Committed(), pool.MaxPerPool)
		}
		pools[pool.PoolID] = true
	}

	active := make(map[string]uint64)
	for i, pos := range gs.Positions {
		if pos.PositionID != uint64(i) {
			return errorsmod.Wrapf(ErrInvalidGenesis, "position id %d at index %d", pos.PositionID, i)
		}
		if _, err := sdk.AccAddressFromBech32(pos.Owner); err != nil {
			return errorsmod.Wrapf(ErrInvalidGenesis, "position %d owner: %s", pos.PositionID, err)
		}
		if !pools[pos.PoolID] {
			return errorsmod.Wrapf(ErrInvalidGenesis, "position %d references unknown pool %d", pos.PositionID, pos.PoolID)
		}
		if pos.StakedTokens.IsNil() || pos.StakedTokens.IsNegative() || pos.PendingReestake.IsNil() || pos.PendingReestake.IsNegative() {
			return errorsmod.Wrapf(ErrInvalidGenesis, "position %d: negative amounts", pos.PositionID)
		}
		if !pos.Active {
			continue
		}
		key := fmt.Sprintf("%s/%d", pos.Owner, pos.PoolID)
		if other, ok := active[key]; ok {
			return errorsmod.Wrapf(ErrInvalidGenesis, "positions %d and %d are both active for %s", other, pos.PositionID, key)
		}
		active[key] = pos.PositionID
	}

	for i, rec := range gs.AuditLog {
		if rec.Sequence != uint64(i) {
			return errorsmod.Wrapf(ErrInvalidGenesis, "audit sequence %d at index %d", rec.Sequence, i)
		}
	}
	return nil
}
