package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// InitGenesis loads a validated genesis state into the store
func (k *Keeper) InitGenesis(ctx sdk.Context, gs types.GenesisState) error {
	if err := gs.Validate(); err != nil {
		return err
	}
	if err := k.SetParams(ctx, gs.Params); err != nil {
		return err
	}
	if gs.Rate.IsPositive() {
		k.setRate(ctx, gs.Rate)
	}

	for i := range gs.Pools {
		k.SetPool(ctx, &gs.Pools[i])
	}
	k.setCounter(ctx, PoolCountKey, uint64(len(gs.Pools)))

	for i := range gs.Positions {
		k.SetPosition(ctx, &gs.Positions[i])
	}
	k.setCounter(ctx, PositionCountKey, uint64(len(gs.Positions)))

	for _, record := range gs.AuditLog {
		k.setAuditRecord(ctx, record)
	}
	k.setCounter(ctx, AuditCountKey, uint64(len(gs.AuditLog)))

	k.logger.Info("Genesis initialized",
		"pools", len(gs.Pools),
		"positions", len(gs.Positions),
		"audit_records", len(gs.AuditLog),
	)
	return nil
}

// ExportGenesis returns the module state as a genesis state
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	gs := &types.GenesisState{
		Params:    k.GetParams(ctx),
		Rate:      k.GetRate(ctx),
		Pools:     []types.Pool{},
		Positions: []types.Position{},
		AuditLog:  k.GetAuditLog(ctx, 0),
	}
	for _, pool := range k.GetAllPools(ctx) {
		gs.Pools = append(gs.Pools, *pool)
	}
	for _, position := range k.GetAllPositions(ctx) {
		gs.Positions = append(gs.Positions, *position)
	}
	if gs.AuditLog == nil {
		gs.AuditLog = []types.AuditRecord{}
	}
	return gs
}
