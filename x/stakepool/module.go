package stakepool

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/core/appmodule"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/codec"
	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/module"
	"github.com/grpc-ecosystem/grpc-gateway/runtime"
	"github.com/spf13/cobra"

	"github.com/openalpha/stake-ledger/x/stakepool/client/cli"
	"github.com/openalpha/stake-ledger/x/stakepool/keeper"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

const (
	ModuleName = types.ModuleName

	consensusVersion = 1
)

var (
	_ module.AppModuleBasic = AppModuleBasic{}
	_ module.HasGenesis     = AppModule{}
	_ module.HasInvariants  = AppModule{}
	_ appmodule.AppModule   = AppModule{}
)

// AppModuleBasic defines the basic application module for stakepool
type AppModuleBasic struct{}

// Name returns the module's name
func (AppModuleBasic) Name() string {
	return ModuleName
}

// RegisterLegacyAminoCodec registers the module's types on the given LegacyAmino codec
func (AppModuleBasic) RegisterLegacyAminoCodec(cdc *codec.LegacyAmino) {
	cdc.RegisterConcrete(&types.MsgCreatePool{}, "stakepool/MsgCreatePool", nil)
	cdc.RegisterConcrete(&types.MsgStake{}, "stakepool/MsgStake", nil)
	cdc.RegisterConcrete(&types.MsgClaim{}, "stakepool/MsgClaim", nil)
	cdc.RegisterConcrete(&types.MsgStakeMore{}, "stakepool/MsgStakeMore", nil)
	cdc.RegisterConcrete(&types.MsgUnstake{}, "stakepool/MsgUnstake", nil)
	cdc.RegisterConcrete(&types.MsgSpend{}, "stakepool/MsgSpend", nil)
	cdc.RegisterConcrete(&types.MsgSetRate{}, "stakepool/MsgSetRate", nil)
	cdc.RegisterConcrete(&types.MsgUpdateParams{}, "stakepool/MsgUpdateParams", nil)
	cdc.RegisterConcrete(&types.MsgSetPositionOwner{}, "stakepool/MsgSetPositionOwner", nil)
	cdc.RegisterConcrete(&types.MsgSetPositionStakedTokens{}, "stakepool/MsgSetPositionStakedTokens", nil)
	cdc.RegisterConcrete(&types.MsgSetPositionLockUntil{}, "stakepool/MsgSetPositionLockUntil", nil)
	cdc.RegisterConcrete(&types.MsgSetPositionActive{}, "stakepool/MsgSetPositionActive", nil)
	cdc.RegisterConcrete(&types.MsgSetPositionPool{}, "stakepool/MsgSetPositionPool", nil)
}

// RegisterInterfaces is a no-op: stakepool messages carry no proto descriptors
// and are dispatched by the ledger service, not the interface registry.
func (AppModuleBasic) RegisterInterfaces(registry cdctypes.InterfaceRegistry) {}

// DefaultGenesis returns default genesis state as raw bytes
func (AppModuleBasic) DefaultGenesis(cdc codec.JSONCodec) json.RawMessage {
	bz, err := json.Marshal(types.DefaultGenesis())
	if err != nil {
		panic(err)
	}
	return bz
}

// ValidateGenesis performs genesis state validation
func (AppModuleBasic) ValidateGenesis(cdc codec.JSONCodec, config client.TxEncodingConfig, bz json.RawMessage) error {
	gs, err := ParseGenesis(bz)
	if err != nil {
		return err
	}
	return gs.Validate()
}

// RegisterGRPCGatewayRoutes registers the gRPC Gateway routes for the module
func (AppModuleBasic) RegisterGRPCGatewayRoutes(clientCtx client.Context, mux *runtime.ServeMux) {
	// Queries are served by the REST API in api/
}

// GetTxCmd returns the root tx command for the module
func (AppModuleBasic) GetTxCmd() *cobra.Command {
	return cli.GetTxCmd()
}

// GetQueryCmd returns the root query command for the module
func (AppModuleBasic) GetQueryCmd() *cobra.Command {
	return cli.GetQueryCmd()
}

// ParseGenesis decodes a stakepool genesis document. Empty input yields the default genesis.
func ParseGenesis(bz json.RawMessage) (*types.GenesisState, error) {
	if len(bz) == 0 {
		return types.DefaultGenesis(), nil
	}
	gs := types.DefaultGenesis()
	if err := json.Unmarshal(bz, gs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s genesis state: %w", ModuleName, err)
	}
	return gs, nil
}

// AppModule implements an application module for the stakepool module
type AppModule struct {
	AppModuleBasic
	keeper *keeper.Keeper
}

// NewAppModule creates a new AppModule object
func NewAppModule(k *keeper.Keeper) AppModule {
	return AppModule{
		AppModuleBasic: AppModuleBasic{},
		keeper:         k,
	}
}

// Name returns the module's name
func (am AppModule) Name() string {
	return ModuleName
}

// InitGenesis loads the module genesis. Invalid genesis is fatal.
func (am AppModule) InitGenesis(ctx sdk.Context, cdc codec.JSONCodec, data json.RawMessage) {
	gs, err := ParseGenesis(data)
	if err != nil {
		panic(err)
	}
	if err := am.keeper.InitGenesis(ctx, *gs); err != nil {
		panic(err)
	}
}

// ExportGenesis returns the module state as raw bytes
func (am AppModule) ExportGenesis(ctx sdk.Context, cdc codec.JSONCodec) json.RawMessage {
	bz, err := json.Marshal(am.keeper.ExportGenesis(ctx))
	if err != nil {
		panic(err)
	}
	return bz
}

// RegisterInvariants registers the module invariants
func (am AppModule) RegisterInvariants(ir sdk.InvariantRegistry) {
	keeper.RegisterInvariants(ir, am.keeper)
}

// ConsensusVersion implements module.HasConsensusVersion
func (am AppModule) ConsensusVersion() uint64 { return consensusVersion }

// IsOnePerModuleType implements the depinject.OnePerModuleType interface
func (am AppModule) IsOnePerModuleType() {}

// IsAppModule implements the appmodule.AppModule interface
func (am AppModule) IsAppModule() {}
