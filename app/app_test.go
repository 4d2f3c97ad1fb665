package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/x/stakepool/bank"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

var (
	testAuthority = sdk.AccAddress([]byte("authority___________")).String()
	testOwner     = sdk.AccAddress([]byte("owner_______________")).String()
	genesisTime   = time.Unix(1_700_000_000, 0).UTC()
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.DBBackend = BackendMemDB
	cfg.Authority = testAuthority
	return cfg
}

const testGenesis = `{
  "chain_id": "stakeledger-test",
  "genesis_time": "2023-11-14T22:13:20Z",
  "app_state": {
    "stakepool": {
      "rate": "0.120000000000000000",
      "pools": [{
        "pool_id": 0,
        "max_per_wallet": "10000000000",
        "max_per_pool": "20000000000",
        "annual_rate": "100",
        "lock_duration": 604800,
        "settlement_currency": "stake",
        "total_staked": "0",
        "total_pending": "0",
        "created_at": 1700000000
      }]
    },
    "stakebank": {
      "balances": [{"address": "OWNER", "coins": [{"denom": "ustake", "amount": "5000000000"}]}],
      "allowances": [{"owner": "OWNER", "module": "stakepool", "denom": "ustake", "amount": "5000000000"}]
    }
  }
}`

func writeGenesis(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "genesis.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewLedgerAppDefaults(t *testing.T) {
	app, err := NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), testConfig(t))
	require.NoError(t, err)

	require.Equal(t, int64(1), app.Height())
	require.Equal(t, Name, app.ChainID())

	ctx := app.NewContext(genesisTime)
	require.Equal(t, types.DefaultParams(), app.StakepoolKeeper.GetParams(ctx))
	require.Equal(t, testAuthority, app.StakepoolKeeper.GetAuthority())
	require.Empty(t, app.StakepoolKeeper.GetAllPools(ctx))
	require.Equal(t, int64(2), ctx.BlockHeight())
}

func TestNewLedgerAppFromGenesisFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenesisFile = writeGenesis(t, cfg.Home, strings.ReplaceAll(testGenesis, "OWNER", testOwner))

	app, err := NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), cfg)
	require.NoError(t, err)
	require.Equal(t, "stakeledger-test", app.ChainID())

	ctx := app.NewContext(genesisTime.Add(time.Hour))
	require.Equal(t, "0.120000000000000000", app.StakepoolKeeper.GetRate(ctx).String())
	require.Len(t, app.StakepoolKeeper.GetAllPools(ctx), 1)

	position, err := app.StakepoolKeeper.Stake(ctx, testOwner, 0, math.NewInt(2_000_000_000))
	require.NoError(t, err)
	require.Equal(t, uint64(0), position.PositionID)
	require.Equal(t, int64(2), app.Commit())

	_, broken := app.AssertInvariants(app.NewContext(genesisTime.Add(time.Hour)))
	require.False(t, broken)

	doc, err := app.ExportGenesis(genesisTime.Add(2 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, "stakeledger-test", doc.ChainID)

	var exported types.GenesisState
	require.NoError(t, json.Unmarshal(doc.AppState["stakepool"], &exported))
	require.Len(t, exported.Positions, 1)
	require.Equal(t, "2000000000", exported.Pools[0].TotalStaked.String())

	bankGenesis, err := bank.UnmarshalGenesis(doc.AppState[bank.StoreKey])
	require.NoError(t, err)
	require.NotEmpty(t, bankGenesis.Balances)
}

func TestNewLedgerAppReopen(t *testing.T) {
	db := dbm.NewMemDB()
	cfg := testConfig(t)

	app, err := NewLedgerApp(log.NewNopLogger(), db, cfg)
	require.NoError(t, err)
	ctx := app.NewContext(genesisTime)
	_, err = app.StakepoolKeeper.CreatePool(ctx, testAuthority, math.NewInt(10), math.NewInt(20), math.LegacyNewDec(5), 0, types.SettlementStakeAsset)
	require.NoError(t, err)
	app.Commit()

	// Reopening an initialized store skips genesis
	cfg.GenesisFile = writeGenesis(t, cfg.Home, `{"app_state": {"stakepool": {"params": {}}}}`)
	reopened, err := NewLedgerApp(log.NewNopLogger(), db, cfg)
	require.NoError(t, err)
	require.Equal(t, int64(2), reopened.Height())
	require.Len(t, reopened.StakepoolKeeper.GetAllPools(reopened.NewContext(genesisTime)), 1)
}

func TestNewLedgerAppRejectsInvalidGenesis(t *testing.T) {
	tests := []struct {
		name    string
		genesis string
	}{
		{"malformed json", `{"app_state": `},
		{"invalid params", `{"app_state": {"stakepool": {"params": {"stake_denom": ""}}}}`},
		{"bad bank address", `{"app_state": {"stakebank": {"balances": [{"address": "nope", "coins": []}]}}}`},
		{"pool over capacity", `{"app_state": {"stakepool": {"pools": [{"pool_id": 0, "max_per_wallet": "1", "max_per_pool": "1", "annual_rate": "1", "settlement_currency": "stake", "total_staked": "2", "total_pending": "0"}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.GenesisFile = writeGenesis(t, cfg.Home, tt.genesis)
			_, err := NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), cfg)
			require.Error(t, err)
		})
	}
}

func TestNewLedgerAppHomeGenesis(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Home, "config"), 0o755))
	writeGenesis(t, filepath.Join(cfg.Home, "config"), `{"chain_id": "from-home", "app_state": {}}`)

	app, err := NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), cfg)
	require.NoError(t, err)
	require.Equal(t, "from-home", app.ChainID())
}

func TestDefaultGenesisDocumentLoads(t *testing.T) {
	doc := DefaultGenesisDocument("stakeledger-local")
	require.Contains(t, doc.AppState, types.ModuleName)

	bz, err := json.Marshal(doc)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.GenesisFile = writeGenesis(t, t.TempDir(), string(bz))
	app, err := NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), cfg)
	require.NoError(t, err)
	require.Equal(t, "stakeledger-local", app.ChainID())
	require.Equal(t, int64(1), app.Height())
}

func TestEncodingConfigValidatesGenesis(t *testing.T) {
	encoding := MakeEncodingConfig()
	require.NotNil(t, encoding.TxConfig)

	genesis := ModuleBasics.DefaultGenesis(encoding.Codec)
	require.Contains(t, genesis, types.ModuleName)
	require.NoError(t, ModuleBasics.ValidateGenesis(encoding.Codec, encoding.TxConfig, genesis))

	genesis[types.ModuleName] = json.RawMessage(`{"params":{"stake_denom":""}}`)
	require.Error(t, ModuleBasics.ValidateGenesis(encoding.Codec, encoding.TxConfig, genesis))
}
