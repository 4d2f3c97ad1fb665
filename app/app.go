package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/module"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/stake-ledger/x/stakepool"
	"github.com/openalpha/stake-ledger/x/stakepool/bank"
	stakepoolkeeper "github.com/openalpha/stake-ledger/x/stakepool/keeper"
	stakepooltypes "github.com/openalpha/stake-ledger/x/stakepool/types"
)

const (
	Name = "stakeledger"

	// GenesisFileName is looked up under Home/config when no genesis file is configured
	GenesisFileName = "genesis.json"
)

var (
	// DefaultNodeHome default home directory for the ledger daemon
	DefaultNodeHome string

	// ModuleBasics defines the module BasicManager used for codec registration
	ModuleBasics = module.NewBasicManager(
		stakepool.AppModuleBasic{},
	)
)

func init() {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	DefaultNodeHome = filepath.Join(userHomeDir, "."+Name)
}

// GenesisDocument is the ledger genesis file: the stakepool module state
// under "stakepool" and custody balances under "stakebank".
type GenesisDocument struct {
	ChainID     string                     `json:"chain_id"`
	GenesisTime time.Time                  `json:"genesis_time"`
	AppState    map[string]json.RawMessage `json:"app_state"`
}

// LedgerApp assembles the stakepool keeper and its custody bank over a commit multistore
type LedgerApp struct {
	logger   log.Logger
	db       dbm.DB
	cms      storetypes.CommitMultiStore
	keys     map[string]*storetypes.KVStoreKey
	encoding EncodingConfig
	chainID  string

	StakepoolKeeper *stakepoolkeeper.Keeper
	BankKeeper      *bank.Keeper
	module          stakepool.AppModule

	invariantsMu sync.Mutex
	invariants   map[string]sdk.Invariant
}

var _ sdk.InvariantRegistry = (*LedgerApp)(nil)

// NewLedgerApp opens the store, builds the keepers and, on a fresh store,
// loads genesis from cfg.GenesisFile (or Home/config/genesis.json) or defaults.
func NewLedgerApp(logger log.Logger, db dbm.DB, cfg Config) (*LedgerApp, error) {
	encodingConfig := MakeEncodingConfig()

	keys := storetypes.NewKVStoreKeys(stakepooltypes.StoreKey, bank.StoreKey)
	cms := store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	for _, key := range keys {
		cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, nil)
	}
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	doc, err := loadGenesis(cfg)
	if err != nil {
		return nil, err
	}

	authority := cfg.Authority
	if authority == "" {
		authority = authtypes.NewModuleAddress("gov").String()
	}

	app := &LedgerApp{
		logger:     logger.With("module", "app"),
		db:         db,
		cms:        cms,
		keys:       keys,
		encoding:   encodingConfig,
		chainID:    cfg.ChainID,
		invariants: make(map[string]sdk.Invariant),
	}
	if doc.ChainID != "" {
		app.chainID = doc.ChainID
	}

	app.BankKeeper = bank.NewKeeper(keys[bank.StoreKey], logger)
	app.StakepoolKeeper = stakepoolkeeper.NewKeeper(
		keys[stakepooltypes.StoreKey],
		app.BankKeeper,
		authority,
		logger,
	)
	app.module = stakepool.NewAppModule(app.StakepoolKeeper)
	app.module.RegisterInvariants(app)

	if cms.LastCommitID().Version == 0 {
		if err := app.initChain(doc); err != nil {
			return nil, err
		}
	}

	app.logger.Info("Ledger loaded",
		"chain_id", app.chainID,
		"height", cms.LastCommitID().Version,
		"authority", authority,
	)
	return app, nil
}

// DefaultGenesisDocument returns a genesis document holding each module's default state
func DefaultGenesisDocument(chainID string) *GenesisDocument {
	return &GenesisDocument{
		ChainID:     chainID,
		GenesisTime: time.Now().UTC(),
		AppState:    ModuleBasics.DefaultGenesis(MakeEncodingConfig().Codec),
	}
}

func loadGenesis(cfg Config) (*GenesisDocument, error) {
	path := cfg.GenesisFile
	if path == "" && cfg.Home != "" {
		candidate := filepath.Join(cfg.Home, "config", GenesisFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	doc := &GenesisDocument{AppState: map[string]json.RawMessage{}}
	if path == "" {
		return doc, nil
	}

	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	if err := json.Unmarshal(bz, doc); err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	if doc.AppState == nil {
		doc.AppState = map[string]json.RawMessage{}
	}
	return doc, nil
}

// initChain validates and loads the genesis document, then commits height 1
func (app *LedgerApp) initChain(doc *GenesisDocument) error {
	genesis := ModuleBasics.DefaultGenesis(app.encoding.Codec)
	for name, bz := range doc.AppState {
		genesis[name] = bz
	}
	if err := ModuleBasics.ValidateGenesis(app.encoding.Codec, app.encoding.TxConfig, genesis); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}

	genesisTime := doc.GenesisTime
	if genesisTime.IsZero() {
		genesisTime = time.Now().UTC()
	}
	ctx := app.NewContext(genesisTime)

	bankGenesis, err := bank.UnmarshalGenesis(genesis[bank.StoreKey])
	if err != nil {
		return fmt.Errorf("decode %s genesis: %w", bank.StoreKey, err)
	}
	if err := app.BankKeeper.InitGenesis(ctx, bankGenesis); err != nil {
		return err
	}

	gs, err := stakepool.ParseGenesis(genesis[stakepool.ModuleName])
	if err != nil {
		return err
	}
	if err := app.StakepoolKeeper.InitGenesis(ctx, *gs); err != nil {
		return err
	}

	if msg, broken := app.AssertInvariants(ctx); broken {
		return fmt.Errorf("genesis breaks invariants: %s", msg)
	}

	app.Commit()
	return nil
}

// NewContext returns a context over the working state at block time now
func (app *LedgerApp) NewContext(now time.Time) sdk.Context {
	header := cmtproto.Header{
		ChainID: app.chainID,
		Height:  app.cms.LastCommitID().Version + 1,
		Time:    now.UTC(),
	}
	return sdk.NewContext(app.cms, header, false, app.logger)
}

// Commit persists the working state and returns the new height
func (app *LedgerApp) Commit() int64 {
	id := app.cms.Commit()
	app.logger.Debug("Committed", "height", id.Version, "hash", fmt.Sprintf("%X", id.Hash))
	return id.Version
}

// Height returns the last committed height
func (app *LedgerApp) Height() int64 {
	return app.cms.LastCommitID().Version
}

// ChainID returns the ledger chain id
func (app *LedgerApp) ChainID() string {
	return app.chainID
}

// Close closes the underlying database
func (app *LedgerApp) Close() error {
	return app.db.Close()
}

// RegisterRoute implements sdk.InvariantRegistry
func (app *LedgerApp) RegisterRoute(moduleName, route string, invar sdk.Invariant) {
	app.invariantsMu.Lock()
	defer app.invariantsMu.Unlock()
	app.invariants[moduleName+"/"+route] = invar
}

// AssertInvariants runs every registered invariant against ctx
func (app *LedgerApp) AssertInvariants(ctx sdk.Context) (string, bool) {
	app.invariantsMu.Lock()
	routes := make([]string, 0, len(app.invariants))
	for route := range app.invariants {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	checks := make([]sdk.Invariant, len(routes))
	for i, route := range routes {
		checks[i] = app.invariants[route]
	}
	app.invariantsMu.Unlock()

	var broken []string
	for _, check := range checks {
		if msg, stop := check(ctx); stop {
			broken = append(broken, msg)
		}
	}
	return strings.Join(broken, "\n"), len(broken) > 0
}

// ExportGenesis exports the current ledger state as a genesis document
func (app *LedgerApp) ExportGenesis(now time.Time) (*GenesisDocument, error) {
	ctx := app.NewContext(now)

	bankGenesis, err := json.Marshal(app.BankKeeper.ExportGenesis(ctx))
	if err != nil {
		return nil, err
	}

	return &GenesisDocument{
		ChainID:     app.chainID,
		GenesisTime: now.UTC(),
		AppState: map[string]json.RawMessage{
			stakepool.ModuleName: app.module.ExportGenesis(ctx, app.encoding.Codec),
			bank.StoreKey:        bankGenesis,
		},
	}, nil
}
