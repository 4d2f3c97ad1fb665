package keeper

import (
	"encoding/binary"
	"encoding/json"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// Store key prefixes
var (
	ParamsKey               = []byte{0x01}
	RateKey                 = []byte{0x02}
	PoolKeyPrefix           = []byte{0x10}
	PoolCountKey            = []byte{0x11}
	PositionKeyPrefix       = []byte{0x20}
	PositionCountKey        = []byte{0x21}
	ActivePositionKeyPrefix = []byte{0x22}
	OwnerPositionKeyPrefix  = []byte{0x23}
	AuditKeyPrefix          = []byte{0x30}
	AuditCountKey           = []byte{0x31}
)

// Keeper manages the stakepool module state
type Keeper struct {
	storeKey   storetypes.StoreKey
	bankKeeper types.BankKeeper
	logger     log.Logger
	authority  string
}

// NewKeeper creates a new stakepool keeper
func NewKeeper(
	storeKey storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	authority string,
	logger log.Logger,
) *Keeper {
	if _, err := sdk.AccAddressFromBech32(authority); err != nil {
		panic("invalid stakepool authority address: " + err.Error())
	}
	return &Keeper{
		storeKey:   storeKey,
		bankKeeper: bankKeeper,
		authority:  authority,
		logger:     logger.With("module", "x/stakepool"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetAuthority returns the registry administrator address
func (k *Keeper) GetAuthority() string {
	return k.authority
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

func (k *Keeper) checkAuthority(signer string) error {
	if signer != k.authority {
		return types.ErrUnauthorized.Wrapf("expected %s, got %s", k.authority, signer)
	}
	return nil
}

// ============ Keys ============

func idBytes(id uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, id)
	return bz
}

func poolKey(poolID uint64) []byte {
	return append(append([]byte{}, PoolKeyPrefix...), idBytes(poolID)...)
}

func positionKey(positionID uint64) []byte {
	return append(append([]byte{}, PositionKeyPrefix...), idBytes(positionID)...)
}

// activePositionKey indexes the single active position of (owner, poolID)
func activePositionKey(owner string, poolID uint64) []byte {
	key := append(append([]byte{}, ActivePositionKeyPrefix...), address.MustLengthPrefix([]byte(owner))...)
	return append(key, idBytes(poolID)...)
}

func ownerPositionPrefix(owner string) []byte {
	return append(append([]byte{}, OwnerPositionKeyPrefix...), address.MustLengthPrefix([]byte(owner))...)
}

func ownerPositionKey(owner string, positionID uint64) []byte {
	return append(ownerPositionPrefix(owner), idBytes(positionID)...)
}

func auditKey(sequence uint64) []byte {
	return append(append([]byte{}, AuditKeyPrefix...), idBytes(sequence)...)
}

// ============ Counters ============

func (k *Keeper) getCounter(ctx sdk.Context, key []byte) uint64 {
	bz := k.GetStore(ctx).Get(key)
	if bz == nil {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

func (k *Keeper) setCounter(ctx sdk.Context, key []byte, value uint64) {
	k.GetStore(ctx).Set(key, idBytes(value))
}

// nextID returns the current counter value and advances it
func (k *Keeper) nextID(ctx sdk.Context, key []byte) uint64 {
	id := k.getCounter(ctx, key)
	k.setCounter(ctx, key, id+1)
	return id
}

// ============ Params ============

// GetParams returns the module params, falling back to defaults when unset
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := k.GetStore(ctx).Get(ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.DefaultParams()
	}
	return params
}

// SetParams stores the module params
func (k *Keeper) SetParams(ctx sdk.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	bz, err := json.Marshal(params)
	if err != nil {
		return err
	}
	k.GetStore(ctx).Set(ParamsKey, bz)
	return nil
}
