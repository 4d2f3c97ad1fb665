// Package bank is a store-backed custody bank for the stake and settlement denoms.
// Transfers into a module account spend an allowance the owner granted to that
// module first, then the owner's balance. Writes go through the caller's context,
// so they roll back together with a discarded cache context.
package bank

import (
	"context"
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// StoreKey is the bank store key
const StoreKey = "stakebank"

// Store key prefixes
var (
	BalanceKeyPrefix   = []byte{0x01}
	AllowanceKeyPrefix = []byte{0x02}
)

var _ types.BankKeeper = (*Keeper)(nil)

// Balance is a genesis balance entry
type Balance struct {
	Address string    `json:"address"`
	Coins   sdk.Coins `json:"coins"`
}

// Allowance is a genesis allowance entry
type Allowance struct {
	Owner  string   `json:"owner"`
	Module string   `json:"module"`
	Denom  string   `json:"denom"`
	Amount math.Int `json:"amount"`
}

// GenesisState holds initial balances and allowances
type GenesisState struct {
	Balances   []Balance   `json:"balances"`
	Allowances []Allowance `json:"allowances"`
}

// Keeper manages custody balances
type Keeper struct {
	storeKey storetypes.StoreKey
	logger   log.Logger
}

// NewKeeper creates a new bank keeper
func NewKeeper(storeKey storetypes.StoreKey, logger log.Logger) *Keeper {
	return &Keeper{
		storeKey: storeKey,
		logger:   logger.With("module", "x/stakepool/bank"),
	}
}

// ModuleAddress returns the account address of a module
func ModuleAddress(module string) sdk.AccAddress {
	return authtypes.NewModuleAddress(module)
}

func balanceKey(addr sdk.AccAddress, denom string) []byte {
	key := append(append([]byte{}, BalanceKeyPrefix...), address.MustLengthPrefix(addr)...)
	return append(key, []byte(denom)...)
}

func allowanceKey(owner sdk.AccAddress, module, denom string) []byte {
	key := append(append([]byte{}, AllowanceKeyPrefix...), address.MustLengthPrefix(owner)...)
	key = append(key, address.MustLengthPrefix([]byte(module))...)
	return append(key, []byte(denom)...)
}

func (k *Keeper) getAmount(ctx context.Context, key []byte) math.Int {
	bz := sdk.UnwrapSDKContext(ctx).KVStore(k.storeKey).Get(key)
	if bz == nil {
		return math.ZeroInt()
	}
	var amt math.Int
	if err := amt.Unmarshal(bz); err != nil {
		return math.ZeroInt()
	}
	return amt
}

func (k *Keeper) setAmount(ctx context.Context, key []byte, amt math.Int) {
	store := sdk.UnwrapSDKContext(ctx).KVStore(k.storeKey)
	if amt.IsZero() {
		store.Delete(key)
		return
	}
	bz, _ := amt.Marshal()
	store.Set(key, bz)
}

// GetBalance returns the balance of addr in denom
func (k *Keeper) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	return sdk.NewCoin(denom, k.getAmount(ctx, balanceKey(addr, denom)))
}

// GetModuleBalance returns the custody balance of a module in denom
func (k *Keeper) GetModuleBalance(ctx context.Context, module, denom string) sdk.Coin {
	return k.GetBalance(ctx, ModuleAddress(module), denom)
}

// GetAllowance returns what module may still pull from owner in denom
func (k *Keeper) GetAllowance(ctx context.Context, owner sdk.AccAddress, module, denom string) math.Int {
	return k.getAmount(ctx, allowanceKey(owner, module, denom))
}

// Approve sets the amount module may pull from owner, replacing any previous allowance
func (k *Keeper) Approve(ctx context.Context, owner sdk.AccAddress, module string, coin sdk.Coin) error {
	if err := coin.Validate(); err != nil {
		return errorsmod.Wrap(types.ErrInvalidAmount, err.Error())
	}
	k.setAmount(ctx, allowanceKey(owner, module, coin.Denom), coin.Amount)
	k.logger.Debug("Allowance set", "owner", owner.String(), "module", module, "amount", coin.String())
	return nil
}

// Mint credits addr with coins
func (k *Keeper) Mint(ctx context.Context, addr sdk.AccAddress, coins sdk.Coins) error {
	if !coins.IsValid() {
		return errorsmod.Wrapf(types.ErrInvalidAmount, "invalid coins %s", coins)
	}
	for _, coin := range coins {
		key := balanceKey(addr, coin.Denom)
		k.setAmount(ctx, key, k.getAmount(ctx, key).Add(coin.Amount))
	}
	k.logger.Info("Minted", "address", addr.String(), "coins", coins.String())
	return nil
}

// MintToModule credits a module account, e.g. to fund reward reserves
func (k *Keeper) MintToModule(ctx context.Context, module string, coins sdk.Coins) error {
	return k.Mint(ctx, ModuleAddress(module), coins)
}

// SendCoinsFromAccountToModule pulls amt from senderAddr into a module account.
// Fails with ErrInsufficientAllowance before ErrInsufficientBalance.
func (k *Keeper) SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	for _, coin := range amt {
		allowance := k.GetAllowance(ctx, senderAddr, recipientModule, coin.Denom)
		if allowance.LT(coin.Amount) {
			return errorsmod.Wrapf(types.ErrInsufficientAllowance, "%s allowed %s%s to %s, need %s",
				senderAddr, allowance, coin.Denom, recipientModule, coin)
		}
	}
	if err := k.send(ctx, senderAddr, ModuleAddress(recipientModule), amt); err != nil {
		return err
	}
	for _, coin := range amt {
		key := allowanceKey(senderAddr, recipientModule, coin.Denom)
		k.setAmount(ctx, key, k.getAmount(ctx, key).Sub(coin.Amount))
	}
	return nil
}

// SendCoinsFromModuleToAccount pays amt out of a module account
func (k *Keeper) SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	return k.send(ctx, ModuleAddress(senderModule), recipientAddr, amt)
}

func (k *Keeper) send(ctx context.Context, from, to sdk.AccAddress, amt sdk.Coins) error {
	if !amt.IsValid() {
		return errorsmod.Wrapf(types.ErrInvalidAmount, "invalid coins %s", amt)
	}
	for _, coin := range amt {
		if balance := k.getAmount(ctx, balanceKey(from, coin.Denom)); balance.LT(coin.Amount) {
			return errorsmod.Wrapf(types.ErrInsufficientBalance, "%s has %s%s, need %s", from, balance, coin.Denom, coin)
		}
	}
	for _, coin := range amt {
		fromKey, toKey := balanceKey(from, coin.Denom), balanceKey(to, coin.Denom)
		k.setAmount(ctx, fromKey, k.getAmount(ctx, fromKey).Sub(coin.Amount))
		k.setAmount(ctx, toKey, k.getAmount(ctx, toKey).Add(coin.Amount))
	}
	return nil
}

// InitGenesis loads balances and allowances
func (k *Keeper) InitGenesis(ctx context.Context, gs GenesisState) error {
	for _, b := range gs.Balances {
		addr, err := sdk.AccAddressFromBech32(b.Address)
		if err != nil {
			return errorsmod.Wrapf(types.ErrInvalidAddress, "balance %s: %s", b.Address, err)
		}
		if err := k.Mint(ctx, addr, b.Coins); err != nil {
			return err
		}
	}
	for _, a := range gs.Allowances {
		owner, err := sdk.AccAddressFromBech32(a.Owner)
		if err != nil {
			return errorsmod.Wrapf(types.ErrInvalidAddress, "allowance %s: %s", a.Owner, err)
		}
		if err := k.Approve(ctx, owner, a.Module, sdk.NewCoin(a.Denom, a.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// ExportGenesis returns every non-zero balance and allowance
func (k *Keeper) ExportGenesis(ctx context.Context) GenesisState {
	gs := DefaultGenesis()
	store := sdk.UnwrapSDKContext(ctx).KVStore(k.storeKey)

	balances := storetypes.KVStorePrefixIterator(store, BalanceKeyPrefix)
	defer balances.Close()
	for ; balances.Valid(); balances.Next() {
		var amt math.Int
		if err := amt.Unmarshal(balances.Value()); err != nil {
			continue
		}
		addr, denom := splitLengthPrefixed(balances.Key()[len(BalanceKeyPrefix):])
		gs.Balances = append(gs.Balances, Balance{
			Address: sdk.AccAddress(addr).String(),
			Coins:   sdk.NewCoins(sdk.NewCoin(string(denom), amt)),
		})
	}

	allowances := storetypes.KVStorePrefixIterator(store, AllowanceKeyPrefix)
	defer allowances.Close()
	for ; allowances.Valid(); allowances.Next() {
		var amt math.Int
		if err := amt.Unmarshal(allowances.Value()); err != nil {
			continue
		}
		owner, rest := splitLengthPrefixed(allowances.Key()[len(AllowanceKeyPrefix):])
		module, denom := splitLengthPrefixed(rest)
		gs.Allowances = append(gs.Allowances, Allowance{
			Owner:  sdk.AccAddress(owner).String(),
			Module: string(module),
			Denom:  string(denom),
			Amount: amt,
		})
	}
	return gs
}

func splitLengthPrefixed(bz []byte) (head, tail []byte) {
	n := int(bz[0])
	return bz[1 : 1+n], bz[1+n:]
}

// DefaultGenesis returns an empty bank genesis
func DefaultGenesis() GenesisState {
	return GenesisState{Balances: []Balance{}, Allowances: []Allowance{}}
}

// UnmarshalGenesis decodes a bank genesis document
func UnmarshalGenesis(bz []byte) (GenesisState, error) {
	gs := DefaultGenesis()
	if len(bz) == 0 {
		return gs, nil
	}
	if err := json.Unmarshal(bz, &gs); err != nil {
		return gs, err
	}
	return gs, nil
}
