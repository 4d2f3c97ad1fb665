package types

import (
	"encoding/json"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// Module name and store key
const (
	ModuleName = "stakepool"
	StoreKey   = ModuleName
	RouterKey  = ModuleName
)

// Time constants (seconds)
const (
	SecondsPerDay   = int64(86400)
	SecondsPerMonth = 30 * SecondsPerDay
	DaysPerYear     = int64(365)
	MonthsPerYear   = int64(12)

	// MaxLockDuration bounds pool locks so UnlockAt cannot overflow
	MaxLockDuration = 100 * DaysPerYear * SecondsPerDay
)

// SettlementCurrency selects the asset a pool pays rewards in
type SettlementCurrency int32

const (
	SettlementStakeAsset     SettlementCurrency = 0
	SettlementSecondaryAsset SettlementCurrency = 1
)

var settlementCurrencyNames = map[SettlementCurrency]string{
	SettlementStakeAsset:     "SETTLEMENT_STAKE_ASSET",
	SettlementSecondaryAsset: "SETTLEMENT_SECONDARY_ASSET",
}

func (c SettlementCurrency) String() string {
	if name, ok := settlementCurrencyNames[c]; ok {
		return name
	}
	return fmt.Sprintf("SETTLEMENT_UNKNOWN(%d)", int32(c))
}

// IsValid reports whether c is a known settlement currency
func (c SettlementCurrency) IsValid() bool {
	_, ok := settlementCurrencyNames[c]
	return ok
}

// ParseSettlementCurrency accepts the canonical name or the short forms "stake" and "secondary"
func ParseSettlementCurrency(s string) (SettlementCurrency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "STAKE", "STAKE_ASSET", "SETTLEMENT_STAKE_ASSET":
		return SettlementStakeAsset, nil
	case "SECONDARY", "SECONDARY_ASSET", "SETTLEMENT_SECONDARY_ASSET":
		return SettlementSecondaryAsset, nil
	}
	return 0, errorsmod.Wrapf(ErrInvalidPool, "unknown settlement currency %q", s)
}

func (c SettlementCurrency) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *SettlementCurrency) UnmarshalJSON(bz []byte) error {
	var s string
	if err := json.Unmarshal(bz, &s); err != nil {
		return err
	}
	parsed, err := ParseSettlementCurrency(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClaimMode selects between paying a reward out and folding it into principal
type ClaimMode int32

const (
	ClaimModeUnspecified ClaimMode = 0
	ClaimModePayout      ClaimMode = 1
	ClaimModeCompound    ClaimMode = 2
)

func (m ClaimMode) String() string {
	switch m {
	case ClaimModePayout:
		return "CLAIM_MODE_PAYOUT"
	case ClaimModeCompound:
		return "CLAIM_MODE_COMPOUND"
	}
	return "CLAIM_MODE_UNSPECIFIED"
}

// ParseClaimMode accepts "payout", "compound" or the canonical names
func ParseClaimMode(s string) (ClaimMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PAYOUT", "CLAIM_MODE_PAYOUT":
		return ClaimModePayout, nil
	case "COMPOUND", "REESTAKE", "CLAIM_MODE_COMPOUND":
		return ClaimModeCompound, nil
	}
	return ClaimModeUnspecified, errorsmod.Wrapf(ErrInvalidClaimMode, "%q", s)
}

// AccrualBasis selects the reward accrual granularity
type AccrualBasis string

const (
	AccrualMonthly AccrualBasis = "monthly" // whole 30-day months
	AccrualDaily   AccrualBasis = "daily"   // whole days over a 365-day year
)

// Audit fields written by administrative overrides
const (
	AuditFieldOwner        = "owner"
	AuditFieldStakedTokens = "staked_tokens"
	AuditFieldLockUntil    = "lock_until"
	AuditFieldActive       = "active"
	AuditFieldPool         = "pool_id"
)

// Pool represents a staking pool. Only TotalStaked and TotalPending change after creation.
type Pool struct {
	PoolID             uint64             `json:"pool_id"`
	MaxPerWallet       math.Int           `json:"max_per_wallet"`
	MaxPerPool         math.Int           `json:"max_per_pool"`
	AnnualRate         math.LegacyDec     `json:"annual_rate"`   // percent per year
	LockDuration       int64              `json:"lock_duration"` // seconds
	SettlementCurrency SettlementCurrency `json:"settlement_currency"`
	TotalStaked        math.Int           `json:"total_staked"`
	TotalPending       math.Int           `json:"total_pending"`
	CreatedAt          int64              `json:"created_at"`
}

// NewPool creates a new pool with empty totals
func NewPool(poolID uint64, maxPerWallet, maxPerPool math.Int, annualRate math.LegacyDec, lockDuration int64, settlement SettlementCurrency, createdAt int64) *Pool {
	return &Pool{
		PoolID:             poolID,
		MaxPerWallet:       maxPerWallet,
		MaxPerPool:         maxPerPool,
		AnnualRate:         annualRate,
		LockDuration:       lockDuration,
		SettlementCurrency: settlement,
		TotalStaked:        math.ZeroInt(),
		TotalPending:       math.ZeroInt(),
		CreatedAt:          createdAt,
	}
}

// Validate checks the pool terms
func (p *Pool) Validate() error {
	if p.MaxPerWallet.IsNil() || p.MaxPerWallet.IsNegative() {
		return errorsmod.Wrap(ErrInvalidPool, "max per wallet must be non-negative")
	}
	if p.MaxPerPool.IsNil() || p.MaxPerPool.IsNegative() {
		return errorsmod.Wrap(ErrInvalidPool, "max per pool must be non-negative")
	}
	if p.MaxPerWallet.GT(p.MaxPerPool) {
		return errorsmod.Wrapf(ErrInvalidPool, "max per wallet %s exceeds max per pool %s", p.MaxPerWallet, p.MaxPerPool)
	}
	if p.AnnualRate.IsNil() || p.AnnualRate.IsNegative() {
		return errorsmod.Wrap(ErrInvalidPool, "annual rate must be non-negative")
	}
	if p.LockDuration < 0 {
		return errorsmod.Wrap(ErrInvalidPool, "lock duration must be non-negative")
	}
	if p.LockDuration > MaxLockDuration {
		return errorsmod.Wrapf(ErrInvalidPool, "lock duration %ds exceeds %ds", p.LockDuration, MaxLockDuration)
	}
	if !p.SettlementCurrency.IsValid() {
		return errorsmod.Wrapf(ErrInvalidPool, "%s", p.SettlementCurrency)
	}
	return nil
}

// Committed returns the capacity already claimed by stake and pending deposits
func (p *Pool) Committed() math.Int {
	return p.TotalStaked.Add(p.TotalPending)
}

// Available returns the remaining pool capacity
func (p *Pool) Available() math.Int {
	avail := p.MaxPerPool.Sub(p.Committed())
	if avail.IsNegative() {
		return math.ZeroInt()
	}
	return avail
}

// HasCapacity reports whether amount more can be admitted
func (p *Pool) HasCapacity(amount math.Int) bool {
	return p.Committed().Add(amount).LTE(p.MaxPerPool)
}

// Position is one owner's stake record within a pool
type Position struct {
	PositionID      uint64         `json:"position_id"`
	Owner           string         `json:"owner"`
	PoolID          uint64         `json:"pool_id"`
	StakedTokens    math.Int       `json:"staked_tokens"`
	PendingReestake math.Int       `json:"pending_reestake"`
	PriceAtEntry    math.LegacyDec `json:"price_at_entry"`
	StakedAt        int64          `json:"staked_at"`
	LastClaimAt     int64          `json:"last_claim_at"`
	UnlockAt        int64          `json:"unlock_at"`
	Active          bool           `json:"active"`
}

// NewPosition creates an active position entering pool at now
func NewPosition(positionID uint64, owner string, pool *Pool, amount math.Int, priceAtEntry math.LegacyDec, now int64) *Position {
	return &Position{
		PositionID:      positionID,
		Owner:           owner,
		PoolID:          pool.PoolID,
		StakedTokens:    amount,
		PendingReestake: math.ZeroInt(),
		PriceAtEntry:    priceAtEntry,
		StakedAt:        now,
		LastClaimAt:     now,
		UnlockAt:        now + pool.LockDuration,
		Active:          true,
	}
}

// IsLocked returns true if principal cannot be withdrawn at now
func (p *Position) IsLocked(now int64) bool {
	return now < p.UnlockAt
}

// Principal returns staked plus pending tokens
func (p *Position) Principal() math.Int {
	return p.StakedTokens.Add(p.PendingReestake)
}

// RewardResult is the outcome of a reward computation
type RewardResult struct {
	Gross    math.Int           `json:"gross"`  // stake-asset base units
	Payout   math.Int           `json:"payout"` // base units of Denom
	Denom    string             `json:"denom"`
	Currency SettlementCurrency `json:"currency"`
	Months   int64              `json:"months"`
	Days     int64              `json:"days"`
}

// AuditRecord is a persisted trace of an administrative override
type AuditRecord struct {
	Sequence   uint64 `json:"sequence"`
	Authority  string `json:"authority"`
	PositionID uint64 `json:"position_id"`
	Field      string `json:"field"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
	Timestamp  int64  `json:"timestamp"`
}

// ScheduleEntry is a position ordered by unlock time
type ScheduleEntry struct {
	PositionID uint64   `json:"position_id"`
	Owner      string   `json:"owner"`
	PoolID     uint64   `json:"pool_id"`
	Principal  math.Int `json:"principal"`
	UnlockAt   int64    `json:"unlock_at"`
	Unlocked   bool     `json:"unlocked"`
}
