package types

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	stakepooltypes "github.com/openalpha/stake-ledger/x/stakepool/types"
)

// ErrorResponse is the body of every failed request. Codespace and Code
// identify the registered ledger error so clients can map it back.
type ErrorResponse struct {
	Error     string `json:"error"`
	Codespace string `json:"codespace,omitempty"`
	Code      uint32 `json:"code,omitempty"`
}

// HealthResponse reports node liveness
type HealthResponse struct {
	Status    string `json:"status"`
	ChainID   string `json:"chain_id"`
	Height    int64  `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

// PoolsResponse is a page of pools
type PoolsResponse struct {
	Pools []*stakepooltypes.Pool `json:"pools"`
	Total uint64                 `json:"total"`
}

// PositionsResponse is a page of positions
type PositionsResponse struct {
	Positions []*stakepooltypes.Position `json:"positions"`
	Total     uint64                     `json:"total"`
}

// RateResponse carries the oracle rate
type RateResponse struct {
	Rate string `json:"rate"`
}

// ScheduleResponse lists positions by unlock time
type ScheduleResponse struct {
	Entries []stakepooltypes.ScheduleEntry `json:"entries"`
}

// AuditResponse lists admin override records
type AuditResponse struct {
	Records []stakepooltypes.AuditRecord `json:"records"`
}

// ApproveRequest sets the caller's allowance towards a module
type ApproveRequest struct {
	Owner  string `json:"owner"`
	Module string `json:"module"`
	Amount string `json:"amount"` // coin, e.g. "1000ustake"
}

// MintRequest credits tokens to an address or a module account (authority only)
type MintRequest struct {
	Authority string `json:"authority"`
	Address   string `json:"address,omitempty"`
	Module    string `json:"module,omitempty"`
	Amount    string `json:"amount"` // coins, e.g. "1000ustake,5usettle"
}

// BalanceResponse reports custody balances of an address
type BalanceResponse struct {
	Address   string    `json:"address"`
	Balances  sdk.Coins `json:"balances"`
	Allowance string    `json:"allowance"` // stake denom allowance towards the stakepool module
}

// EmptyResponse acknowledges a mutation with no result
type EmptyResponse struct{}
