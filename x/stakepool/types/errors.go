package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrUnauthorized          = errors.Register(ModuleName, 2, "unauthorized")
	ErrWalletLimitExceeded   = errors.Register(ModuleName, 3, "address reach the limit")
	ErrPoolLimitExceeded     = errors.Register(ModuleName, 4, "pool reach the limit")
	ErrDuplicatePosition     = errors.Register(ModuleName, 5, "you are already in pool")
	ErrRewardNotDue          = errors.Register(ModuleName, 6, "not valid date for claim")
	ErrLockNotExpired        = errors.Register(ModuleName, 7, "you must wait the unlock date")
	ErrInsufficientBalance   = errors.Register(ModuleName, 8, "insufficient balance")
	ErrInsufficientAllowance = errors.Register(ModuleName, 9, "insufficient allowance")
	ErrPositionNotFound      = errors.Register(ModuleName, 10, "position not found")
	ErrPoolNotFound          = errors.Register(ModuleName, 11, "pool not found")

	// Operation errors
	ErrPositionInactive  = errors.Register(ModuleName, 12, "position is not active")
	ErrInsufficientStake = errors.Register(ModuleName, 13, "amount exceeds staked tokens")
	ErrInvalidAmount     = errors.Register(ModuleName, 14, "invalid amount")
	ErrInvalidPool       = errors.Register(ModuleName, 15, "invalid pool configuration")
	ErrInvalidRate       = errors.Register(ModuleName, 16, "invalid oracle rate")
	ErrOracleRateUnset   = errors.Register(ModuleName, 17, "oracle rate is not set")
	ErrInvalidClaimMode  = errors.Register(ModuleName, 18, "invalid claim mode")
	ErrInvalidAddress    = errors.Register(ModuleName, 19, "invalid address")
	ErrInvalidParams     = errors.Register(ModuleName, 20, "invalid params")
	ErrInvalidGenesis    = errors.Register(ModuleName, 21, "invalid genesis state")
)
