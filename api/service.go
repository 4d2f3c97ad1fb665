package api

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/stake-ledger/api/handlers"
	apitypes "github.com/openalpha/stake-ledger/api/types"
	"github.com/openalpha/stake-ledger/api/websocket"
	"github.com/openalpha/stake-ledger/app"
	"github.com/openalpha/stake-ledger/metrics"
	"github.com/openalpha/stake-ledger/x/stakepool/keeper"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

var _ handlers.Ledger = (*LedgerService)(nil)

// LedgerService runs ledger operations one at a time against the app store.
// Every successful mutation is committed as its own height.
type LedgerService struct {
	mu sync.Mutex

	app         *app.LedgerApp
	msgServer   *keeper.MsgServer
	queryServer *keeper.QueryServer

	hub             *websocket.Hub
	metrics         *metrics.Collector
	clock           func() time.Time
	checkInvariants bool
	logger          log.Logger
}

// ServiceOption configures a LedgerService
type ServiceOption func(*LedgerService)

// WithClock sets the block time source
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *LedgerService) { s.clock = clock }
}

// WithHub publishes committed events to hub
func WithHub(hub *websocket.Hub) ServiceOption {
	return func(s *LedgerService) { s.hub = hub }
}

// WithMetrics records operation metrics on collector
func WithMetrics(collector *metrics.Collector) ServiceOption {
	return func(s *LedgerService) { s.metrics = collector }
}

// WithInvariantChecks asserts the registered invariants before each commit
func WithInvariantChecks(enabled bool) ServiceOption {
	return func(s *LedgerService) { s.checkInvariants = enabled }
}

// WithLogger sets the service logger
func WithLogger(logger log.Logger) ServiceOption {
	return func(s *LedgerService) { s.logger = logger }
}

// NewLedgerService creates a service over ledger
func NewLedgerService(ledger *app.LedgerApp, opts ...ServiceOption) *LedgerService {
	s := &LedgerService{
		app:         ledger,
		msgServer:   keeper.NewMsgServerImpl(ledger.StakepoolKeeper),
		queryServer: keeper.NewQueryServerImpl(ledger.StakepoolKeeper),
		clock:       time.Now,
		logger:      log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "ledger-service")
	return s
}

// execute runs fn on a cached branch of the working state and commits it
// only when fn succeeds and the invariants hold.
func execute[T any](s *LedgerService, operation string, fn func(ctx sdk.Context) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	ctx := s.app.NewContext(s.clock())
	cacheCtx, write := ctx.CacheContext()

	res, err := fn(cacheCtx)
	if err == nil && s.checkInvariants {
		if msg, broken := s.app.AssertInvariants(cacheCtx); broken {
			s.logger.Error("Invariant broken, discarding operation", "operation", operation, "invariant", msg)
			err = fmt.Errorf("%s: invariant broken: %s", operation, msg)
		}
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordOperation(operation, err, timer.ElapsedMs())
		}
		var zero T
		return zero, err
	}

	events := cacheCtx.EventManager().Events()
	write()
	height := s.app.Commit()

	s.logger.Debug("Operation committed", "operation", operation, "height", height, "events", len(events))

	committed := s.app.NewContext(ctx.BlockTime())
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, nil, timer.ElapsedMs())
		s.metrics.RecordHeight(height)
		s.recordEventMetrics(committed, events)
	}
	if s.hub != nil {
		for _, event := range events {
			s.hub.Publish(toLedgerEvent(event, height, ctx.BlockTime()))
		}
	}
	return res, nil
}

// read runs fn against the working state at the current time
func read[T any](s *LedgerService, fn func(ctx sdk.Context) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.app.NewContext(s.clock()))
}

func toLedgerEvent(event sdk.Event, height int64, blockTime time.Time) websocket.LedgerEvent {
	attrs := make(map[string]string, len(event.Attributes))
	for _, attr := range event.Attributes {
		attrs[attr.Key] = attr.Value
	}
	return websocket.LedgerEvent{
		Type:       event.Type,
		Height:     height,
		Time:       blockTime.Unix(),
		Attributes: attrs,
	}
}

func (s *LedgerService) recordEventMetrics(ctx sdk.Context, events sdk.Events) {
	for _, event := range events {
		attrs := make(map[string]string, len(event.Attributes))
		for _, attr := range event.Attributes {
			attrs[attr.Key] = attr.Value
		}
		poolID := attrs[types.AttributeKeyPoolID]

		switch event.Type {
		case types.EventTypeStake, types.EventTypeStakeMore:
			s.metrics.RecordStaked(poolID, parseFloat(attrs[types.AttributeKeyAmount]))
		case types.EventTypeClaim:
			s.metrics.RecordReward(attrs[types.AttributeKeyDenom], attrs[types.AttributeKeyMode], parseFloat(attrs[types.AttributeKeyPayout]))
		case types.EventTypeUnstake:
			s.metrics.RecordReturned(poolID, parseFloat(attrs[types.AttributeKeyAmount]))
		case types.EventTypeSpend:
			if id, err := strconv.ParseUint(attrs[types.AttributeKeyPositionID], 10, 64); err == nil {
				if position := s.app.StakepoolKeeper.GetPosition(ctx, id); position != nil {
					poolID = strconv.FormatUint(position.PoolID, 10)
				}
			}
			s.metrics.RecordSpent(poolID, parseFloat(attrs[types.AttributeKeyAmount]))
		case types.EventTypeSetRate:
			s.metrics.RecordRate(parseFloat(attrs[types.AttributeKeyRate]))
		case types.EventTypeAdminOverride:
			s.metrics.RecordAdminOverride(attrs[types.AttributeKeyField])
		}

		if poolID == "" {
			continue
		}
		if id, err := strconv.ParseUint(poolID, 10, 64); err == nil {
			if pool := s.app.StakepoolKeeper.GetPool(ctx, id); pool != nil {
				s.metrics.RecordPool(poolID, pool.TotalStaked.ToLegacyDec().MustFloat64(), pool.TotalPending.ToLegacyDec().MustFloat64())
			}
		}
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// ============ Mutations ============

func (s *LedgerService) CreatePool(msg *types.MsgCreatePool) (*types.MsgCreatePoolResponse, error) {
	return execute(s, "create_pool", func(ctx sdk.Context) (*types.MsgCreatePoolResponse, error) {
		return s.msgServer.CreatePool(ctx, msg)
	})
}

func (s *LedgerService) Stake(msg *types.MsgStake) (*types.MsgStakeResponse, error) {
	return execute(s, "stake", func(ctx sdk.Context) (*types.MsgStakeResponse, error) {
		return s.msgServer.Stake(ctx, msg)
	})
}

func (s *LedgerService) Claim(msg *types.MsgClaim) (*types.MsgClaimResponse, error) {
	return execute(s, "claim", func(ctx sdk.Context) (*types.MsgClaimResponse, error) {
		return s.msgServer.Claim(ctx, msg)
	})
}

func (s *LedgerService) StakeMore(msg *types.MsgStakeMore) (*types.MsgStakeMoreResponse, error) {
	return execute(s, "stake_more", func(ctx sdk.Context) (*types.MsgStakeMoreResponse, error) {
		return s.msgServer.StakeMore(ctx, msg)
	})
}

func (s *LedgerService) Unstake(msg *types.MsgUnstake) (*types.MsgUnstakeResponse, error) {
	return execute(s, "unstake", func(ctx sdk.Context) (*types.MsgUnstakeResponse, error) {
		return s.msgServer.Unstake(ctx, msg)
	})
}

func (s *LedgerService) Spend(msg *types.MsgSpend) (*types.MsgSpendResponse, error) {
	return execute(s, "spend", func(ctx sdk.Context) (*types.MsgSpendResponse, error) {
		return s.msgServer.Spend(ctx, msg)
	})
}

func (s *LedgerService) SetRate(msg *types.MsgSetRate) (*types.MsgSetRateResponse, error) {
	return execute(s, "set_rate", func(ctx sdk.Context) (*types.MsgSetRateResponse, error) {
		return s.msgServer.SetRate(ctx, msg)
	})
}

func (s *LedgerService) UpdateParams(msg *types.MsgUpdateParams) (*types.MsgUpdateParamsResponse, error) {
	return execute(s, "update_params", func(ctx sdk.Context) (*types.MsgUpdateParamsResponse, error) {
		return s.msgServer.UpdateParams(ctx, msg)
	})
}

func (s *LedgerService) SetPositionOwner(msg *types.MsgSetPositionOwner) (*types.MsgSetPositionOwnerResponse, error) {
	return execute(s, "admin_override", func(ctx sdk.Context) (*types.MsgSetPositionOwnerResponse, error) {
		return s.msgServer.SetPositionOwner(ctx, msg)
	})
}

func (s *LedgerService) SetPositionStakedTokens(msg *types.MsgSetPositionStakedTokens) (*types.MsgSetPositionStakedTokensResponse, error) {
	return execute(s, "admin_override", func(ctx sdk.Context) (*types.MsgSetPositionStakedTokensResponse, error) {
		return s.msgServer.SetPositionStakedTokens(ctx, msg)
	})
}

func (s *LedgerService) SetPositionLockUntil(msg *types.MsgSetPositionLockUntil) (*types.MsgSetPositionLockUntilResponse, error) {
	return execute(s, "admin_override", func(ctx sdk.Context) (*types.MsgSetPositionLockUntilResponse, error) {
		return s.msgServer.SetPositionLockUntil(ctx, msg)
	})
}

func (s *LedgerService) SetPositionActive(msg *types.MsgSetPositionActive) (*types.MsgSetPositionActiveResponse, error) {
	return execute(s, "admin_override", func(ctx sdk.Context) (*types.MsgSetPositionActiveResponse, error) {
		return s.msgServer.SetPositionActive(ctx, msg)
	})
}

func (s *LedgerService) SetPositionPool(msg *types.MsgSetPositionPool) (*types.MsgSetPositionPoolResponse, error) {
	return execute(s, "admin_override", func(ctx sdk.Context) (*types.MsgSetPositionPoolResponse, error) {
		return s.msgServer.SetPositionPool(ctx, msg)
	})
}

// Approve sets the owner's custody allowance towards a module
func (s *LedgerService) Approve(req *apitypes.ApproveRequest) (*apitypes.EmptyResponse, error) {
	owner, err := sdk.AccAddressFromBech32(req.Owner)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidAddress, "owner: %s", err)
	}
	coin, err := sdk.ParseCoinNormalized(req.Amount)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidAmount, "%q: %s", req.Amount, err)
	}
	module := req.Module
	if module == "" {
		module = types.ModuleName
	}

	return execute(s, "approve", func(ctx sdk.Context) (*apitypes.EmptyResponse, error) {
		if err := s.app.BankKeeper.Approve(ctx, owner, module, coin); err != nil {
			return nil, err
		}
		return &apitypes.EmptyResponse{}, nil
	})
}

// Mint credits tokens to an address or module account. Only the ledger authority may mint.
func (s *LedgerService) Mint(req *apitypes.MintRequest) (*apitypes.EmptyResponse, error) {
	if req.Authority != s.app.StakepoolKeeper.GetAuthority() {
		return nil, errorsmod.Wrapf(types.ErrUnauthorized, "expected %s, got %s", s.app.StakepoolKeeper.GetAuthority(), req.Authority)
	}
	coins, err := sdk.ParseCoinsNormalized(req.Amount)
	if err != nil || coins.Empty() {
		return nil, errorsmod.Wrapf(types.ErrInvalidAmount, "%q", req.Amount)
	}
	if (req.Address == "") == (req.Module == "") {
		return nil, errorsmod.Wrap(types.ErrInvalidAddress, "exactly one of address or module is required")
	}

	return execute(s, "mint", func(ctx sdk.Context) (*apitypes.EmptyResponse, error) {
		if req.Module != "" {
			if err := s.app.BankKeeper.MintToModule(ctx, req.Module, coins); err != nil {
				return nil, err
			}
			return &apitypes.EmptyResponse{}, nil
		}
		addr, err := sdk.AccAddressFromBech32(req.Address)
		if err != nil {
			return nil, errorsmod.Wrapf(types.ErrInvalidAddress, "address: %s", err)
		}
		if err := s.app.BankKeeper.Mint(ctx, addr, coins); err != nil {
			return nil, err
		}
		return &apitypes.EmptyResponse{}, nil
	})
}

// ============ Queries ============

func (s *LedgerService) Health() *apitypes.HealthResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &apitypes.HealthResponse{
		Status:    "ok",
		ChainID:   s.app.ChainID(),
		Height:    s.app.Height(),
		Timestamp: s.clock().Unix(),
	}
}

func (s *LedgerService) Params() (types.Params, error) {
	return read(s, func(ctx sdk.Context) (types.Params, error) {
		return s.queryServer.Params(ctx)
	})
}

func (s *LedgerService) Rate() (*apitypes.RateResponse, error) {
	return read(s, func(ctx sdk.Context) (*apitypes.RateResponse, error) {
		rate, err := s.queryServer.Rate(ctx)
		if err != nil {
			return nil, err
		}
		return &apitypes.RateResponse{Rate: rate.String()}, nil
	})
}

func (s *LedgerService) Pool(poolID uint64) (*types.Pool, error) {
	return read(s, func(ctx sdk.Context) (*types.Pool, error) {
		return s.queryServer.Pool(ctx, poolID)
	})
}

func (s *LedgerService) Pools(offset, limit uint64) (*apitypes.PoolsResponse, error) {
	return read(s, func(ctx sdk.Context) (*apitypes.PoolsResponse, error) {
		pools, total, err := s.queryServer.Pools(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		return &apitypes.PoolsResponse{Pools: pools, Total: total}, nil
	})
}

func (s *LedgerService) Position(positionID uint64) (*types.Position, error) {
	return read(s, func(ctx sdk.Context) (*types.Position, error) {
		return s.queryServer.Position(ctx, positionID)
	})
}

func (s *LedgerService) Positions(offset, limit uint64) (*apitypes.PositionsResponse, error) {
	return read(s, func(ctx sdk.Context) (*apitypes.PositionsResponse, error) {
		positions, total, err := s.queryServer.Positions(ctx, offset, limit)
		if err != nil {
			return nil, err
		}
		return &apitypes.PositionsResponse{Positions: positions, Total: total}, nil
	})
}

func (s *LedgerService) PositionsByOwner(owner string) (*apitypes.PositionsResponse, error) {
	return read(s, func(ctx sdk.Context) (*apitypes.PositionsResponse, error) {
		positions, err := s.queryServer.PositionsByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		if positions == nil {
			positions = []*types.Position{}
		}
		return &apitypes.PositionsResponse{Positions: positions, Total: uint64(len(positions))}, nil
	})
}

func (s *LedgerService) ActivePosition(owner string, poolID uint64) (*types.Position, error) {
	return read(s, func(ctx sdk.Context) (*types.Position, error) {
		return s.queryServer.ActivePosition(ctx, owner, poolID)
	})
}

func (s *LedgerService) PendingReward(positionID uint64) (types.RewardResult, error) {
	return read(s, func(ctx sdk.Context) (types.RewardResult, error) {
		return s.queryServer.PendingReward(ctx, positionID)
	})
}

func (s *LedgerService) UnlockSchedule(from, to int64, limit int) (*apitypes.ScheduleResponse, error) {
	return read(s, func(ctx sdk.Context) (*apitypes.ScheduleResponse, error) {
		entries, err := s.queryServer.UnlockSchedule(ctx, from, to, limit)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []types.ScheduleEntry{}
		}
		return &apitypes.ScheduleResponse{Entries: entries}, nil
	})
}

func (s *LedgerService) AuditLog(from uint64) (*apitypes.AuditResponse, error) {
	return read(s, func(ctx sdk.Context) (*apitypes.AuditResponse, error) {
		records, err := s.queryServer.AuditLog(ctx, from)
		if err != nil {
			return nil, err
		}
		return &apitypes.AuditResponse{Records: records}, nil
	})
}

// Balances reports the stake and settlement balances of address and its
// stake allowance towards the stakepool module
func (s *LedgerService) Balances(address string) (*apitypes.BalanceResponse, error) {
	addr, err := sdk.AccAddressFromBech32(address)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidAddress, "address: %s", err)
	}
	return read(s, func(ctx sdk.Context) (*apitypes.BalanceResponse, error) {
		params := s.app.StakepoolKeeper.GetParams(ctx)
		bank := s.app.BankKeeper
		balances := sdk.NewCoins(
			bank.GetBalance(ctx, addr, params.StakeDenom),
			bank.GetBalance(ctx, addr, params.SettlementDenom),
		)
		allowance := bank.GetAllowance(ctx, addr, types.ModuleName, params.StakeDenom)
		if allowance.IsNil() {
			allowance = math.ZeroInt()
		}
		return &apitypes.BalanceResponse{
			Address:   address,
			Balances:  balances,
			Allowance: allowance.String(),
		}, nil
	})
}
