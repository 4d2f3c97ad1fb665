package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// MsgServer defines the stakepool MsgServer
type MsgServer struct {
	keeper *Keeper
	admin  AdminKeeper
}

// NewMsgServerImpl creates a new MsgServer instance
func NewMsgServerImpl(keeper *Keeper) *MsgServer {
	return &MsgServer{keeper: keeper, admin: NewAdminKeeper(keeper)}
}

// CreatePool handles MsgCreatePool
func (m *MsgServer) CreatePool(ctx context.Context, msg *types.MsgCreatePool) (*types.MsgCreatePoolResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	maxPerWallet, _ := types.ParseAmount(msg.MaxPerWallet)
	maxPerPool, _ := types.ParseAmount(msg.MaxPerPool)
	annualRate, _ := math.LegacyNewDecFromStr(msg.AnnualRate)
	settlement, _ := types.ParseSettlementCurrency(msg.SettlementCurrency)

	poolID, err := m.keeper.CreatePool(ctx, msg.Authority, maxPerWallet, maxPerPool, annualRate, msg.LockDuration, settlement)
	if err != nil {
		return nil, err
	}
	return &types.MsgCreatePoolResponse{PoolID: poolID}, nil
}

// Stake handles MsgStake
func (m *MsgServer) Stake(ctx context.Context, msg *types.MsgStake) (*types.MsgStakeResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, _ := types.ParsePositiveAmount(msg.Amount)

	position, err := m.keeper.Stake(ctx, msg.Owner, msg.PoolID, amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgStakeResponse{
		PositionID:   position.PositionID,
		StakedTokens: position.StakedTokens.String(),
		UnlockAt:     position.UnlockAt,
	}, nil
}

// Claim handles MsgClaim
func (m *MsgServer) Claim(ctx context.Context, msg *types.MsgClaim) (*types.MsgClaimResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	mode, _ := types.ParseClaimMode(msg.Mode)

	position, reward, err := m.keeper.Claim(ctx, msg.Owner, msg.PositionID, mode)
	if err != nil {
		return nil, err
	}
	return &types.MsgClaimResponse{
		Gross:        reward.Gross.String(),
		Payout:       reward.Payout.String(),
		Denom:        reward.Denom,
		StakedTokens: position.StakedTokens.String(),
		LastClaimAt:  position.LastClaimAt,
	}, nil
}

// StakeMore handles MsgStakeMore
func (m *MsgServer) StakeMore(ctx context.Context, msg *types.MsgStakeMore) (*types.MsgStakeMoreResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, _ := types.ParsePositiveAmount(msg.Amount)

	position, err := m.keeper.StakeMore(ctx, msg.Owner, msg.PositionID, amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgStakeMoreResponse{PendingReestake: position.PendingReestake.String()}, nil
}

// Unstake handles MsgUnstake
func (m *MsgServer) Unstake(ctx context.Context, msg *types.MsgUnstake) (*types.MsgUnstakeResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	returned, err := m.keeper.Unstake(ctx, msg.Owner, msg.PositionID)
	if err != nil {
		return nil, err
	}
	return &types.MsgUnstakeResponse{Returned: returned.String()}, nil
}

// Spend handles MsgSpend
func (m *MsgServer) Spend(ctx context.Context, msg *types.MsgSpend) (*types.MsgSpendResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, _ := types.ParsePositiveAmount(msg.Amount)

	position, err := m.keeper.Spend(ctx, msg.Owner, msg.PositionID, amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgSpendResponse{StakedTokens: position.StakedTokens.String()}, nil
}

// SetRate handles MsgSetRate (authority only)
func (m *MsgServer) SetRate(ctx context.Context, msg *types.MsgSetRate) (*types.MsgSetRateResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	rate, _ := math.LegacyNewDecFromStr(msg.Rate)

	if err := m.keeper.SetRate(ctx, msg.Authority, rate); err != nil {
		return nil, err
	}
	return &types.MsgSetRateResponse{}, nil
}

// UpdateParams handles MsgUpdateParams (authority only)
func (m *MsgServer) UpdateParams(ctx context.Context, msg *types.MsgUpdateParams) (*types.MsgUpdateParamsResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := m.keeper.UpdateParams(ctx, msg.Authority, msg.Params); err != nil {
		return nil, err
	}
	return &types.MsgUpdateParamsResponse{}, nil
}

// SetPositionOwner handles MsgSetPositionOwner (authority only)
func (m *MsgServer) SetPositionOwner(ctx context.Context, msg *types.MsgSetPositionOwner) (*types.MsgSetPositionOwnerResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	record, err := m.admin.SetPositionOwner(ctx, msg.Authority, msg.PositionID, msg.NewOwner)
	if err != nil {
		return nil, err
	}
	return &types.MsgSetPositionOwnerResponse{Sequence: record.Sequence}, nil
}

// SetPositionStakedTokens handles MsgSetPositionStakedTokens (authority only)
func (m *MsgServer) SetPositionStakedTokens(ctx context.Context, msg *types.MsgSetPositionStakedTokens) (*types.MsgSetPositionStakedTokensResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, _ := types.ParseAmount(msg.Amount)

	record, err := m.admin.SetPositionStakedTokens(ctx, msg.Authority, msg.PositionID, amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgSetPositionStakedTokensResponse{Sequence: record.Sequence}, nil
}

// SetPositionLockUntil handles MsgSetPositionLockUntil (authority only)
func (m *MsgServer) SetPositionLockUntil(ctx context.Context, msg *types.MsgSetPositionLockUntil) (*types.MsgSetPositionLockUntilResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	record, err := m.admin.SetPositionLockUntil(ctx, msg.Authority, msg.PositionID, msg.UnlockAt)
	if err != nil {
		return nil, err
	}
	return &types.MsgSetPositionLockUntilResponse{Sequence: record.Sequence}, nil
}

// SetPositionActive handles MsgSetPositionActive (authority only)
func (m *MsgServer) SetPositionActive(ctx context.Context, msg *types.MsgSetPositionActive) (*types.MsgSetPositionActiveResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	record, err := m.admin.SetPositionActive(ctx, msg.Authority, msg.PositionID, msg.Active)
	if err != nil {
		return nil, err
	}
	return &types.MsgSetPositionActiveResponse{Sequence: record.Sequence}, nil
}

// SetPositionPool handles MsgSetPositionPool (authority only)
func (m *MsgServer) SetPositionPool(ctx context.Context, msg *types.MsgSetPositionPool) (*types.MsgSetPositionPoolResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	record, err := m.admin.SetPositionPool(ctx, msg.Authority, msg.PositionID, msg.PoolID)
	if err != nil {
		return nil, err
	}
	return &types.MsgSetPositionPoolResponse{Sequence: record.Sequence}, nil
}
