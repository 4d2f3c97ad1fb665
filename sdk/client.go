package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"

	apitypes "github.com/openalpha/stake-ledger/api/types"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

const (
	// DefaultNode is the API address used when none is configured
	DefaultNode = "http://localhost:8080"

	callerHeader = "X-Caller"
)

// Client talks to the ledger HTTP API. Registered ledger errors returned by
// the server are rebuilt so errors.Is matches the types.Err* sentinels.
type Client struct {
	baseURL    string
	httpClient *http.Client
	caller     string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithCaller sets the address mutations are sent as
func WithCaller(caller string) Option {
	return func(c *Client) { c.caller = caller }
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultNode
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// As returns a copy of the client acting as caller
func (c *Client) As(caller string) *Client {
	cp := *c
	cp.caller = caller
	return &cp
}

// HTTPError is a non-ledger API failure
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bz, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(bz)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.caller != "" {
		req.Header.Set(callerHeader, c.caller)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apitypes.ErrorResponse
		if err := json.Unmarshal(bz, &apiErr); err != nil || apiErr.Error == "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bz))}
		}
		if apiErr.Codespace != "" && apiErr.Code != 0 {
			return errorsmod.ABCIError(apiErr.Codespace, apiErr.Code, apiErr.Error)
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(bz, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func post[T any](ctx context.Context, c *Client, path string, body interface{}) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func positionPath(id uint64, action string) string {
	return "/v1/positions/" + strconv.FormatUint(id, 10) + "/" + action
}

func adminPath(id uint64, field string) string {
	return "/v1/admin/positions/" + strconv.FormatUint(id, 10) + "/" + field
}

// ============ Mutations ============

func (c *Client) CreatePool(ctx context.Context, msg *types.MsgCreatePool) (*types.MsgCreatePoolResponse, error) {
	return post[types.MsgCreatePoolResponse](ctx, c, "/v1/pools", msg)
}

func (c *Client) Stake(ctx context.Context, poolID uint64, amount string) (*types.MsgStakeResponse, error) {
	return post[types.MsgStakeResponse](ctx, c, "/v1/stake", &types.MsgStake{PoolID: poolID, Amount: amount})
}

func (c *Client) Claim(ctx context.Context, positionID uint64, mode string) (*types.MsgClaimResponse, error) {
	return post[types.MsgClaimResponse](ctx, c, positionPath(positionID, "claim"), &types.MsgClaim{Mode: mode})
}

func (c *Client) StakeMore(ctx context.Context, positionID uint64, amount string) (*types.MsgStakeMoreResponse, error) {
	return post[types.MsgStakeMoreResponse](ctx, c, positionPath(positionID, "stake-more"), &types.MsgStakeMore{Amount: amount})
}

func (c *Client) Unstake(ctx context.Context, positionID uint64) (*types.MsgUnstakeResponse, error) {
	return post[types.MsgUnstakeResponse](ctx, c, positionPath(positionID, "unstake"), nil)
}

func (c *Client) Spend(ctx context.Context, positionID uint64, amount string) (*types.MsgSpendResponse, error) {
	return post[types.MsgSpendResponse](ctx, c, positionPath(positionID, "spend"), &types.MsgSpend{Amount: amount})
}

func (c *Client) SetRate(ctx context.Context, rate string) error {
	_, err := post[types.MsgSetRateResponse](ctx, c, "/v1/oracle/rate", &types.MsgSetRate{Rate: rate})
	return err
}

func (c *Client) UpdateParams(ctx context.Context, params types.Params) error {
	_, err := post[types.MsgUpdateParamsResponse](ctx, c, "/v1/params", &types.MsgUpdateParams{Params: params})
	return err
}

func (c *Client) SetPositionOwner(ctx context.Context, positionID uint64, newOwner string) (uint64, error) {
	res, err := post[types.MsgSetPositionOwnerResponse](ctx, c, adminPath(positionID, "owner"), &types.MsgSetPositionOwner{NewOwner: newOwner})
	if err != nil {
		return 0, err
	}
	return res.Sequence, nil
}

func (c *Client) SetPositionStakedTokens(ctx context.Context, positionID uint64, amount string) (uint64, error) {
	res, err := post[types.MsgSetPositionStakedTokensResponse](ctx, c, adminPath(positionID, "staked-tokens"), &types.MsgSetPositionStakedTokens{Amount: amount})
	if err != nil {
		return 0, err
	}
	return res.Sequence, nil
}

func (c *Client) SetPositionLockUntil(ctx context.Context, positionID uint64, unlockAt int64) (uint64, error) {
	res, err := post[types.MsgSetPositionLockUntilResponse](ctx, c, adminPath(positionID, "lock-until"), &types.MsgSetPositionLockUntil{UnlockAt: unlockAt})
	if err != nil {
		return 0, err
	}
	return res.Sequence, nil
}

func (c *Client) SetPositionActive(ctx context.Context, positionID uint64, active bool) (uint64, error) {
	res, err := post[types.MsgSetPositionActiveResponse](ctx, c, adminPath(positionID, "active"), &types.MsgSetPositionActive{Active: active})
	if err != nil {
		return 0, err
	}
	return res.Sequence, nil
}

func (c *Client) SetPositionPool(ctx context.Context, positionID, poolID uint64) (uint64, error) {
	res, err := post[types.MsgSetPositionPoolResponse](ctx, c, adminPath(positionID, "pool"), &types.MsgSetPositionPool{PoolID: poolID})
	if err != nil {
		return 0, err
	}
	return res.Sequence, nil
}

// Approve lets module pull up to amount (a coin such as "100ustake") from the caller
func (c *Client) Approve(ctx context.Context, module, amount string) error {
	_, err := post[apitypes.EmptyResponse](ctx, c, "/v1/bank/approve", &apitypes.ApproveRequest{Module: module, Amount: amount})
	return err
}

// MintTo credits coins to address (authority only)
func (c *Client) MintTo(ctx context.Context, address, amount string) error {
	_, err := post[apitypes.EmptyResponse](ctx, c, "/v1/bank/mint", &apitypes.MintRequest{Address: address, Amount: amount})
	return err
}

// MintToModule credits coins to a module account (authority only)
func (c *Client) MintToModule(ctx context.Context, module, amount string) error {
	_, err := post[apitypes.EmptyResponse](ctx, c, "/v1/bank/mint", &apitypes.MintRequest{Module: module, Amount: amount})
	return err
}

// ============ Queries ============

func (c *Client) Health(ctx context.Context) (*apitypes.HealthResponse, error) {
	return get[apitypes.HealthResponse](ctx, c, "/health")
}

func (c *Client) Params(ctx context.Context) (*types.Params, error) {
	return get[types.Params](ctx, c, "/v1/params")
}

func (c *Client) Rate(ctx context.Context) (string, error) {
	res, err := get[apitypes.RateResponse](ctx, c, "/v1/oracle/rate")
	if err != nil {
		return "", err
	}
	return res.Rate, nil
}

func (c *Client) Pool(ctx context.Context, poolID uint64) (*types.Pool, error) {
	return get[types.Pool](ctx, c, "/v1/pools/"+strconv.FormatUint(poolID, 10))
}

func (c *Client) Pools(ctx context.Context, offset, limit uint64) (*apitypes.PoolsResponse, error) {
	return get[apitypes.PoolsResponse](ctx, c, "/v1/pools?"+pageQuery(offset, limit))
}

func (c *Client) Position(ctx context.Context, positionID uint64) (*types.Position, error) {
	return get[types.Position](ctx, c, "/v1/positions/"+strconv.FormatUint(positionID, 10))
}

func (c *Client) Positions(ctx context.Context, offset, limit uint64) (*apitypes.PositionsResponse, error) {
	return get[apitypes.PositionsResponse](ctx, c, "/v1/positions?"+pageQuery(offset, limit))
}

func (c *Client) PositionsByOwner(ctx context.Context, owner string) (*apitypes.PositionsResponse, error) {
	return get[apitypes.PositionsResponse](ctx, c, "/v1/owners/"+url.PathEscape(owner)+"/positions")
}

func (c *Client) ActivePosition(ctx context.Context, owner string, poolID uint64) (*types.Position, error) {
	return get[types.Position](ctx, c, "/v1/owners/"+url.PathEscape(owner)+"/pools/"+strconv.FormatUint(poolID, 10)+"/position")
}

func (c *Client) PendingReward(ctx context.Context, positionID uint64) (*types.RewardResult, error) {
	return get[types.RewardResult](ctx, c, positionPath(positionID, "reward"))
}

func (c *Client) UnlockSchedule(ctx context.Context, from, to int64, limit int) (*apitypes.ScheduleResponse, error) {
	q := url.Values{}
	q.Set("from", strconv.FormatInt(from, 10))
	q.Set("to", strconv.FormatInt(to, 10))
	q.Set("limit", strconv.Itoa(limit))
	return get[apitypes.ScheduleResponse](ctx, c, "/v1/schedule?"+q.Encode())
}

func (c *Client) AuditLog(ctx context.Context, from uint64) (*apitypes.AuditResponse, error) {
	return get[apitypes.AuditResponse](ctx, c, "/v1/admin/audit?from="+strconv.FormatUint(from, 10))
}

func (c *Client) Balances(ctx context.Context, address string) (*apitypes.BalanceResponse, error) {
	return get[apitypes.BalanceResponse](ctx, c, "/v1/bank/"+url.PathEscape(address))
}

func pageQuery(offset, limit uint64) string {
	q := url.Values{}
	q.Set("offset", strconv.FormatUint(offset, 10))
	q.Set("limit", strconv.FormatUint(limit, 10))
	return q.Encode()
}
