package sdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/api"
	"github.com/openalpha/stake-ledger/app"
	ledgersdk "github.com/openalpha/stake-ledger/sdk"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

var (
	authority = sdk.AccAddress([]byte("authority___________")).String()
	owner     = sdk.AccAddress([]byte("owner_______________")).String()
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(t *testing.T, clk *clock) *ledgersdk.Client {
	t.Helper()

	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.DBBackend = app.BackendMemDB
	cfg.Authority = authority
	cfg.API.DisableRateLimit = true

	ledger, err := app.NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), cfg)
	require.NoError(t, err)

	service := api.NewLedgerService(ledger, api.WithClock(clk.Now))
	server := api.NewServer(cfg.API, service, nil, nil, http.NotFoundHandler(), log.NewNopLogger())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = server.Stop(context.Background())
	})

	return ledgersdk.NewClient(ts.URL, ledgersdk.WithTimeout(5*time.Second))
}

func TestClientLifecycle(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0).UTC()}
	c := newTestClient(t, clk)
	ctx := context.Background()
	admin := c.As(authority)
	user := c.As(owner)

	require.NoError(t, admin.MintTo(ctx, owner, "5000000000ustake"))
	require.NoError(t, admin.MintToModule(ctx, types.ModuleName, "1000000000ustake"))
	require.NoError(t, user.Approve(ctx, "", "5000000000ustake"))
	require.NoError(t, admin.SetRate(ctx, "0.12"))

	rate, err := c.Rate(ctx)
	require.NoError(t, err)
	require.Equal(t, "0.120000000000000000", rate)

	created, err := admin.CreatePool(ctx, &types.MsgCreatePool{
		MaxPerWallet:       "10000000000",
		MaxPerPool:         "20000000000",
		AnnualRate:         "100",
		LockDuration:       7 * 86400,
		SettlementCurrency: "stake",
	})
	require.NoError(t, err)
	require.Equal(t, uint64(0), created.PoolID)

	staked, err := user.Stake(ctx, 0, "2000000000")
	require.NoError(t, err)

	pos, err := c.ActivePosition(ctx, owner, 0)
	require.NoError(t, err)
	require.Equal(t, staked.PositionID, pos.PositionID)

	clk.Advance(31 * 24 * time.Hour)

	reward, err := c.PendingReward(ctx, staked.PositionID)
	require.NoError(t, err)
	require.Equal(t, "166666666", reward.Gross.String())

	claimed, err := user.Claim(ctx, staked.PositionID, "compound")
	require.NoError(t, err)
	require.Equal(t, "2166666666", claimed.StakedTokens)

	unstaked, err := user.Unstake(ctx, staked.PositionID)
	require.NoError(t, err)
	require.Equal(t, "2166666666", unstaked.Returned)

	bal, err := c.Balances(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, "5166666666", bal.Balances.AmountOf(types.DefaultStakeDenom).String())

	pools, err := c.Pools(ctx, 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pools.Total)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestClientErrors(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0).UTC()}
	c := newTestClient(t, clk)
	ctx := context.Background()

	_, err := c.Pool(ctx, 7)
	require.True(t, errors.Is(err, types.ErrPoolNotFound), err)

	err = c.As(owner).SetRate(ctx, "1")
	require.True(t, errors.Is(err, types.ErrUnauthorized), err)

	_, err = c.Stake(ctx, 0, "10")
	require.True(t, errors.Is(err, types.ErrUnauthorized), "missing caller: %v", err)

	_, err = c.As(owner).Claim(ctx, 0, "sometime")
	require.True(t, errors.Is(err, types.ErrInvalidClaimMode), err)
}

func TestClientPlainHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := ledgersdk.NewClient(ts.URL).Health(context.Background())
	var httpErr *ledgersdk.HTTPError
	require.True(t, errors.As(err, &httpErr), err)
	require.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	require.Equal(t, "upstream down", httpErr.Message)
}

func TestClientSendsCaller(t *testing.T) {
	callers := make(chan string, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callers <- r.Header.Get("X-Caller")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := ledgersdk.NewClient(ts.URL + "/")
	require.NoError(t, c.As(owner).SetRate(context.Background(), "1"))
	require.Equal(t, owner, <-callers)

	require.NoError(t, c.SetRate(context.Background(), "1"))
	require.Empty(t, <-callers)
}
