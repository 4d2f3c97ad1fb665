package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/api"
	"github.com/openalpha/stake-ledger/app"
)

var authority = sdk.AccAddress([]byte("authority___________")).String()

func startNode(t *testing.T) string {
	t.Helper()

	cfg := app.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.DBBackend = app.BackendMemDB
	cfg.Authority = authority
	cfg.API.DisableRateLimit = true

	ledger, err := app.NewLedgerApp(log.NewNopLogger(), dbm.NewMemDB(), cfg)
	require.NoError(t, err)

	service := api.NewLedgerService(ledger, api.WithInvariantChecks(true))
	server := api.NewServer(cfg.API, service, nil, nil, http.NotFoundHandler(), log.NewNopLogger())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = server.Stop(context.Background())
	})
	return ts.URL
}

func TestLoadTesterRun(t *testing.T) {
	out := &bytes.Buffer{}
	tester := NewLoadTester(&Config{
		Node:       startNode(t),
		Authority:  authority,
		Workers:    4,
		Wallets:    3,
		Duration:   500 * time.Millisecond,
		WalletFund: 1_000_000,
		StakeSize:  1_000,
	}, out)

	ctx := context.Background()
	require.NoError(t, tester.Setup(ctx))
	tester.Run(ctx)
	tester.PrintResults()

	r := tester.results
	require.Positive(t, r.TotalRequests)
	require.Positive(t, r.Operations["active_position"])
	require.Positive(t, r.Operations["stake"])
	require.Zero(t, r.FailedRequests, r.Errors)
	require.Equal(t, r.TotalRequests, r.SuccessRequests+r.RejectedRequests)
	require.Contains(t, out.String(), "Load test results")

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, tester.SaveReport(path))
	bz, err := os.ReadFile(path)
	require.NoError(t, err)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(bz, &report))
	require.Contains(t, report, "summary")
}

func TestLoadTesterSetupNeedsAuthority(t *testing.T) {
	tester := NewLoadTester(&Config{
		Node:       startNode(t),
		Authority:  sdk.AccAddress([]byte("not_the_authority___")).String(),
		Wallets:    1,
		WalletFund: 10,
	}, &bytes.Buffer{})

	require.ErrorContains(t, tester.Setup(context.Background()), "fund")
}
