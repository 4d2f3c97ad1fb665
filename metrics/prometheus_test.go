package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectorRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("stake", nil, 1.5)
	c.RecordOperation("stake", errors.New("boom"), 0.5)
	c.RecordStaked("0", 100)
	c.RecordStaked("0", 50)
	c.RecordReward("ustake", "compound", 8)
	c.RecordPool("0", 150, 25)
	c.RecordRate(0.12)
	c.RecordHeight(42)
	c.RecordAdminOverride("owner")
	c.RecordWSConnection(2)
	c.RecordWSConnection(-1)

	body := scrape(t, reg)
	for _, line := range []string{
		`stakeledger_ledger_operations_total{operation="stake",status="ok"} 1`,
		`stakeledger_ledger_operations_total{operation="stake",status="error"} 1`,
		`stakeledger_custody_staked_total{pool_id="0"} 150`,
		`stakeledger_custody_rewards_total{denom="ustake",mode="compound"} 8`,
		`stakeledger_pool_total_staked{pool_id="0"} 150`,
		`stakeledger_pool_total_pending{pool_id="0"} 25`,
		`stakeledger_oracle_rate 0.12`,
		`stakeledger_ledger_height 42`,
		`stakeledger_admin_overrides_total{field="owner"} 1`,
		`stakeledger_websocket_connections_active 1`,
	} {
		require.Contains(t, body, line)
	}
}

func TestNewCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	require.Panics(t, func() { NewCollector(reg) })
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	if timer.ElapsedMs() < 0 {
		t.Errorf("elapsed time must not be negative")
	}
}
