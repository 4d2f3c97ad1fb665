package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	ledgersdk "github.com/openalpha/stake-ledger/sdk"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// Config describes a load run
type Config struct {
	Node       string
	Authority  string
	Workers    int
	Wallets    int
	Duration   time.Duration
	RampUp     time.Duration
	WalletFund int64 // stake base units minted to each wallet
	StakeSize  int64
}

// Results aggregates request outcomes. Rejections are ledger errors such as a
// duplicate position; they are expected under random load and counted apart
// from failures.
type Results struct {
	TotalRequests     int64
	SuccessRequests   int64
	RejectedRequests  int64
	FailedRequests    int64
	TotalLatency      int64 // microseconds
	Latencies         []int64
	Operations        map[string]int64
	Rejections        map[string]int64
	Errors            map[string]int64
	StartTime         time.Time
	EndTime           time.Time
	RequestsPerSecond float64
	mu                sync.Mutex
}

// LoadTester drives a mixed staking workload against a running node
type LoadTester struct {
	config  *Config
	results *Results
	client  *ledgersdk.Client
	wallets []string
	poolID  uint64
	out     io.Writer
	wg      sync.WaitGroup
}

// NewLoadTester creates a tester; progress and the report go to out
func NewLoadTester(config *Config, out io.Writer) *LoadTester {
	wallets := make([]string, config.Wallets)
	for i := range wallets {
		wallets[i] = sdk.AccAddress([]byte(fmt.Sprintf("loadtest%012d", i))).String()
	}
	return &LoadTester{
		config: config,
		results: &Results{
			Operations: make(map[string]int64),
			Rejections: make(map[string]int64),
			Errors:     make(map[string]int64),
		},
		client:  ledgersdk.NewClient(config.Node, ledgersdk.WithTimeout(30*time.Second)),
		wallets: wallets,
		out:     out,
	}
}

// Setup funds every wallet, approves the stakepool module and opens a pool
func (lt *LoadTester) Setup(ctx context.Context) error {
	if _, err := lt.client.Health(ctx); err != nil {
		return fmt.Errorf("node unhealthy: %w", err)
	}

	admin := lt.client.As(lt.config.Authority)
	fund := fmt.Sprintf("%d%s", lt.config.WalletFund, types.DefaultStakeDenom)
	for _, wallet := range lt.wallets {
		if err := admin.MintTo(ctx, wallet, fund); err != nil {
			return fmt.Errorf("fund %s: %w", wallet, err)
		}
		if err := lt.client.As(wallet).Approve(ctx, types.ModuleName, fund); err != nil {
			return fmt.Errorf("approve %s: %w", wallet, err)
		}
	}
	reserve := fmt.Sprintf("%d%s", lt.config.WalletFund*int64(len(lt.wallets)), types.DefaultStakeDenom)
	if err := admin.MintToModule(ctx, types.ModuleName, reserve); err != nil {
		return fmt.Errorf("fund custody: %w", err)
	}

	created, err := admin.CreatePool(ctx, &types.MsgCreatePool{
		MaxPerWallet:       fmt.Sprintf("%d", lt.config.WalletFund),
		MaxPerPool:         fmt.Sprintf("%d", lt.config.WalletFund*int64(len(lt.wallets))),
		AnnualRate:         "12",
		LockDuration:       0,
		SettlementCurrency: "stake",
	})
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	lt.poolID = created.PoolID
	return nil
}

// Run ramps up the workers and blocks until the configured duration has passed
func (lt *LoadTester) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, lt.config.Duration)
	defer cancel()

	lt.results.StartTime = time.Now()

	step := lt.config.RampUp / time.Duration(max(lt.config.Workers, 1))
	for i := 0; i < lt.config.Workers; i++ {
		lt.wg.Add(1)
		go lt.worker(ctx, int64(i))
		if step > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(step):
			}
		}
	}

	<-ctx.Done()
	lt.wg.Wait()
	lt.results.EndTime = time.Now()
	lt.calculateMetrics()
}

func (lt *LoadTester) worker(ctx context.Context, seed int64) {
	defer lt.wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + seed))

	for ctx.Err() == nil {
		wallet := lt.wallets[rng.Intn(len(lt.wallets))]
		lt.step(ctx, rng, wallet)
	}
}

// step issues one operation for wallet, chosen from its current position
func (lt *LoadTester) step(ctx context.Context, rng *rand.Rand, wallet string) {
	c := lt.client.As(wallet)
	amount := fmt.Sprintf("%d", 1+rng.Int63n(lt.config.StakeSize))

	start := time.Now()
	pos, err := c.ActivePosition(ctx, wallet, lt.poolID)
	lt.record(ctx, "active_position", time.Since(start).Microseconds(), err)
	if err != nil {
		if errors.Is(err, types.ErrPositionNotFound) {
			lt.timed(ctx, "stake", func() error {
				_, err := c.Stake(ctx, lt.poolID, amount)
				return err
			})
		}
		return
	}

	switch n := rng.Intn(10); {
	case n < 4:
		lt.timed(ctx, "reward", func() error {
			_, err := c.PendingReward(ctx, pos.PositionID)
			return err
		})
	case n < 6:
		lt.timed(ctx, "stake_more", func() error {
			_, err := c.StakeMore(ctx, pos.PositionID, amount)
			return err
		})
	case n < 7:
		lt.timed(ctx, "claim", func() error {
			_, err := c.Claim(ctx, pos.PositionID, "compound")
			return err
		})
	case n < 8:
		lt.timed(ctx, "spend", func() error {
			_, err := c.Spend(ctx, pos.PositionID, "1")
			return err
		})
	case n < 9:
		lt.timed(ctx, "unstake", func() error {
			_, err := c.Unstake(ctx, pos.PositionID)
			return err
		})
	default:
		lt.timed(ctx, "owner_positions", func() error {
			_, err := c.PositionsByOwner(ctx, wallet)
			return err
		})
	}
}

func (lt *LoadTester) timed(ctx context.Context, op string, fn func() error) {
	start := time.Now()
	err := fn()
	lt.record(ctx, op, time.Since(start).Microseconds(), err)
}

func (lt *LoadTester) record(ctx context.Context, op string, latency int64, err error) {
	// Requests cut off by the end of the run are not counted
	if err != nil && ctx.Err() != nil {
		return
	}

	atomic.AddInt64(&lt.results.TotalRequests, 1)
	atomic.AddInt64(&lt.results.TotalLatency, latency)

	lt.results.mu.Lock()
	defer lt.results.mu.Unlock()
	lt.results.Operations[op]++
	if latency > 0 {
		lt.results.Latencies = append(lt.results.Latencies, latency)
	}

	if err == nil {
		lt.results.SuccessRequests++
		return
	}
	if codespace, _, _ := errorsmod.ABCIInfo(err, false); codespace == types.ModuleName {
		lt.results.RejectedRequests++
		lt.results.Rejections[op+": "+rejectionName(err)]++
		return
	}
	lt.results.FailedRequests++
	lt.results.Errors[err.Error()]++
}

func rejectionName(err error) string {
	for _, known := range []*errorsmod.Error{
		types.ErrPositionNotFound, types.ErrDuplicatePosition, types.ErrRewardNotDue,
		types.ErrWalletLimitExceeded, types.ErrPoolLimitExceeded, types.ErrInsufficientStake,
		types.ErrInsufficientBalance, types.ErrInsufficientAllowance, types.ErrPositionInactive,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	_, code, _ := errorsmod.ABCIInfo(err, false)
	return fmt.Sprintf("code %d", code)
}

func (lt *LoadTester) calculateMetrics() {
	elapsed := lt.results.EndTime.Sub(lt.results.StartTime).Seconds()
	if elapsed > 0 {
		lt.results.RequestsPerSecond = float64(lt.results.TotalRequests) / elapsed
	}
	sort.Slice(lt.results.Latencies, func(i, j int) bool {
		return lt.results.Latencies[i] < lt.results.Latencies[j]
	})
}

func (lt *LoadTester) getPercentile(p float64) float64 {
	if len(lt.results.Latencies) == 0 {
		return 0
	}
	index := int(float64(len(lt.results.Latencies)) * p)
	if index >= len(lt.results.Latencies) {
		index = len(lt.results.Latencies) - 1
	}
	return float64(lt.results.Latencies[index]) / 1000
}

// PrintResults writes a human readable summary
func (lt *LoadTester) PrintResults() {
	r := lt.results
	fmt.Fprintln(lt.out, "== Load test results ==")
	fmt.Fprintf(lt.out, "Duration:          %v\n", r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
	fmt.Fprintf(lt.out, "Workers/Wallets:   %d/%d\n", lt.config.Workers, len(lt.wallets))
	fmt.Fprintf(lt.out, "Requests:          %d (%.2f/s)\n", r.TotalRequests, r.RequestsPerSecond)
	fmt.Fprintf(lt.out, "  succeeded:       %d\n", r.SuccessRequests)
	fmt.Fprintf(lt.out, "  rejected:        %d\n", r.RejectedRequests)
	fmt.Fprintf(lt.out, "  failed:          %d\n", r.FailedRequests)
	fmt.Fprintf(lt.out, "Latency p50/p95/p99: %.2f / %.2f / %.2f ms\n",
		lt.getPercentile(0.50), lt.getPercentile(0.95), lt.getPercentile(0.99))

	printCounts(lt.out, "Operations", r.Operations)
	printCounts(lt.out, "Rejections", r.Rejections)
	printCounts(lt.out, "Errors", r.Errors)
}

func printCounts(w io.Writer, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, title+":")
	for _, k := range keys {
		fmt.Fprintf(w, "  %-40s %d\n", k, counts[k])
	}
}

// SaveReport writes the results as JSON
func (lt *LoadTester) SaveReport(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	r := lt.results
	report := map[string]interface{}{
		"config": map[string]interface{}{
			"node":     lt.config.Node,
			"workers":  lt.config.Workers,
			"wallets":  lt.config.Wallets,
			"duration": lt.config.Duration.String(),
		},
		"summary": map[string]interface{}{
			"total_requests":      r.TotalRequests,
			"success_requests":    r.SuccessRequests,
			"rejected_requests":   r.RejectedRequests,
			"failed_requests":     r.FailedRequests,
			"requests_per_second": r.RequestsPerSecond,
		},
		"latency": map[string]interface{}{
			"p50_ms": lt.getPercentile(0.50),
			"p95_ms": lt.getPercentile(0.95),
			"p99_ms": lt.getPercentile(0.99),
		},
		"operations": r.Operations,
		"rejections": r.Rejections,
		"errors":     r.Errors,
		"timestamp":  time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
