// Command loadtest drives a mixed staking workload against a running
// stakeledgerd API and reports throughput, latency and rejections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	ledgersdk "github.com/openalpha/stake-ledger/sdk"
)

func newRootCmd() *cobra.Command {
	config := &Config{}
	var outputFile string

	cmd := &cobra.Command{
		Use:   "loadtest --authority <address>",
		Short: "Load test the stake ledger API",
		Long: `Funds a set of wallets through the authority, opens a pool and runs workers
that stake, claim, spend and query until the duration elapses. The node should
run with --api.disable-rate-limit or a rate limit above the offered load.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tester := NewLoadTester(config, cmd.OutOrStdout())
			if err := tester.Setup(ctx); err != nil {
				return err
			}
			tester.Run(ctx)
			tester.PrintResults()

			if outputFile != "" {
				if err := tester.SaveReport(outputFile); err != nil {
					return fmt.Errorf("save report: %w", err)
				}
				cmd.Printf("Report saved to %s\n", outputFile)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.Node, "node", ledgersdk.DefaultNode, "ledger API address")
	f.StringVar(&config.Authority, "authority", "", "authority address used to fund wallets and open the pool")
	f.IntVarP(&config.Workers, "concurrency", "c", 20, "concurrent workers")
	f.IntVar(&config.Wallets, "wallets", 50, "number of wallets")
	f.DurationVarP(&config.Duration, "duration", "d", 30*time.Second, "test duration")
	f.DurationVar(&config.RampUp, "ramp", 2*time.Second, "ramp-up time")
	f.Int64Var(&config.WalletFund, "fund", 1_000_000_000, "stake base units minted to each wallet")
	f.Int64Var(&config.StakeSize, "stake-size", 10_000_000, "largest single stake in base units")
	f.StringVarP(&outputFile, "output", "o", "", "write a JSON report to this file")
	_ = cmd.MarkFlagRequired("authority")

	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
