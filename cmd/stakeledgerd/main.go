package main

import (
	"os"

	"cosmossdk.io/log"

	"github.com/openalpha/stake-ledger/cmd/stakeledgerd/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.NewLogger(os.Stderr).Error("failure when running stakeledgerd", "err", err)
		os.Exit(1)
	}
}
