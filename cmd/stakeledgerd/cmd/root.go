package cmd

import (
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/spf13/cobra"

	"github.com/openalpha/stake-ledger/app"
	stakepoolcli "github.com/openalpha/stake-ledger/x/stakepool/client/cli"
)

// Version is set at build time
var Version = "dev"

const (
	flagHome   = "home"
	flagConfig = "config"
)

// NewRootCmd creates the root command for stakeledgerd
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stakeledgerd",
		Short: "Stake ledger - fixed-rate staking pools with lockups and rewards",
		Long: `stakeledgerd runs the staking ledger: custody of staked tokens, pools with
per-wallet and per-pool limits, lockups, and monthly rewards paid in the stake
asset or a secondary asset at the oracle rate.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String(flagHome, app.DefaultNodeHome, "directory for config and data")

	initRootCmd(rootCmd)
	return rootCmd
}

func initRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		InitCmd(),
		ServeCmd(),
		ExportCmd(),
		VersionCmd(),
	)

	queryCmd := &cobra.Command{
		Use:                        "query",
		Aliases:                    []string{"q"},
		Short:                      "Querying subcommands",
		DisableFlagParsing:         false,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}
	queryCmd.AddCommand(stakepoolcli.GetQueryCmd())
	rootCmd.AddCommand(queryCmd)

	txCmd := &cobra.Command{
		Use:                        "tx",
		Short:                      "Transactions subcommands",
		DisableFlagParsing:         false,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}
	txCmd.AddCommand(stakepoolcli.GetTxCmd())
	rootCmd.AddCommand(txCmd)
}

// addConfigFlags registers the flags LoadConfig binds
func addConfigFlags(cmd *cobra.Command) {
	def := app.DefaultConfig()
	f := cmd.Flags()
	f.String(flagConfig, "", "config file (default $HOME/config.toml, then ./config.toml)")
	f.String("db-backend", def.DBBackend, "store backend: goleveldb or memdb")
	f.String("log-level", def.LogLevel, "log level: trace, debug, info, warn, error")
	f.String("chain-id", def.ChainID, "chain id used when genesis does not set one")
	f.String("authority", "", "authority address (default: gov module address)")
	f.String("genesis", "", "genesis file (default $HOME/config/genesis.json)")
	f.Bool("check-invariants", def.CheckInvariants, "assert ledger invariants before each commit")
}

func loadConfig(cmd *cobra.Command) (app.Config, error) {
	cfgFile, _ := cmd.Flags().GetString(flagConfig)
	return app.LoadConfig(cfgFile, cmd.Flags())
}

// VersionCmd returns a command to print the version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("stakeledgerd " + Version)
		},
	}
}
