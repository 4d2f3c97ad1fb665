package cli

import (
	"fmt"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/spf13/cobra"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

const (
	FlagAccrualBasis          = "accrual-basis"
	FlagRewardPrecision       = "reward-precision"
	FlagStoreAddress          = "store-address"
	FlagSpendReleasesCapacity = "spend-releases-capacity"
)

// GetTxCmd returns the transaction commands for the stakepool module
func GetTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Stakepool module transaction commands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdCreatePool(),
		CmdStake(),
		CmdClaim(),
		CmdStakeMore(),
		CmdUnstake(),
		CmdSpend(),
		CmdSetRate(),
		CmdUpdateParams(),
		CmdApprove(),
		CmdMint(),
		GetAdminCmd(),
	)

	return cmd
}

// CmdCreatePool returns the command to open a pool
func CmdCreatePool() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-pool [max-per-wallet] [max-per-pool] [annual-rate] [lock-duration] [settlement-currency]",
		Short: "Create a staking pool (authority only)",
		Long: `Create a staking pool. The annual rate is a percentage, the lock duration is
whole seconds or a duration and the settlement currency is "stake" or "secondary".

Examples:
  stakeledgerd tx stakepool create-pool 10000000000 20000000000 12 168h stake --from <authority>
  stakeledgerd tx stakepool create-pool 5000000000 50000000000 8.5 2592000 secondary --from <authority>`,
		Args: cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			lock, err := parseSeconds(args[3])
			if err != nil {
				return err
			}

			res, err := c.CreatePool(cmd.Context(), &types.MsgCreatePool{
				MaxPerWallet:       args[0],
				MaxPerPool:         args[1],
				AnnualRate:         args[2],
				LockDuration:       lock,
				SettlementCurrency: args[4],
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdStake returns the command to open a position
func CmdStake() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stake [pool-id] [amount]",
		Short: "Stake tokens into a pool",
		Long: `Stake an amount of base units into a pool. The stakepool module must hold a
sufficient allowance from the caller, see "approve".

Example:
  stakeledgerd tx stakepool stake 0 2000000000 --from <address>`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			poolID, err := parseID("pool id", args[0])
			if err != nil {
				return err
			}

			res, err := c.Stake(cmd.Context(), poolID, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdClaim returns the command to claim a reward
func CmdClaim() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim [position-id] [payout|compound]",
		Short: "Claim the accrued reward of a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("position id", args[0])
			if err != nil {
				return err
			}

			res, err := c.Claim(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdStakeMore returns the command to add pending stake to a position
func CmdStakeMore() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stake-more [position-id] [amount]",
		Short: "Add stake to a position, merged at the next claim",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("position id", args[0])
			if err != nil {
				return err
			}

			res, err := c.StakeMore(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdUnstake returns the command to close an unlocked position
func CmdUnstake() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unstake [position-id]",
		Short: "Withdraw the principal of an unlocked position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("position id", args[0])
			if err != nil {
				return err
			}

			res, err := c.Unstake(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdSpend returns the command to spend staked tokens at the store
func CmdSpend() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spend [position-id] [amount]",
		Short: "Spend staked tokens of a position at the store address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("position id", args[0])
			if err != nil {
				return err
			}

			res, err := c.Spend(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdSetRate returns the command to set the oracle rate
func CmdSetRate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-rate [rate]",
		Short: "Set the secondary-asset price of one stake token (authority only)",
		Long: `Set the oracle rate: the number of whole secondary-asset tokens one whole
stake token is worth.

Example:
  stakeledgerd tx stakepool set-rate 0.12 --from <authority>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			if err := c.SetRate(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"rate": args[0]})
		},
	}

	AddTxFlags(cmd)
	return cmd
}

// CmdUpdateParams returns the command to change module parameters. Only the
// flags given are changed; everything else keeps its current value.
func CmdUpdateParams() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-params",
		Short: "Update module parameters (authority only)",
		Long: `Update module parameters. Only the flags given are changed.

Example:
  stakeledgerd tx stakepool update-params --accrual-basis daily --reward-precision 2 --from <authority>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			params, err := c.Params(cmd.Context())
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed(FlagAccrualBasis) {
				basis, _ := f.GetString(FlagAccrualBasis)
				params.AccrualBasis = types.AccrualBasis(basis)
			}
			if f.Changed(FlagRewardPrecision) {
				params.RewardPrecision, _ = f.GetUint32(FlagRewardPrecision)
			}
			if f.Changed(FlagStoreAddress) {
				params.StoreAddress, _ = f.GetString(FlagStoreAddress)
			}
			if f.Changed(FlagSpendReleasesCapacity) {
				params.SpendReleasesCapacity, _ = f.GetBool(FlagSpendReleasesCapacity)
			}

			if err := c.UpdateParams(cmd.Context(), *params); err != nil {
				return err
			}
			return printJSON(cmd, params)
		},
	}

	cmd.Flags().String(FlagAccrualBasis, "", "monthly or daily")
	cmd.Flags().Uint32(FlagRewardPrecision, 0, "decimals of a whole stake token kept in rewards")
	cmd.Flags().String(FlagStoreAddress, "", "recipient of spent tokens")
	cmd.Flags().Bool(FlagSpendReleasesCapacity, false, "release pool capacity when tokens are spent")
	AddTxFlags(cmd)
	return cmd
}

// CmdApprove returns the command to set an allowance
func CmdApprove() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve [amount]",
		Short: "Allow a module account to pull tokens from the caller",
		Long: `Set the caller's allowance towards a module account, stakepool by default.

Example:
  stakeledgerd tx stakepool approve 5000000000ustake --from <address>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			module, _ := cmd.Flags().GetString(FlagModule)
			if err := c.Approve(cmd.Context(), module, args[0]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"module": module, "allowance": args[0]})
		},
	}

	cmd.Flags().String(FlagModule, types.ModuleName, "module account being approved")
	AddTxFlags(cmd)
	return cmd
}

// CmdMint returns the command to credit tokens
func CmdMint() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint [address] [coins]",
		Short: "Credit tokens to an address (authority only)",
		Long: `Credit tokens to an address. With --module the coins go to a module account
instead and the address argument is omitted.

Examples:
  stakeledgerd tx stakepool mint <address> 5000000000ustake --from <authority>
  stakeledgerd tx stakepool mint 1000000000ustake,500usettle --module stakepool --from <authority>`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			module, _ := cmd.Flags().GetString(FlagModule)

			if module != "" {
				if len(args) != 1 {
					return fmt.Errorf("with --%s pass only the coins", FlagModule)
				}
				if err := c.MintToModule(cmd.Context(), module, args[0]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]string{"module": module, "minted": args[0]})
			}

			if len(args) != 2 {
				return fmt.Errorf("expected an address and coins")
			}
			if err := c.MintTo(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"address": args[0], "minted": args[1]})
		},
	}

	cmd.Flags().String(FlagModule, "", "credit a module account instead of an address")
	AddTxFlags(cmd)
	return cmd
}
