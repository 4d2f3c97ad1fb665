package cli

import (
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/spf13/cobra"

	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// GetQueryCmd returns the cli query commands for the stakepool module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the stakepool module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryParams(),
		CmdQueryRate(),
		CmdQueryPool(),
		CmdQueryPools(),
		CmdQueryPosition(),
		CmdQueryPositions(),
		CmdQueryOwnerPositions(),
		CmdQueryActivePosition(),
		CmdQueryReward(),
		CmdQuerySchedule(),
		CmdQueryAudit(),
		CmdQueryBalance(),
	)

	return cmd
}

// queryCmd builds a read-only command whose result is printed as JSON
func queryCmd(use, short string, args cobra.PositionalArgs, run func(cmd *cobra.Command, args []string) (interface{}, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, args)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	AddNodeFlags(cmd)
	return cmd
}

func CmdQueryParams() *cobra.Command {
	return queryCmd("params", "Query module parameters", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.Params(cmd.Context())
		})
}

func CmdQueryRate() *cobra.Command {
	return queryCmd("rate", "Query the oracle rate", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			rate, err := c.Rate(cmd.Context())
			if err != nil {
				return nil, err
			}
			return map[string]string{"rate": rate}, nil
		})
}

func CmdQueryPool() *cobra.Command {
	return queryCmd("pool [pool-id]", "Query a pool", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			id, err := parseID("pool id", args[0])
			if err != nil {
				return nil, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.Pool(cmd.Context(), id)
		})
}

func CmdQueryPools() *cobra.Command {
	cmd := queryCmd("pools", "List pools", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			offset, _ := cmd.Flags().GetUint64(FlagOffset)
			limit, _ := cmd.Flags().GetUint64(FlagLimit)
			return c.Pools(cmd.Context(), offset, limit)
		})
	addPageFlags(cmd)
	return cmd
}

func CmdQueryPosition() *cobra.Command {
	return queryCmd("position [position-id]", "Query a position", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			id, err := parseID("position id", args[0])
			if err != nil {
				return nil, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.Position(cmd.Context(), id)
		})
}

func CmdQueryPositions() *cobra.Command {
	cmd := queryCmd("positions", "List positions", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			offset, _ := cmd.Flags().GetUint64(FlagOffset)
			limit, _ := cmd.Flags().GetUint64(FlagLimit)
			return c.Positions(cmd.Context(), offset, limit)
		})
	addPageFlags(cmd)
	return cmd
}

func CmdQueryOwnerPositions() *cobra.Command {
	return queryCmd("owner-positions [owner]", "List every position of an owner", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.PositionsByOwner(cmd.Context(), args[0])
		})
}

func CmdQueryActivePosition() *cobra.Command {
	return queryCmd("active-position [owner] [pool-id]", "Query the active position of an owner in a pool", cobra.ExactArgs(2),
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			poolID, err := parseID("pool id", args[1])
			if err != nil {
				return nil, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.ActivePosition(cmd.Context(), args[0], poolID)
		})
}

func CmdQueryReward() *cobra.Command {
	return queryCmd("reward [position-id]", "Query the reward a claim would settle now", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			id, err := parseID("position id", args[0])
			if err != nil {
				return nil, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.PendingReward(cmd.Context(), id)
		})
}

func CmdQuerySchedule() *cobra.Command {
	cmd := queryCmd("schedule", "List active positions by unlock time", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			var start, end int64
			if raw, _ := cmd.Flags().GetString(FlagStart); raw != "" {
				ts, err := parseTime(raw)
				if err != nil {
					return nil, err
				}
				start = ts
			}
			if raw, _ := cmd.Flags().GetString(FlagEnd); raw != "" {
				ts, err := parseTime(raw)
				if err != nil {
					return nil, err
				}
				end = ts
			}
			limit, _ := cmd.Flags().GetUint64(FlagLimit)

			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.UnlockSchedule(cmd.Context(), start, end, int(limit))
		})
	cmd.Flags().String(FlagStart, "", "earliest unlock time (unix seconds or RFC3339)")
	cmd.Flags().String(FlagEnd, "", "latest unlock time (unix seconds or RFC3339)")
	cmd.Flags().Uint64(FlagLimit, 0, "maximum entries, 0 for all")
	return cmd
}

func CmdQueryAudit() *cobra.Command {
	cmd := queryCmd("audit", "List admin override records", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			since, _ := cmd.Flags().GetUint64(FlagSince)
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.AuditLog(cmd.Context(), since)
		})
	cmd.Flags().Uint64(FlagSince, 0, "first audit sequence to return")
	return cmd
}

func CmdQueryBalance() *cobra.Command {
	return queryCmd("balance [address]", "Query custody balances and the stake allowance of an address", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) (interface{}, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return nil, err
			}
			return c.Balances(cmd.Context(), args[0])
		})
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64(FlagOffset, 0, "entries to skip")
	cmd.Flags().Uint64(FlagLimit, 100, "maximum entries")
}
