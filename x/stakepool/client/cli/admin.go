package cli

import (
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/spf13/cobra"
)

// GetAdminCmd groups the authority overrides of position fields. Each override
// is recorded in the audit log.
func GetAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        "admin",
		Short:                      "Authority overrides of position fields",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdSetPositionOwner(),
		CmdSetPositionStakedTokens(),
		CmdSetPositionLockUntil(),
		CmdSetPositionActive(),
		CmdSetPositionPool(),
	)

	return cmd
}

// adminCmd builds an override command taking a position id and one value
func adminCmd(use, short string, apply func(cmd *cobra.Command, positionID uint64, value string) (uint64, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("position id", args[0])
			if err != nil {
				return err
			}
			seq, err := apply(cmd, id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]uint64{"position_id": id, "sequence": seq})
		},
	}

	AddTxFlags(cmd)
	return cmd
}

func CmdSetPositionOwner() *cobra.Command {
	return adminCmd("set-owner [position-id] [new-owner]", "Reassign a position",
		func(cmd *cobra.Command, id uint64, value string) (uint64, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return 0, err
			}
			return c.SetPositionOwner(cmd.Context(), id, value)
		})
}

func CmdSetPositionStakedTokens() *cobra.Command {
	return adminCmd("set-staked-tokens [position-id] [amount]", "Overwrite the staked principal of a position",
		func(cmd *cobra.Command, id uint64, value string) (uint64, error) {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return 0, err
			}
			return c.SetPositionStakedTokens(cmd.Context(), id, value)
		})
}

func CmdSetPositionLockUntil() *cobra.Command {
	return adminCmd("set-lock-until [position-id] [time]", "Move the unlock time of a position (unix seconds or RFC3339)",
		func(cmd *cobra.Command, id uint64, value string) (uint64, error) {
			unlockAt, err := parseTime(value)
			if err != nil {
				return 0, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return 0, err
			}
			return c.SetPositionLockUntil(cmd.Context(), id, unlockAt)
		})
}

func CmdSetPositionActive() *cobra.Command {
	return adminCmd("set-active [position-id] [true|false]", "Activate or deactivate a position",
		func(cmd *cobra.Command, id uint64, value string) (uint64, error) {
			active, err := parseBool(value)
			if err != nil {
				return 0, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return 0, err
			}
			return c.SetPositionActive(cmd.Context(), id, active)
		})
}

func CmdSetPositionPool() *cobra.Command {
	return adminCmd("set-pool [position-id] [pool-id]", "Move a position to another pool",
		func(cmd *cobra.Command, id uint64, value string) (uint64, error) {
			poolID, err := parseID("pool id", value)
			if err != nil {
				return 0, err
			}
			c, err := clientFromCmd(cmd)
			if err != nil {
				return 0, err
			}
			return c.SetPositionPool(cmd.Context(), id, poolID)
		})
}
