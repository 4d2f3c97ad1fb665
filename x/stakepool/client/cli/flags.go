package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/spf13/cobra"

	ledgersdk "github.com/openalpha/stake-ledger/sdk"
)

const (
	FlagTimeout = "timeout"
	FlagModule  = "module"
	FlagOffset  = "offset"
	FlagLimit   = "limit"
	FlagStart   = "start"
	FlagEnd     = "end"
	FlagSince   = "since"
)

// AddNodeFlags adds the API connection flags
func AddNodeFlags(cmd *cobra.Command) {
	cmd.Flags().String(flags.FlagNode, ledgersdk.DefaultNode, "ledger API address")
	cmd.Flags().Duration(FlagTimeout, 30*time.Second, "request timeout")
}

// AddTxFlags adds the flags mutations need: the API address and the caller
func AddTxFlags(cmd *cobra.Command) {
	AddNodeFlags(cmd)
	cmd.Flags().String(flags.FlagFrom, "", "address the request is sent as")
	_ = cmd.MarkFlagRequired(flags.FlagFrom)
}

func clientFromCmd(cmd *cobra.Command) (*ledgersdk.Client, error) {
	node, err := cmd.Flags().GetString(flags.FlagNode)
	if err != nil {
		return nil, err
	}
	timeout, err := cmd.Flags().GetDuration(FlagTimeout)
	if err != nil {
		return nil, err
	}
	c := ledgersdk.NewClient(node, ledgersdk.WithTimeout(timeout))

	if cmd.Flags().Lookup(flags.FlagFrom) != nil {
		from, err := cmd.Flags().GetString(flags.FlagFrom)
		if err != nil {
			return nil, err
		}
		c = c.As(from)
	}
	return c, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

func parseID(name, raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return id, nil
}

// parseSeconds accepts whole seconds or a Go duration such as "168h"
func parseSeconds(raw string) (int64, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return secs, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return int64(d / time.Second), nil
}

// parseTime accepts a unix timestamp or an RFC3339 time
func parseTime(raw string) (int64, error) {
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ts, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (use unix seconds or RFC3339)", raw)
	}
	return t.Unix(), nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "yes", "1", "active":
		return true, nil
	case "false", "no", "0", "inactive":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}
