package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/openalpha/stake-ledger/app"
)

const flagOverwrite = "overwrite"

// InitCmd writes a default genesis file under the home directory
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [chain-id]",
		Short: "Write a default genesis file to $HOME/config/genesis.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetString(flagHome)
			overwrite, _ := cmd.Flags().GetBool(flagOverwrite)

			path := filepath.Join(home, "config", app.GenesisFileName)
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("genesis file already exists: %s (use --%s)", path, flagOverwrite)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}

			if err := writeGenesis(path, app.DefaultGenesisDocument(args[0])); err != nil {
				return err
			}
			cmd.Println("Wrote " + path)
			return nil
		},
	}

	cmd.Flags().Bool(flagOverwrite, false, "replace an existing genesis file")
	return cmd
}

// ExportCmd writes the committed ledger state as a genesis document
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [output-file]",
		Short: "Export ledger state as genesis JSON (stdout when no file is given)",
		Long: `Export the committed ledger state as a genesis document. The node must not be
running since the store is opened directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			db, err := cfg.OpenDB()
			if err != nil {
				return err
			}

			ledger, err := app.NewLedgerApp(logger, db, cfg)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer ledger.Close()

			doc, err := ledger.ExportGenesis(time.Now())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return writeGenesis(args[0], doc)
			}
			bz, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(bz))
			return err
		},
	}

	addConfigFlags(cmd)
	return cmd
}

func writeGenesis(path string, doc *app.GenesisDocument) error {
	bz, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode genesis: %w", err)
	}
	return os.WriteFile(path, bz, 0o644)
}
