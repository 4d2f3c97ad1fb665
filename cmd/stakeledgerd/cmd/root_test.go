package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openalpha/stake-ledger/app"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitAndExport(t *testing.T) {
	home := t.TempDir()

	_, err := execute(t, "init", "stakeledger-local", "--home", home)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(home, "config", app.GenesisFileName))

	_, err = execute(t, "init", "stakeledger-local", "--home", home)
	require.ErrorContains(t, err, "already exists")

	out, err := execute(t, "export", "--home", home, "--db-backend", app.BackendMemDB)
	require.NoError(t, err)

	var doc app.GenesisDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Equal(t, "stakeledger-local", doc.ChainID)
	require.Contains(t, doc.AppState, types.ModuleName)

	path := filepath.Join(t.TempDir(), "exported.json")
	_, err = execute(t, "export", path, "--home", home, "--db-backend", app.BackendMemDB)
	require.NoError(t, err)
	bz, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(bz), "stakeledger-local")
}

func TestCommandTree(t *testing.T) {
	root := NewRootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"tx", "stakepool", "stake"},
		{"tx", "stakepool", "admin", "set-lock-until"},
		{"query", "stakepool", "schedule"},
		{"q", "stakepool", "balance"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], cmd.Name())
	}

	out, err := execute(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "stakeledgerd "+Version)
}

func TestServeRejectsBadConfig(t *testing.T) {
	_, err := execute(t, "serve", "--home", t.TempDir(), "--db-backend", "rocksdb")
	require.ErrorContains(t, err, "unsupported db backend")
}
