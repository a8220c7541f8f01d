package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/powledger/internal/chain"
	"github.com/Klingon-tech/powledger/internal/miner"
	"github.com/Klingon-tech/powledger/internal/rpc"
	"github.com/Klingon-tech/powledger/pkg/block"
)

func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	_, err = root.ExecuteC()
	return buf.String(), err
}

// run executes a fresh root command against dataDir.
func run(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	args = append(args, "--datadir", dataDir, "--log-level", "error")
	return executeCommand(newRootCmd(), args...)
}

func TestRootCmd(t *testing.T) {
	output, err := executeCommand(newRootCmd())
	assert.NoError(t, err)
	assert.Contains(t, output, "append-only chain of proof-of-work blocks")

	_, err = executeCommand(newRootCmd(), "version", "--log-level", "invalid")
	assert.ErrorContains(t, err, `log.level "invalid"`)
}

func TestVersionCmd(t *testing.T) {
	output, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, output, "powledger dev")
}

func TestLedgerFlow(t *testing.T) {
	dir := t.TempDir()

	output, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, output, "Initialized ledger")

	output, err = run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, output, "already initialized (1 blocks)")

	output, err = run(t, dir, "mine", "Ayush", "Joshi")
	require.NoError(t, err)
	assert.Contains(t, output, "Mined block 2")
	assert.Contains(t, output, "Mined block 3")

	output, err = run(t, dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, output, "Chain is valid (3 blocks)")

	output, err = run(t, dir, "show")
	require.NoError(t, err)
	assert.Contains(t, output, "Ayush")
	assert.Contains(t, output, block.GenesisHash)

	output, err = run(t, dir, "show", "--json")
	require.NoError(t, err)
	var doc chain.Document
	require.NoError(t, json.Unmarshal([]byte(output), &doc))
	assert.Equal(t, 3, doc.Length)
	assert.Equal(t, "Joshi", doc.Chain[2].Data)

	file := filepath.Join(t.TempDir(), "chain.json")
	output, err = run(t, dir, "export", file)
	require.NoError(t, err)
	assert.Contains(t, output, "Exported 3 blocks")

	// A fresh ledger with only genesis adopts the longer exported chain.
	other := t.TempDir()
	_, err = run(t, other, "init")
	require.NoError(t, err)

	output, err = run(t, other, "select", file)
	require.NoError(t, err)
	assert.Contains(t, output, "Selected remote chain (3 blocks, local has 1)")

	output, err = run(t, other, "select", file, "--adopt")
	require.NoError(t, err)
	assert.Contains(t, output, "Adopted remote chain (3 blocks)")

	output, err = run(t, other, "validate")
	require.NoError(t, err)
	assert.Contains(t, output, "Chain is valid (3 blocks)")

	// Equal length: fork choice picks remote but adoption keeps local.
	output, err = run(t, other, "select", file, "--adopt")
	require.NoError(t, err)
	assert.Contains(t, output, "Selected remote chain")
	assert.Contains(t, output, "Kept local chain")
}

func TestMineBeforeInit(t *testing.T) {
	_, err := run(t, t.TempDir(), "mine", "x")
	assert.ErrorContains(t, err, "not initialized")
}

func TestMineRequiresData(t *testing.T) {
	_, err := run(t, t.TempDir(), "mine")
	assert.Error(t, err)
}

func TestSelectInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "init")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"chain": [], "length": 5}`), 0o644))
	_, err = run(t, dir, "select", file)
	assert.ErrorIs(t, err, chain.ErrLengthMismatch)
}

func TestConfigFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "powledger.conf")
	require.NoError(t, os.WriteFile(conf, []byte("log.level = nonsense\n"), 0o644))

	// The file value is invalid on its own.
	_, err := executeCommand(newRootCmd(), "version", "--datadir", dir)
	assert.ErrorContains(t, err, "log.level")

	// A flag overrides it.
	output, err := executeCommand(newRootCmd(), "version", "--datadir", dir, "-l", "warn")
	require.NoError(t, err)
	assert.Contains(t, output, "powledger dev")

	// An explicit --config points elsewhere.
	other := filepath.Join(t.TempDir(), "alt.conf")
	require.NoError(t, os.WriteFile(other, []byte("mining.threads = 2\n"), 0o644))
	_, err = executeCommand(newRootCmd(), "version", "--datadir", dir, "--config", other)
	require.NoError(t, err)
}

func TestDemoCmd(t *testing.T) {
	output, err := run(t, t.TempDir(), "demo")
	require.NoError(t, err)
	assert.Contains(t, output, "Chain valid: true")
	assert.Contains(t, output, "Selected chain: 5 blocks (ok=true)")
	assert.Contains(t, output, "Decentralization")
	assert.Contains(t, output, `"length": 5`)
}

func TestSelectFromRPC(t *testing.T) {
	remote := chain.New()
	require.NoError(t, remote.SeedGenesis())
	m := miner.New(remote, nil)
	for _, d := range []string{"from", "rpc"} {
		_, err := m.Extend(context.Background(), d)
		require.NoError(t, err)
	}
	srv := rpc.New("127.0.0.1:0", remote, nil, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	dir := t.TempDir()
	_, err := run(t, dir, "init")
	require.NoError(t, err)

	output, err := run(t, dir, "select", "http://"+srv.Addr(), "--adopt")
	require.NoError(t, err)
	assert.Contains(t, output, "Selected remote chain (3 blocks, local has 1)")
	assert.Contains(t, output, "Adopted remote chain (3 blocks)")

	output, err = run(t, dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, output, "Chain is valid (3 blocks)")
}

func TestServeCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	for _, name := range []string{"rpc-addr", "rpc-allowed", "no-mining"} {
		assert.NotNil(t, serve.Flags().Lookup(name), name)
	}

	_, err = executeCommand(newRootCmd(), "serve", "--datadir", t.TempDir(),
		"--log-level", "error", "--rpc-allowed", "not-an-ip")
	assert.ErrorContains(t, err, "rpc.allowed")
}
