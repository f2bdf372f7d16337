package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `ApproverAddress = "0x00000000000000000000000000000000000000aa"`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, "./stakeforge-data", cfg.DataDir)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, float64(50), cfg.RateLimitRPS)
	require.Equal(t, 100, cfg.RateLimitBurst)

	approver := cfg.Approver()
	require.Equal(t, byte(0xAA), approver[19])
}

func TestLoadRejectsBadApprover(t *testing.T) {
	path := writeConfig(t, `ApproverAddress = "not-an-address"`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `ListenAddress = ":9090"`)
	_, err = Load(path)
	require.Error(t, err, "missing approver must be rejected")
}

func TestLoadParsesGenesisBalances(t *testing.T) {
	path := writeConfig(t, `
ApproverAddress = "0x00000000000000000000000000000000000000aa"

[[GenesisBalances]]
Address = "0x00000000000000000000000000000000000000bb"
Token = "RWD"
Amount = "1000000000000000000000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.GenesisBalances, 1)

	addr, token, amount := cfg.GenesisBalances[0].Decode()
	require.Equal(t, byte(0xBB), addr[19])
	require.Equal(t, "RWD", token)
	want, _ := new(big.Int).SetString("1000000000000000000000", 10)
	require.Zero(t, amount.Cmp(want))
}

func TestLoadRejectsBadGenesisAmount(t *testing.T) {
	path := writeConfig(t, `
ApproverAddress = "0x00000000000000000000000000000000000000aa"

[[GenesisBalances]]
Address = "0x00000000000000000000000000000000000000bb"
Token = "RWD"
Amount = "12.5"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8080", cfg.ListenAddress)
}
