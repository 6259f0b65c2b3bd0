package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(28800), cfg.Chain.BlocksPerDay)
	assert.Equal(t, int64(10512000), cfg.Chain.BlocksPerYear)
	assert.Equal(t, 15*time.Second, cfg.Refresh.Interval)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, int64(56), cfg.Chain.ChainID)
}

func TestLoad_MergesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stake7.yaml")
	yml := `
data_dir: /tmp/stake7-test
chain:
  chain_id: 97
  rpc_urls: ["https://data-seed-prebsc-1-s1.binance.org:8545/"]
contracts:
  pool_id: 2
refresh:
  interval: 30s
  watch:
    - "0x564DF71B75855d63c86a267206Cd0c9e35c92789"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/stake7-test", cfg.DataDir)
	assert.Equal(t, int64(97), cfg.Chain.ChainID)
	assert.Len(t, cfg.Chain.RPCURLs, 1)
	assert.Equal(t, uint64(2), cfg.Contracts.PoolID)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Interval)
	assert.Len(t, cfg.Refresh.Watch, 1)
	// untouched sections keep defaults
	assert.Equal(t, int64(28800), cfg.Chain.BlocksPerDay)
	assert.Equal(t, "ENiAC", cfg.Contracts.TokenSymbol)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chain: [unterminated"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STAKE7_RPC_URLS", "http://a:8545, http://b:8545,")
	t.Setenv("STAKE7_POOL_ID", "3")
	t.Setenv("STAKE7_CHAIN_ID", "97")
	t.Setenv("STAKE7_WALLET_ADDRESS", "0xafF339de48848d0F8B5704909Ac94e8E8D7E3415")

	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a:8545", "http://b:8545"}, cfg.Chain.RPCURLs)
	assert.Equal(t, uint64(3), cfg.Contracts.PoolID)
	assert.Equal(t, int64(97), cfg.Chain.ChainID)
	assert.Equal(t, "0xafF339de48848d0F8B5704909Ac94e8E8D7E3415", cfg.Wallet.Address)
}

func TestValidate_Rejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chain.RPCURLs = nil
	cfg.Contracts.Token = "0x123"
	cfg.Wallet.Address = "me"
	cfg.Chain.BlocksPerYear = 0
	cfg.Refresh.Watch = []string{"nope"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	for _, want := range []string{"rpc_urls", "blocks_per_day", "contracts.token", "wallet.address", "refresh.watch"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDBPath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/stake7"}
	assert.Equal(t, "/var/lib/stake7/stake7.db", cfg.DBPath())
}
