package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhystmorgan/zterm/internal/wallet"
)

// isolate points HOME at an empty directory so a developer's own config
// file does not leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"ZTERM_NETWORK", "ZTERM_NODE_URL", "ZTERM_FEE", "ZTERM_TIMEOUT",
		"ZTERM_RETRY_COUNT", "ZTERM_CACHE_TTL", "ZTERM_STRICT_ADDRESSES", "ZTERM_FROM_ADDRESS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mainnet", config.Network)
	assert.Empty(t, config.NodeURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 3, config.RetryCount)
	assert.Equal(t, 30*time.Second, config.CacheTTL)
	assert.False(t, config.StrictAddresses)

	fee, err := config.FeeAmount()
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.0001")))
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)

	path := writeConfig(t, `
network: testnet
node_url: http://127.0.0.1:18232
rpc_user: zcash
from_address: zs1funding
fee: "0.00005"
timeout: 45s
strict_addresses: true
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testnet", config.Network)
	assert.Equal(t, "http://127.0.0.1:18232", config.NodeURL)
	assert.Equal(t, "zcash", config.RPCUser)
	assert.Equal(t, "zs1funding", config.FromAddress)
	assert.Equal(t, 45*time.Second, config.Timeout)
	assert.True(t, config.StrictAddresses)
	assert.Equal(t, 3, config.RetryCount, "unset keys keep their defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)

	path := writeConfig(t, "network: testnet\nretry_count: 1\n")
	t.Setenv("ZTERM_NETWORK", "mainnet")
	t.Setenv("ZTERM_NODE_URL", "http://node.internal:8232")
	t.Setenv("ZTERM_TIMEOUT", "60s")
	t.Setenv("ZTERM_CACHE_TTL", "1m")
	t.Setenv("ZTERM_FEE", "0.001")
	t.Setenv("ZTERM_STRICT_ADDRESSES", "true")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mainnet", config.Network)
	assert.Equal(t, "http://node.internal:8232", config.NodeURL)
	assert.Equal(t, 60*time.Second, config.Timeout)
	assert.Equal(t, time.Minute, config.CacheTTL)
	assert.Equal(t, 1, config.RetryCount)
	assert.Equal(t, "0.001", config.Fee)
	assert.True(t, config.StrictAddresses)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	isolate(t)

	_, err := Load(writeConfig(t, "network: [unterminated"))
	assert.Error(t, err)
}

func TestLoadInvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ZTERM_RETRY_COUNT", "many")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(c *Config) {}},
		{name: "testnet", modify: func(c *Config) { c.Network = "testnet" }},
		{name: "unknown network", modify: func(c *Config) { c.Network = "regtest" }, wantErr: true},
		{name: "fee not a number", modify: func(c *Config) { c.Fee = "cheap" }, wantErr: true},
		{name: "zero fee", modify: func(c *Config) { c.Fee = "0" }, wantErr: true},
		{name: "zero min conf", modify: func(c *Config) { c.MinConf = 0 }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: true},
		{name: "negative retry count", modify: func(c *Config) { c.RetryCount = -1 }, wantErr: true},
		{name: "zero retry count", modify: func(c *Config) { c.RetryCount = 0 }},
		{name: "zero cache TTL", modify: func(c *Config) { c.CacheTTL = 0 }, wantErr: true},
		{name: "zero poll interval", modify: func(c *Config) { c.PollInterval = 0 }, wantErr: true},
		{name: "zero balance refresh", modify: func(c *Config) { c.BalanceRefresh = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToWalletConfig(t *testing.T) {
	config := GetDefaultConfig()
	config.Network = "testnet"
	config.NodeURL = "http://127.0.0.1:18232"
	config.RPCUser = "user"
	config.RPCPassword = "pass"
	config.FromAddress = "zs1funding"
	config.Fee = "0.0002"
	config.RetryDelay = 5 * time.Second

	walletConfig := config.ToWalletConfig()

	assert.Equal(t, wallet.TestNet, walletConfig.Network)
	assert.Equal(t, "http://127.0.0.1:18232", walletConfig.NodeURL)
	assert.Equal(t, "user", walletConfig.RPCUser)
	assert.Equal(t, "pass", walletConfig.RPCPassword)
	assert.Equal(t, "zs1funding", walletConfig.FromAddress)
	assert.True(t, walletConfig.Fee.Equal(decimal.RequireFromString("0.0002")))
	assert.Equal(t, config.Timeout, walletConfig.Timeout)
	assert.Equal(t, 5*time.Second, walletConfig.RetryDelay)
	assert.Equal(t, config.OperationTimeout, walletConfig.OperationTimeout)
}

func TestToWalletConfigDefaultsToMainnet(t *testing.T) {
	config := GetDefaultConfig()
	assert.Equal(t, wallet.MainNet, config.ToWalletConfig().Network)
}
