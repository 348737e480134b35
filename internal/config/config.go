package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"rhystmorgan/zterm/internal/wallet"
)

// EnvPrefix is prepended to every environment override, e.g. ZTERM_NODE_URL.
const EnvPrefix = "ZTERM"

type Config struct {
	Network          string        `yaml:"network" envconfig:"NETWORK"`
	NodeURL          string        `yaml:"node_url" envconfig:"NODE_URL"`
	RPCUser          string        `yaml:"rpc_user" envconfig:"RPC_USER"`
	RPCPassword      string        `yaml:"rpc_password" envconfig:"RPC_PASSWORD"`
	FromAddress      string        `yaml:"from_address" envconfig:"FROM_ADDRESS"`
	Fee              string        `yaml:"fee" envconfig:"FEE"`
	MinConf          int           `yaml:"min_conf" envconfig:"MIN_CONF"`
	Timeout          time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	RetryCount       int           `yaml:"retry_count" envconfig:"RETRY_COUNT"`
	RetryDelay       time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY"`
	CacheTTL         time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT"`
	BalanceRefresh   time.Duration `yaml:"balance_refresh" envconfig:"BALANCE_REFRESH"`
	StrictAddresses  bool          `yaml:"strict_addresses" envconfig:"STRICT_ADDRESSES"`
	AuditDir         string        `yaml:"audit_dir" envconfig:"AUDIT_DIR"`
	LogLevel         string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFile          string        `yaml:"log_file" envconfig:"LOG_FILE"`
}

// Load builds the configuration from defaults, then the YAML file at path,
// then ZTERM_* environment variables. An empty path falls back to
// DefaultPath and tolerates its absence.
func Load(path string) (*Config, error) {
	config := GetDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		if err := config.loadFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// DefaultPath is ~/.zterm/config.yaml, or empty if the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".zterm", "config.yaml")
}

func (c *Config) Validate() error {
	switch c.Network {
	case "mainnet", "testnet":
		// Valid networks
	default:
		return fmt.Errorf("invalid network: %s (must be 'mainnet' or 'testnet')", c.Network)
	}

	fee, err := c.FeeAmount()
	if err != nil {
		return err
	}
	if !fee.IsPositive() {
		return fmt.Errorf("fee must be positive, got: %s", c.Fee)
	}

	if c.MinConf < 1 {
		return fmt.Errorf("min conf must be at least 1, got: %d", c.MinConf)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}

	if c.RetryCount < 0 {
		return fmt.Errorf("retry count must be non-negative, got: %d", c.RetryCount)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %v", c.CacheTTL)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got: %v", c.PollInterval)
	}

	if c.BalanceRefresh <= 0 {
		return fmt.Errorf("balance refresh must be positive, got: %v", c.BalanceRefresh)
	}

	return nil
}

// FeeAmount parses the configured fee in ZEC.
func (c *Config) FeeAmount() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.Fee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid fee %q: %w", c.Fee, err)
	}
	return fee, nil
}

func (c *Config) ToWalletConfig() wallet.Config {
	var network wallet.Network
	switch c.Network {
	case "testnet":
		network = wallet.TestNet
	default:
		network = wallet.MainNet
	}

	fee, err := c.FeeAmount()
	if err != nil {
		fee = wallet.DefaultFee
	}

	return wallet.Config{
		Network:          network,
		NodeURL:          c.NodeURL,
		RPCUser:          c.RPCUser,
		RPCPassword:      c.RPCPassword,
		FromAddress:      c.FromAddress,
		Fee:              fee,
		MinConf:          c.MinConf,
		Timeout:          c.Timeout,
		RetryCount:       c.RetryCount,
		RetryDelay:       c.RetryDelay,
		CacheTTL:         c.CacheTTL,
		PollInterval:     c.PollInterval,
		OperationTimeout: c.OperationTimeout,
	}
}

// DefaultAuditDir sits next to the default config file.
func DefaultAuditDir() string {
	path := DefaultPath()
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "audit")
}

func GetDefaultConfig() *Config {
	return &Config{
		Network:          "mainnet",
		NodeURL:          "",
		Fee:              wallet.DefaultFee.String(),
		MinConf:          wallet.DefaultMinConf,
		Timeout:          wallet.DefaultTimeout,
		RetryCount:       wallet.DefaultRetryCount,
		RetryDelay:       wallet.DefaultRetryDelay,
		CacheTTL:         wallet.DefaultCacheTTL,
		PollInterval:     wallet.DefaultPollInterval,
		OperationTimeout: wallet.DefaultOperationTimeout,
		BalanceRefresh:   15 * time.Second,
		AuditDir:         DefaultAuditDir(),
	}
}
