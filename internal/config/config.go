package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

type ChainConfig struct {
	ChainID       int64         `yaml:"chain_id"`
	RPCURLs       []string      `yaml:"rpc_urls"` // first is primary, the rest are fallbacks
	BlocksPerDay  int64         `yaml:"blocks_per_day"`
	BlocksPerYear int64         `yaml:"blocks_per_year"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
}

type ContractsConfig struct {
	Token         string `yaml:"token"`
	MasterChef    string `yaml:"masterchef"`
	PoolID        uint64 `yaml:"pool_id"`
	TokenDecimals uint8  `yaml:"token_decimals"` // 0 = read decimals() from the token
	TokenSymbol   string `yaml:"token_symbol"`
}

type WalletConfig struct {
	Address string `yaml:"address"` // own address, shown with allowance (no private key)
}

type APIConfig struct {
	Port int    `yaml:"port"`
	Bind string `yaml:"bind"`
}

type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	Watch    []string      `yaml:"watch"` // addresses seeded into the watchlist
}

type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int64         `yaml:"max_entries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Chain     ChainConfig     `yaml:"chain"`
	Contracts ContractsConfig `yaml:"contracts"`
	Wallet    WalletConfig    `yaml:"wallet"`
	API       APIConfig       `yaml:"api"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(home, ".stake7"),
		Chain: ChainConfig{
			ChainID: 56, // BSC mainnet
			RPCURLs: []string{
				"https://bsc-dataseed.binance.org/",
				"https://bsc-dataseed1.defibit.io/",
			},
			BlocksPerDay:  28800,    // 3s blocks
			BlocksPerYear: 10512000, // 28800 * 365
			CallTimeout:   10 * time.Second,
		},
		Contracts: ContractsConfig{
			Token:         "0xafF339de48848d0F8B5704909Ac94e8E8D7E3415",
			MasterChef:    "0x564DF71B75855d63c86a267206Cd0c9e35c92789",
			PoolID:        0,
			TokenDecimals: 18,
			TokenSymbol:   "ENiAC",
		},
		API: APIConfig{
			Port: 8407,
			Bind: "127.0.0.1",
		},
		Refresh: RefreshConfig{
			Interval: 15 * time.Second,
		},
		Cache: CacheConfig{
			TTL:        15 * time.Second,
			MaxEntries: 1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and merges it with defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file: defaults plus env overlay
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand ~ in data_dir
	if len(cfg.DataDir) > 0 && cfg.DataDir[0] == '~' {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, cfg.DataDir[1:])
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables on top of config values.
func (c *Config) applyEnv() {
	if v := os.Getenv("STAKE7_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STAKE7_RPC_URLS"); v != "" {
		c.Chain.RPCURLs = splitList(v)
	}
	if v := os.Getenv("STAKE7_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Chain.ChainID = id
		}
	}
	if v := os.Getenv("STAKE7_TOKEN"); v != "" {
		c.Contracts.Token = v
	}
	if v := os.Getenv("STAKE7_MASTERCHEF"); v != "" {
		c.Contracts.MasterChef = v
	}
	if v := os.Getenv("STAKE7_POOL_ID"); v != "" {
		if pid, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Contracts.PoolID = pid
		}
	}
	if v := os.Getenv("STAKE7_WALLET_ADDRESS"); v != "" {
		c.Wallet.Address = v
	}
	if v := os.Getenv("STAKE7_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.API.Port = port
		}
	}
	if v := os.Getenv("STAKE7_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// LoadFromBytes parses YAML config from bytes and merges with defaults.
// Used by the mobile package where there's no config file on disk.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// Validate checks the values the daemon cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Chain.RPCURLs) == 0 {
		errs = append(errs, errors.New("chain.rpc_urls is empty"))
	}
	if c.Chain.BlocksPerDay <= 0 || c.Chain.BlocksPerYear <= 0 {
		errs = append(errs, errors.New("chain.blocks_per_day and chain.blocks_per_year must be positive"))
	}
	if !common.IsHexAddress(c.Contracts.Token) {
		errs = append(errs, fmt.Errorf("contracts.token %q is not an address", c.Contracts.Token))
	}
	if !common.IsHexAddress(c.Contracts.MasterChef) {
		errs = append(errs, fmt.Errorf("contracts.masterchef %q is not an address", c.Contracts.MasterChef))
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		errs = append(errs, fmt.Errorf("wallet.address %q is not an address", c.Wallet.Address))
	}
	for _, w := range c.Refresh.Watch {
		if !common.IsHexAddress(w) {
			errs = append(errs, fmt.Errorf("refresh.watch entry %q is not an address", w))
		}
	}
	if c.Refresh.Interval <= 0 {
		errs = append(errs, errors.New("refresh.interval must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// DBPath returns the full path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "stake7.db")
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
