package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// GenesisBalance seeds the asset ledger at startup so proposers can fund
// pools and participants can stake on a fresh data directory.
type GenesisBalance struct {
	Address string `toml:"Address"`
	Token   string `toml:"Token"`
	Amount  string `toml:"Amount"`
}

type Config struct {
	ListenAddress   string           `toml:"ListenAddress"`
	DataDir         string           `toml:"DataDir"`
	Env             string           `toml:"Env"`
	LogFile         string           `toml:"LogFile"`
	ApproverAddress string           `toml:"ApproverAddress"`
	RateLimitRPS    float64          `toml:"RateLimitRPS"`
	RateLimitBurst  int              `toml:"RateLimitBurst"`
	GenesisBalances []GenesisBalance `toml:"GenesisBalances"`
}

// Load reads the configuration from the given path, creating a default file
// on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./stakeforge-data"
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "local"
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.ApproverAddress) == "" {
		return fmt.Errorf("config: ApproverAddress is required")
	}
	if !common.IsHexAddress(c.ApproverAddress) {
		return fmt.Errorf("config: ApproverAddress %q is not a hex address", c.ApproverAddress)
	}
	for i, balance := range c.GenesisBalances {
		if !common.IsHexAddress(balance.Address) {
			return fmt.Errorf("config: GenesisBalances[%d].Address %q is not a hex address", i, balance.Address)
		}
		if strings.TrimSpace(balance.Token) == "" {
			return fmt.Errorf("config: GenesisBalances[%d].Token is empty", i)
		}
		if _, ok := new(big.Int).SetString(balance.Amount, 10); !ok {
			return fmt.Errorf("config: GenesisBalances[%d].Amount %q is not a decimal integer", i, balance.Amount)
		}
	}
	return nil
}

// Approver returns the decoded approver address.
func (c *Config) Approver() [20]byte {
	return common.HexToAddress(c.ApproverAddress)
}

// Decode returns the parsed form of one genesis balance. Load has already
// validated the entry.
func (b GenesisBalance) Decode() ([20]byte, string, *big.Int) {
	amount, _ := new(big.Int).SetString(b.Amount, 10)
	return common.HexToAddress(b.Address), b.Token, amount
}

// createDefault creates and saves a default configuration file. The zero
// approver address is a placeholder the operator must replace.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:   ":8080",
		DataDir:         "./stakeforge-data",
		Env:             "local",
		ApproverAddress: common.Address{}.Hex(),
		RateLimitRPS:    50,
		RateLimitBurst:  100,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
