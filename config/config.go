package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the marketd runtime settings. Money fields are decimal
// strings so operators are never exposed to float rounding.
type Config struct {
	RPCAddress      string `toml:"RPCAddress"`
	DataDir         string `toml:"DataDir"`
	LogLevel        string `toml:"LogLevel"`
	LogFile         string `toml:"LogFile"`
	AdminAddress    string `toml:"AdminAddress"`
	EscrowAddress   string `toml:"EscrowAddress"`
	MintPrice       string `toml:"MintPrice"`
	AuctionDuration int64  `toml:"AuctionDuration"`
	MinBidAmount    string `toml:"MinBidAmount"`
	EventBuffer     int    `toml:"EventBuffer"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks the fields a running node cannot proceed without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must not be empty")
	}
	if _, err := ParseAddress(c.AdminAddress); err != nil {
		return fmt.Errorf("AdminAddress: %w", err)
	}
	if _, err := ParseAddress(c.EscrowAddress); err != nil {
		return fmt.Errorf("EscrowAddress: %w", err)
	}
	if c.AuctionDuration <= 0 {
		return fmt.Errorf("AuctionDuration must be positive")
	}
	return nil
}

// ParseAddress decodes a 20-byte account address from its hex form, with or
// without an 0x prefix.
func ParseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: expected %d bytes, got %d", value, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./market-data"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.MintPrice) == "" {
		cfg.MintPrice = "0"
	}
	if strings.TrimSpace(cfg.MinBidAmount) == "" {
		cfg.MinBidAmount = "0"
	}
	if cfg.AuctionDuration == 0 {
		cfg.AuctionDuration = 86400
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1024
	}
}

// createDefault creates and saves a default configuration file. The admin
// and escrow addresses are deliberately left empty so the operator has to
// fill them in before the node validates.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:      ":8080",
		DataDir:         "./market-data",
		LogLevel:        "info",
		MintPrice:       "0",
		AuctionDuration: 86400,
		MinBidAmount:    "0",
		EventBuffer:     1024,
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
