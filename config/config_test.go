package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `RPCAddress = "0.0.0.0:9000"
DataDir = "./data"
LogLevel = "debug"
AdminAddress = "0xadadadadadadadadadadadadadadadadadadadad"
EscrowAddress = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
MintPrice = "500"
AuctionDuration = 600
MinBidAmount = "10"
EventBuffer = 64
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.RPCAddress)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, int64(600), cfg.AuctionDuration)
	require.Equal(t, "500", cfg.MintPrice)
	require.NoError(t, cfg.Validate())

	admin, err := ParseAddress(cfg.AdminAddress)
	require.NoError(t, err)
	require.Equal(t, byte(0xAD), admin[0])
	escrow, err := ParseAddress(cfg.EscrowAddress)
	require.NoError(t, err)
	require.Equal(t, byte(0xEE), escrow[19])
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, int64(86400), cfg.AuctionDuration)
	require.FileExists(t, path)

	// Defaults deliberately omit the admin and escrow accounts.
	require.Error(t, cfg.Validate())
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `AdminAddress = "0xadadadadadadadadadadadadadadadadadadadad"
EscrowAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "./market-data", cfg.DataDir)
	require.Equal(t, "0", cfg.MintPrice)
	require.Equal(t, 1024, cfg.EventBuffer)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	cfg := &Config{
		RPCAddress:      ":8080",
		DataDir:         "./data",
		AdminAddress:    "not-hex",
		EscrowAddress:   "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		AuctionDuration: 600,
	}
	require.Error(t, cfg.Validate())

	cfg.AdminAddress = "0xadadadadadadadadadadadadadadadadadadadad"
	cfg.EscrowAddress = "0xbeef"
	require.Error(t, cfg.Validate())

	cfg.EscrowAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	cfg.AuctionDuration = 0
	require.Error(t, cfg.Validate())
}
