package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"nftmarket/config"
	"nftmarket/core/events"
	"nftmarket/ledger"
	"nftmarket/native/market"
	"nftmarket/observability/logging"
	"nftmarket/observability/metrics"
	"nftmarket/rpc"
	"nftmarket/storage"
	"nftmarket/storage/marketstore"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	logger := logging.Setup("marketd", cfg.LogLevel, cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	admin, err := config.ParseAddress(cfg.AdminAddress)
	if err != nil {
		logger.Error("Invalid admin address", slog.Any("error", err))
		os.Exit(1)
	}
	escrow, err := config.ParseAddress(cfg.EscrowAddress)
	if err != nil {
		logger.Error("Invalid escrow address", slog.Any("error", err))
		os.Exit(1)
	}
	params, err := parseParams(cfg)
	if err != nil {
		logger.Error("Invalid marketplace parameters", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	store := marketstore.New(db)
	memory := events.NewMemory(cfg.EventBuffer)
	emitter := metrics.NewEmitter(memory, metrics.Market())

	engine := market.NewEngine()
	engine.SetState(store)
	engine.SetAdmin(admin)
	engine.SetEscrowAccount(escrow)
	if err := engine.SetRegistry(admin, ledger.NewRegistry()); err != nil {
		logger.Error("Failed to configure ownership registry", slog.Any("error", err))
		os.Exit(1)
	}
	if err := engine.SetCurrency(admin, ledger.NewCurrency(escrow)); err != nil {
		logger.Error("Failed to configure currency ledger", slog.Any("error", err))
		os.Exit(1)
	}
	engine.SetEmitter(emitter)
	if err := engine.SeedParams(params); err != nil {
		logger.Error("Failed to seed marketplace parameters", slog.Any("error", err))
		os.Exit(1)
	}

	module := rpc.NewMarketModule(engine, store, memory)
	server := rpc.NewServer(module, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("marketd listening", slog.String("addr", cfg.RPCAddress), slog.String("dataDir", cfg.DataDir))
	if err := server.Serve(ctx, cfg.RPCAddress); err != nil {
		logger.Error("RPC server terminated", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("marketd shut down")
}

func parseParams(cfg *config.Config) (*market.Params, error) {
	mintPrice, ok := new(big.Int).SetString(cfg.MintPrice, 10)
	if !ok {
		return nil, fmt.Errorf("invalid MintPrice %q", cfg.MintPrice)
	}
	minBid, ok := new(big.Int).SetString(cfg.MinBidAmount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid MinBidAmount %q", cfg.MinBidAmount)
	}
	return &market.Params{
		MintPrice:       mintPrice,
		AuctionDuration: cfg.AuctionDuration,
		MinBidAmount:    minBid,
	}, nil
}
