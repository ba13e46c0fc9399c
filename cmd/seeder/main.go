package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"wallet-fleet-go/internal/config"
	"wallet-fleet-go/internal/engine"
	"wallet-fleet-go/internal/ops"
	"wallet-fleet-go/internal/wallet"
	"wallet-fleet-go/pkg/network"
)

func main() {
	cfg := config.Load()
	engine.InitLogger(cfg.LogLevel, cfg.LogFormat)

	// Seeding fans out from a few funded sources, so the same key may appear
	// on several lines, each paired with a different destination.
	accounts, err := wallet.Load(cfg.WalletFile, wallet.LoadOptions{
		RequireTransfer:    true,
		AllowDuplicateKeys: true,
	})
	if err != nil {
		engine.Logger.Error("WALLET_LOAD_FAILED", "file", cfg.WalletFile, "error", err.Error())
		os.Exit(1)
	}
	if cfg.AmountToSend == nil || cfg.AmountToSend.Sign() <= 0 {
		engine.Logger.Error("CONFIG_MISSING", "key", "AMOUNT_TO_SEND_ETH")
		os.Exit(1)
	}
	if cfg.DistributorAddr == "" {
		engine.Logger.Error("CONFIG_MISSING", "key", "DISTRIBUTOR_ADDRESS")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := network.VerifyEndpoints(ctx, cfg.RPCURLs, cfg.ChainID); err != nil {
		engine.Logger.Error("ENDPOINT_VERIFY_FAILED", "error", err.Error())
		os.Exit(1)
	}

	rt, err := ops.NewRuntime(cfg, accounts)
	if err != nil {
		engine.Logger.Error("RUNTIME_INIT_FAILED", "error", err.Error())
		os.Exit(1)
	}
	defer rt.Close()

	if err := ops.Run(ctx, rt, "seeder", ops.NewSeeder(rt)); err != nil && !errors.Is(err, context.Canceled) {
		engine.Logger.Error("CAMPAIGN_FAILED", "error", err.Error())
		os.Exit(1)
	}
	engine.Logger.Info("SEEDER_EXITING")
}
