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

	accounts, err := wallet.Load(cfg.WalletFile, wallet.LoadOptions{RequireTransfer: true})
	if err != nil {
		engine.Logger.Error("WALLET_LOAD_FAILED", "file", cfg.WalletFile, "error", err.Error())
		os.Exit(1)
	}
	if cfg.TokenAddr == "" {
		engine.Logger.Error("CONFIG_MISSING", "key", "TOKEN_ADDRESS")
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

	if err := ops.Run(ctx, rt, "transferer", ops.NewTransferer(rt)); err != nil && !errors.Is(err, context.Canceled) {
		engine.Logger.Error("CAMPAIGN_FAILED", "error", err.Error())
		os.Exit(1)
	}
	engine.Logger.Info("TRANSFERER_EXITING")
}
