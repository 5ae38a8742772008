// order-fill-tracker watches CREATED orders placed against a centralized
// exchange and an on-chain DEX, enriches them with post-trade fill data
// pulled from each venue, and advances them to FILLED.
//
// Architecture: Tailing Reader -> Tailing Buffer -> Dispatcher -> Venue
// Reconciler -> Store Gateway.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coderkp/order-fill-tracker/cex"
	"github.com/coderkp/order-fill-tracker/dex"
	"github.com/coderkp/order-fill-tracker/internal/config"
	"github.com/coderkp/order-fill-tracker/model"
	"github.com/coderkp/order-fill-tracker/reconcile"
	"github.com/coderkp/order-fill-tracker/storage"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("version", version).Msg("order-fill-tracker starting...")

	store, err := storage.New(storage.Config{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		DBName:       cfg.DB.Name,
		SSLMode:      cfg.DB.SSLMode,
		MinOrderSize: cfg.MinOrderSize,
		PageSize:     cfg.FetchPageSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store gateway")
	}

	cexClient := cex.NewClient(cex.ClientConfig{
		BaseURL:    cfg.CEX.BaseURL,
		APIKey:     cfg.CEX.APIKey,
		Secret:     cfg.CEX.Secret,
		Passphrase: cfg.CEX.Passphrase,
		Symbol:     cfg.CEX.Symbol,
	})
	cexCache := cex.NewCache(cexClient, cfg.CEX.Symbol, cfg.CEX.StartEpochMs)
	cexReconciler := cex.NewReconciler(cexCache, store, cfg.CEXAgeGateMs)

	dexClient := dex.NewClient(dex.ClientConfig{
		BaseURL:         cfg.DEX.ExplorerBaseURL,
		APIKey:          cfg.DEX.APIKey,
		ContractAddress: cfg.DEX.TokenContract,
		WalletAddress:   cfg.DEX.Wallet,
	})
	dexCache := dex.NewCache(dexClient, cfg.DEX.StartBlock)
	dexReconciler := dex.NewReconciler(dexCache, dexClient, store, dex.Config{
		Wallet:        cfg.DEX.Wallet,
		BaseToken:     cfg.DEX.BaseToken,
		QuoteToken:    cfg.DEX.QuoteToken,
		BaseDecimals:  cfg.DEX.BaseDecimals,
		QuoteDecimals: cfg.DEX.QuoteDecimals,
	})

	buffer := make(chan model.Order, cfg.BufferCapacity)
	reader := reconcile.NewReader(store, buffer, cfg.PollInterval, time.Time{})
	dispatcher := reconcile.NewDispatcher(buffer, cfg.DispatchBatchSize, cfg.ConcurrencyCap, cexReconciler, dexReconciler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reader.Run(ctx)
	go dispatcher.Run(ctx)

	log.Info().Msg("All services started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	log.Info().Msg("Goodbye")
}
