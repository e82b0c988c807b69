package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"go-candleprep/internal/common"
	"go-candleprep/internal/config"
	"go-candleprep/internal/service"
	"go-candleprep/internal/util"
)

func main() {
	configPath := flag.String("config", common.DefaultConfigPath, "Path to config file")
	assumeYes := flag.Bool("yes", false, "Do not wait for Enter before printing the table")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("error_code", common.ErrCodeConfigLoadFailed.String()).
			Str("error_message", common.ErrMsgConfigLoadFailed.String()).
			Msg("Failed to load config")
	}
	if *assumeYes {
		cfg.Interactive = false
	}

	if err := util.SetupLogging(cfg.LogLevel, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("Invalid log level in config")
	}
	logger := util.NewLogger("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Interrupted, stopping...")
		cancel()
	}()

	logger.Info("Preparing candles", "symbol", cfg.Symbol, "timeframe", cfg.Timeframe)
	res, err := service.NewService(cfg).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Preparation failed")
	}
	logger.Info("Done", "rows", res.Frame.Len(), "train", len(res.Train), "test", len(res.Test), "chart", res.ChartPath)
}
