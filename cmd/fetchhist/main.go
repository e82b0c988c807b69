package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go-candleprep/internal/cache"
	"go-candleprep/internal/common"
	"go-candleprep/internal/config"
	"go-candleprep/internal/exchanges"
	"go-candleprep/internal/util"
)

// fetchhist downloads Binance kline history into the cache file the pipeline reads.
func main() {
	configPath := flag.String("config", common.DefaultConfigPath, "Path to config file")
	symbol := flag.String("symbol", "", "Trading pair, e.g. ATOMUSDT (overrides config)")
	timeframe := flag.String("timeframe", "", "Kline interval, e.g. 15m (overrides config)")
	market := flag.String("market", "", "spot, um or cm (overrides config)")
	bulk := flag.String("bulk", "", "monthly or daily (overrides config)")
	start := flag.String("start", "", "First day, YYYY-MM-DD (overrides config)")
	end := flag.String("end", "", "Day after the last one, YYYY-MM-DD (overrides config)")
	out := flag.String("out", "", "Output CSV (default: the pipeline's cache path)")
	quiet := flag.Bool("quiet", false, "Hide the progress bar")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("error_code", common.ErrCodeConfigLoadFailed.String()).
			Str("error_message", common.ErrMsgConfigLoadFailed.String()).
			Msg("Failed to load config")
	}
	override(&cfg.Symbol, *symbol)
	override(&cfg.Timeframe, *timeframe)
	override(&cfg.MarketType, *market)
	override(&cfg.BulkSize, *bulk)
	override(&cfg.StartDate, *start)
	override(&cfg.EndDate, *end)
	if err := cfg.Validate(); err != nil {
		log.Fatal().
			Err(err).
			Str("error_code", common.ErrCodeConfigLoadFailed.String()).
			Str("error_message", common.ErrMsgConfigLoadFailed.String()).
			Msg("Invalid flags")
	}

	if err := util.SetupLogging(cfg.LogLevel, os.Stderr); err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("Invalid log level in config")
	}
	logger := util.NewLogger("fetchhist")

	dst := *out
	if dst == "" {
		dst = cache.Path(cfg.DataDir, cfg.Symbol, cfg.Timeframe)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var ex exchanges.Exchange = exchanges.NewBinance(cfg.ArchiveBaseURL, exchanges.WithProgress(!*quiet))
	req := exchanges.HistoryRequest{
		MarketType: cfg.MarketType,
		BulkSize:   cfg.BulkSize,
		Symbol:     cfg.Symbol,
		Timeframe:  cfg.Timeframe,
		Start:      cfg.Start(),
		End:        cfg.End(time.Now()),
	}
	n, err := ex.DownloadHistory(ctx, req, dst)
	if err != nil {
		if errors.Is(err, exchanges.ErrArchiveMalformed) {
			logger.Error(err, common.ErrCodeArchiveReadFailed, common.ErrMsgArchiveReadFailed, "Archive unreadable", "exchange", ex.Name())
		} else {
			logger.Error(err, common.ErrCodeHistoryDownloadFailed, common.ErrMsgHistoryDownloadFailed, "Download failed", "exchange", ex.Name())
		}
		os.Exit(1)
	}
	logger.Info("History saved", "path", dst, "rows", n)
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}
