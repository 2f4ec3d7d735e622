package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kabradhruv/triarb-scanner/internal/config"
	"github.com/kabradhruv/triarb-scanner/internal/connectors/cex/binance"
	"github.com/kabradhruv/triarb-scanner/internal/connectors/redisfeed"
	"github.com/kabradhruv/triarb-scanner/internal/metrics"
	"github.com/kabradhruv/triarb-scanner/internal/scanner"
	"github.com/kabradhruv/triarb-scanner/internal/sourcelist"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// источники загружаются один раз; без них процесс бессмысленен
	urls, err := sourcelist.Load(cfg.Scraper.URLFile)
	if err != nil {
		logger.Fatal("failed to load source url list", zap.Error(err))
	}
	logger.Info("loaded source urls", zap.Int("count", len(urls)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	provider, err := binance.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize binance client", zap.Error(err))
	}

	var feed scanner.Feed
	if cfg.Redis.Addr != "" {
		pub := redisfeed.NewPublisher(cfg)
		defer pub.Close()
		feed = pub
		logger.Info("redis feed enabled", zap.String("addr", cfg.Redis.Addr), zap.String("stream", cfg.Redis.Stream))
	}

	s := scanner.New(cfg, logger, urls, provider, feed)
	s.Run(ctx)
}
