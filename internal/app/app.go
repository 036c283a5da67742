package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/domain"
	"MarketDigest/internal/infrastructure/collectors"
	"MarketDigest/internal/infrastructure/feeds"
	"MarketDigest/internal/infrastructure/llm"
	"MarketDigest/internal/infrastructure/mailer"
	"MarketDigest/internal/infrastructure/scheduler"
	"MarketDigest/internal/infrastructure/storage"
	"MarketDigest/internal/infrastructure/translate"
	"MarketDigest/internal/logging"
	"MarketDigest/internal/ports"
	"MarketDigest/internal/report"
	"MarketDigest/internal/usecase"
)

// Options selects what a digest run does.
type Options struct {
	News   bool
	Arb    bool
	Days   int
	Mail   bool
	Daemon bool
}

// Application wires config to stores, collectors, pipelines and delivery.
type Application struct {
	cfg         *config.Config
	logger      *slog.Logger
	marketStore *storage.MarketStore
	newsStore   *storage.NewsStore
	news        *usecase.NewsPipeline
	market      *usecase.MarketPipeline
	renderer    *report.Renderer
	notifier    ports.Notifier
}

// New builds a runnable application instance.
func New(cfg *config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	for _, path := range []string{cfg.Storage.MarketDBPath, cfg.Storage.NewsDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}

	marketStore, err := storage.OpenMarketStore(cfg.Storage.MarketDBPath, baseLogger.With("component", "storage.market"))
	if err != nil {
		return nil, err
	}
	newsStore, err := storage.OpenNewsStore(cfg.Storage.NewsDBPath, baseLogger.With("component", "storage.news"))
	if err != nil {
		_ = marketStore.Close()
		return nil, err
	}

	pacer := collector.NewPacer(cfg.Pacing.MinSeconds, cfg.Pacing.MaxSeconds)
	registry := collector.NewRegistry()
	registry.Register(collectors.NewMarketIndices(pacer, baseLogger.With("component", "collector.indices")))
	registry.Register(collectors.NewBOCForex(pacer, baseLogger.With("component", "collector.forex")))
	registry.Register(collectors.NewCommodities(pacer, baseLogger.With("component", "collector.commodities")))
	registry.Register(collectors.NewJisiluLOF(cfg.Strategy.LOF, pacer, baseLogger.With("component", "collector.lof")))
	registry.Register(collectors.NewJisiluQDII(cfg.Strategy.QDII, pacer, baseLogger.With("component", "collector.qdii")))
	registry.Register(collectors.NewJisiluAStock(pacer, baseLogger.With("component", "collector.astock")))
	registry.Register(collectors.NewEastmoneyIssuance(pacer, baseLogger.With("component", "collector.issuance")))
	registry.Register(collectors.NewEastmoneyCbond(cfg.Strategy.Cbond, pacer, baseLogger.With("component", "collector.cbond")))
	registry.Register(collectors.NewSPACArbitrage(cfg.Strategy.SPAC, pacer, baseLogger.With("component", "collector.spac")))
	registry.Register(collectors.NewCEFArbitrage(cfg.Strategy.CEF, cfg.CEF, pacer, baseLogger.With("component", "collector.cef")))

	source := feeds.NewRSSSource(cfg.News.Feeds, baseLogger.With("component", "feeds"))

	var enricher ports.Enricher
	if cfg.Gemini.APIKey != "" {
		enricher = llm.NewGeminiClient(cfg.Gemini, cfg.News.Categories, baseLogger.With("component", "llm"))
	} else {
		enricher = translate.NewClient(cfg.Translate.Endpoint, cfg.News.TargetLanguage, baseLogger.With("component", "translate"))
	}

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		marketStore: marketStore,
		newsStore:   newsStore,
		news:        usecase.NewNewsPipeline(source, enricher, newsStore, cfg.News, baseLogger.With("component", "pipeline.news")),
		market:      usecase.NewMarketPipeline(registry, marketStore, baseLogger.With("component", "pipeline.market")),
		renderer:    report.NewRenderer(marketStore, cfg.Strategy, cfg.Storage.OutputDir, baseLogger.With("component", "report")),
		notifier:    mailer.New(cfg.Mail, baseLogger.With("component", "mailer")),
	}, nil
}

// Close releases both stores.
func (a *Application) Close() error {
	errMarket := a.marketStore.Close()
	errNews := a.newsStore.Close()
	if errMarket != nil {
		return errMarket
	}
	return errNews
}

// Run executes the digest once, or repeatedly when daemon mode is on.
func (a *Application) Run(ctx context.Context, opts Options) error {
	if !opts.Daemon {
		return a.runOnce(ctx, opts)
	}

	sched := scheduler.New(a.cfg.Scheduler.Interval(), a.logger.With("component", "scheduler"))
	err := sched.Start(ctx, func(t time.Time) {
		a.logger.Info("scheduled run starting", "at", t.In(a.cfg.Scheduler.Location()))
		if err := a.runOnce(ctx, opts); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

func (a *Application) runOnce(ctx context.Context, opts Options) error {
	var sections []domain.CategorySection

	if opts.News {
		var err error
		sections, err = a.news.Run(ctx, opts.Days)
		if err != nil {
			a.logger.Error("news pipeline failed", "error", err)
		}
	}
	if opts.Arb {
		a.market.Run(ctx)
	}

	path, err := a.renderer.Write(ctx, sections, opts.Arb)
	if err != nil {
		return err
	}

	if opts.Mail {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read report for mail: %w", err)
		}
		subject := fmt.Sprintf("Daily Arbitrage Report - %s", filepath.Base(path))
		if err := a.notifier.SendReport(ctx, subject, string(body)); err != nil {
			a.logger.Error("mail delivery failed", "error", err)
		}
	}
	return nil
}
