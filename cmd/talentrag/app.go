package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/talentrag/internal/config"
	"github.com/kailas-cloud/talentrag/internal/db"
	dbRedis "github.com/kailas-cloud/talentrag/internal/db/redis"
	dbValkey "github.com/kailas-cloud/talentrag/internal/db/valkey"
	"github.com/kailas-cloud/talentrag/internal/domain"
	logpkg "github.com/kailas-cloud/talentrag/internal/logger"
	"github.com/kailas-cloud/talentrag/internal/metrics"
	budgetrepo "github.com/kailas-cloud/talentrag/internal/repository/budget"
	"github.com/kailas-cloud/talentrag/internal/repository/embcache"
	"github.com/kailas-cloud/talentrag/internal/repository/memindex"
	"github.com/kailas-cloud/talentrag/internal/repository/vectorindex"
	chiTransport "github.com/kailas-cloud/talentrag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/talentrag/internal/transport/openai"
	"github.com/kailas-cloud/talentrag/internal/usecase/corpus"
	embeddinguc "github.com/kailas-cloud/talentrag/internal/usecase/embedding"
	"github.com/kailas-cloud/talentrag/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/talentrag/internal/usecase/health"
	"github.com/kailas-cloud/talentrag/internal/usecase/pipeline"
	"github.com/kailas-cloud/talentrag/internal/usecase/session"
	"github.com/kailas-cloud/talentrag/internal/usecase/summarize"
	usageuc "github.com/kailas-cloud/talentrag/internal/usecase/usage"
	"github.com/kailas-cloud/talentrag/internal/version"
)

// app is the composition root shared by all commands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    db.Store // nil for the memory driver
	pipeline *pipeline.Service
	loop     *session.Loop
	health   *healthuc.Service
	usage    *usageuc.Service
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting talentrag",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("mode", cfg.Pipeline.Mode),
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("index", cfg.Index.Name),
	)

	// Register collectors explicitly (no init())
	metrics.Register()

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, health: healthuc.New()}

	var index pipeline.Index
	switch cfg.Index.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.store = store
		logger.Info("Connected to index store",
			zap.String("driver", cfg.Index.Driver),
			zap.Strings("addrs", cfg.Index.Addrs),
		)

		index = vectorindex.New(store, vectorindex.Options{
			Name:            cfg.Index.Name,
			KeyPrefix:       cfg.Index.KeyPrefix,
			BatchSize:       cfg.Index.BatchSize,
			HNSWM:           cfg.Index.HNSWM,
			HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
		}, metrics.IndexOperationsTotal, logger)
		a.health.With("index", healthuc.CheckerFunc(store.Ping))
	case config.DriverMemory:
		index = memindex.New()
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}

	// Embedder chain: OpenAI -> Cached -> Instrumented
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		BatchSize:  cfg.OpenAI.BatchSize,
		Provider:   cfg.OpenAI.Provider,
		Logger:     logger,
	})
	a.health.With("embedding", base)

	var embedder domain.Embedder = base
	if cfg.Index.CacheEmbeddings && a.store != nil {
		embedder = embcache.New(base, a.store, embcache.Options{
			KeyPrefix: cfg.Index.KeyPrefix + "emb_cache:",
			Model:     cfg.OpenAI.EmbeddingModel,
			TTL:       time.Duration(cfg.Index.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// One tracker feeds both the embedder gate and the usage report.
	var budget *embeddinguc.BudgetTracker
	if b := cfg.OpenAI.Budget; b.Enabled() {
		budget = embeddinguc.NewBudgetTracker(
			cfg.OpenAI.Provider, cfg.Index.KeyPrefix, b.DailyTokenLimit, b.MonthlyTokenLimit,
			embeddinguc.BudgetAction(b.Action), logger,
		)
		if a.store != nil {
			budget.WithStore(ctx, budgetrepo.New(a.store, budgetrepo.Options{}))
		}
	}

	// Pass nil interfaces, not typed nil pointers, when no budget is configured.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.OpenAI.Provider, cfg.OpenAI.EmbeddingModel, budgetChecker, logger,
	)
	a.usage = usageuc.New(budgetReader, usageuc.Options{
		Provider:             cfg.OpenAI.Provider,
		Model:                cfg.OpenAI.EmbeddingModel,
		CostPerMillionTokens: cfg.OpenAI.Budget.CostPerMillionTokens,
	})

	chat := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.ChatModel,
		Provider: cfg.OpenAI.Provider,
		Logger:   logger,
	})

	// Pass a nil interface, not a typed nil pointer, in single mode.
	var extractor pipeline.Extractor
	if cfg.Pipeline.Mode == config.ModeCategory {
		ex, err := extract.New(chat, cfg.OpenAI.ExtractionModel, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create extractor: %w", err)
		}
		extractor = ex
	}

	loader := corpus.New(corpus.Options{
		TextColumn: cfg.Corpus.TextColumn,
		Columns:    cfg.Corpus.Columns,
		Fraction:   cfg.Corpus.Fraction,
		Seed:       cfg.Corpus.Seed,
	}, logger)

	p, err := pipeline.New(loader, embedder, extractor, index, pipeline.Options{
		Mode:          cfg.Pipeline.Mode,
		CorpusPath:    cfg.Corpus.Path,
		Dimensions:    cfg.OpenAI.Dimensions,
		TopK:          cfg.Pipeline.TopK,
		Threshold:     cfg.Pipeline.Threshold,
		MaxCandidates: cfg.Pipeline.MaxCandidates,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	a.pipeline = p

	var trunc summarize.Truncator
	if cfg.Summary.CandidateMaxTokens > 0 {
		trunc = summarize.NewTruncator(logger)
	}
	sum := summarize.New(chat, trunc, summarize.Options{
		Model:              cfg.OpenAI.ChatModel,
		MaxTokens:          cfg.Summary.MaxTokens,
		CandidateMaxTokens: cfg.Summary.CandidateMaxTokens,
		HistoryTurns:       cfg.Summary.HistoryTurns,
	}, logger)

	a.loop = session.New(p, sum, session.Options{
		FollowUpSuffix: cfg.Pipeline.FollowUpSuffix,
	}, logger)

	return a, nil
}

// openStore connects to Redis or Valkey and waits until it answers.
func openStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	connCfg := dbRedis.Config{
		Addrs:    cfg.Index.Addrs,
		Password: cfg.Index.Password,
	}

	var (
		store db.Store
		err   error
	)
	switch cfg.Index.Driver {
	case config.DriverValkey:
		store, err = dbValkey.NewStore(connCfg)
	default:
		store, err = dbRedis.NewStore(connCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("create index store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Index.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return store, nil
}

// ingest builds the index. Any failure is fatal for the run.
func (a *app) ingest(ctx context.Context, out io.Writer) error {
	report, err := a.pipeline.Ingest(ctx)
	if err != nil {
		a.logger.Error("Ingestion failed", zap.Error(err))
		return fmt.Errorf("ingest: %w", err)
	}
	fmt.Fprintf(out, "Indexed %d documents as %d records into %q.\n", report.Documents, report.Records, a.cfg.Index.Name)
	return nil
}

func (a *app) attach(ctx context.Context) error {
	if err := a.pipeline.Attach(ctx); err != nil {
		return fmt.Errorf("attach to index %q: %w", a.cfg.Index.Name, err)
	}
	return nil
}

// serve runs the admin server, when configured, alongside the interactive loop.
func (a *app) serve(cmd *cobra.Command, initial string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		router := chiTransport.NewAdminRouter(a.health, a.usage, a.cfg.Metrics.APIKeys, a.logger)
		srv := chiTransport.NewAdminServer(addr, router, a.logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				a.logger.Error("Admin server error", zap.Error(err))
			}
		}()
	}

	err := a.loop.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), initial)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("Interrupted")
		return nil
	}
	return err
}

// Close releases the store connection and flushes logs.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}
