package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/form-extractor/internal/cache"
	"github.com/joseph-ayodele/form-extractor/internal/common"
	"github.com/joseph-ayodele/form-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/form-extractor/internal/ner"
	"github.com/joseph-ayodele/form-extractor/internal/pipeline"
	"github.com/joseph-ayodele/form-extractor/internal/poller"
	"github.com/joseph-ayodele/form-extractor/internal/recognition"
	"github.com/joseph-ayodele/form-extractor/internal/recognition/replay"
	"github.com/joseph-ayodele/form-extractor/internal/recognition/textract"
	"github.com/joseph-ayodele/form-extractor/internal/repository"
	"github.com/joseph-ayodele/form-extractor/internal/resolver"
	"github.com/joseph-ayodele/form-extractor/internal/storage"
	"github.com/joseph-ayodele/form-extractor/internal/telemetry"
)

// App holds every component a binary needs, wired from Config.
type App struct {
	Config       *common.Config
	Logger       *slog.Logger
	AWS          *aws.Config
	DB           *repository.DB
	Jobs         repository.ExtractJobRepository
	Store        storage.Store
	Recognition  recognition.Client
	Orchestrator *pipeline.Orchestrator

	closers []func()
}

// Build connects the ledger, object store, recognition backend and entity
// recognizer, then assembles the orchestrator.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger}

	if err := app.setupTracing(ctx); err != nil {
		return nil, err
	}

	if needsAWS(cfg) {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		app.AWS = &awsCfg
	}

	if err := app.openLedger(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openRecognition(ctx); err != nil {
		app.Close()
		return nil, err
	}

	recognizer, err := app.recognizer()
	if err != nil {
		app.Close()
		return nil, err
	}

	p := poller.New(app.Recognition,
		poller.WithInterval(cfg.Recognition.PollInterval),
		poller.WithMaxWait(cfg.Recognition.MaxWait),
		poller.WithLogger(logger),
	)
	r := resolver.New(resolver.WithSeparator(cfg.Recognition.TokenSeparator), resolver.WithLogger(logger))
	x := ner.NewExtractor(recognizer, logger)

	app.Orchestrator = pipeline.New(p, r, x,
		pipeline.WithJobs(app.Jobs),
		pipeline.WithPolling(cfg.Recognition.PollInterval, cfg.Recognition.MaxWait),
		pipeline.WithLogger(logger),
	)

	logger.Info("bootstrap.ok",
		"recognition", cfg.Recognition.Backend,
		"storage", cfg.Storage.Type,
		"cache", cfg.Cache.Backend,
		"ner", cfg.NER.Backend,
		"ledger", app.DB.Dialect,
	)
	return app, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// setupTracing registers its shutdown first so spans recorded while the
// other closers run are still flushed.
func (a *App) setupTracing(ctx context.Context) error {
	if !a.Config.Telemetry.Enabled {
		return nil
	}
	tp, err := telemetry.SetupTracer(ctx, a.Config.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("setup tracer: %w", err)
	}
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			a.Logger.Warn("telemetry.shutdown.failed", "error", err)
		}
	})
	a.Logger.Info("telemetry.tracer.ok", "service", a.Config.Telemetry.ServiceName)
	return nil
}

func needsAWS(cfg *common.Config) bool {
	return cfg.Recognition.Backend == "textract" ||
		(cfg.Storage.Type == "s3" && cfg.Storage.Bucket != "") ||
		cfg.Queue.InputURL != ""
}

func (a *App) openLedger(ctx context.Context) error {
	db, err := repository.Open(ctx, repository.Config{
		DSN:             a.Config.Database.DSN,
		MaxConns:        a.Config.Database.MaxConns,
		MinConns:        a.Config.Database.MinConns,
		MaxConnLifetime: a.Config.Database.MaxConnLifetime,
		MaxConnIdleTime: a.Config.Database.MaxConnIdleTime,
		DialTimeout:     a.Config.Database.DialTimeout,
	}, a.Logger)
	if err != nil {
		return common.WrapError(err, "open ledger")
	}
	a.closers = append(a.closers, func() { db.Close(a.Logger) })

	if err := db.HealthCheck(ctx, 5*time.Second, a.Logger); err != nil {
		return common.WrapError(err, "ledger health")
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	a.DB = db
	a.Jobs = repository.NewExtractJobRepository(db.SQL, a.Logger)
	return nil
}

// openStore leaves Store nil when no bucket is configured; only the
// textract backend and the queue worker require one.
func (a *App) openStore(ctx context.Context) error {
	sc := a.Config.Storage
	switch sc.Type {
	case "minio":
		if sc.Bucket == "" {
			return nil
		}
		ms, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			UseSSL:    sc.UseSSL,
			Region:    a.Config.AWS.Region,
			Bucket:    sc.Bucket,
		}, a.Logger)
		if err != nil {
			return err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return err
		}
		a.Store = ms
	case "s3":
		if sc.Bucket == "" {
			return nil
		}
		a.Store = storage.NewS3Store(s3.NewFromConfig(*a.AWS), sc.Bucket, a.Logger)
	default:
		return common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown storage type %q", sc.Type), common.ErrInvalidInput)
	}
	return nil
}

func (a *App) openRecognition(ctx context.Context) error {
	rc := a.Config.Recognition

	var base recognition.Client
	switch rc.Backend {
	case "textract":
		c, err := textract.New(awstextract.NewFromConfig(*a.AWS), a.Store,
			textract.WithPrefix(a.Config.Storage.Prefix),
			textract.WithLogger(a.Logger),
		)
		if err != nil {
			return err
		}
		base = c
	case "replay":
		c, err := replay.New(rc.ReplayDir, a.Logger)
		if err != nil {
			return err
		}
		base = c
	default:
		return common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown recognition backend %q", rc.Backend), common.ErrInvalidInput)
	}

	client := recognition.NewObserved(rc.Backend, base)
	if rc.RateLimitTPS > 0 {
		client = recognition.NewLimited(rate.NewLimiter(rate.Limit(rc.RateLimitTPS), max(rc.RateLimitBurst, 1)), client)
	}

	store, err := a.resultCache(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		client = recognition.NewCached(store, a.Config.Cache.TTL, client, a.Logger)
	}

	a.Recognition = client
	return nil
}

func (a *App) resultCache(ctx context.Context) (cache.Cache, error) {
	cc := a.Config.Cache
	switch cc.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemory(cc.TTL), nil
	case "redis":
		rc, err := cache.NewRedis(ctx, cc.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		return rc, nil
	default:
		return nil, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown cache backend %q", cc.Backend), common.ErrInvalidInput)
	}
}

func (a *App) recognizer() (ner.Recognizer, error) {
	switch a.Config.NER.Backend {
	case "", "prose":
		return ner.NewProseRecognizer(), nil
	case "openai":
		lc := a.Config.LLM
		return openai.NewClient(openai.Config{
			APIKey:      lc.APIKey,
			BaseURL:     lc.BaseURL,
			Model:       lc.Model,
			Temperature: lc.Temperature,
			Timeout:     lc.Timeout,
		}, a.Logger), nil
	default:
		return nil, common.NewAppError("INVALID_INPUT", fmt.Sprintf("unknown ner backend %q", a.Config.NER.Backend), common.ErrInvalidInput)
	}
}
