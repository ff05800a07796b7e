package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"pet-triage-backend/internal/parser"
	"pet-triage-backend/internal/records"
	"pet-triage-backend/internal/report"
	"pet-triage-backend/internal/services/health"
	"pet-triage-backend/internal/shared/auth"
	"pet-triage-backend/internal/shared/config"
	"pet-triage-backend/internal/shared/server"
	"pet-triage-backend/internal/shared/server/middleware"
	"pet-triage-backend/internal/shared/storage/db"
	"pet-triage-backend/internal/shared/storage/object"
	localstore "pet-triage-backend/internal/shared/storage/object/local"
	miniostore "pet-triage-backend/internal/shared/storage/object/minio"
	s3store "pet-triage-backend/internal/shared/storage/object/s3"
	"pet-triage-backend/internal/shared/telemetry"
	"pet-triage-backend/internal/triage"
	"pet-triage-backend/internal/vision"
)

// App holds shared dependencies.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.ObjectStore
	RecordsRepo    records.Repo
	Vision         *vision.Client
	Parser         *parser.Parser
	Reports        *report.Generator
	Triage         *triage.Service
	Records        *records.Service
	Health         *health.Service
	Verifier       *auth.Verifier
	TriageHandler  *triage.Handler
	RecordsHandler *records.Handler
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pipe, err := BuildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.Env)
	if err != nil {
		return nil, err
	}

	var repo records.Repo
	if sqlDB != nil {
		repo = &records.PGRepo{DB: sqlDB}
	} else {
		repo = records.NewMemoryRepo()
	}

	pipeline := pipe.Service(store, repo)
	recordsSvc := records.NewService(repo)

	app := &App{
		Config:         cfg,
		DB:             sqlDB,
		Store:          store,
		RecordsRepo:    repo,
		Vision:         pipe.Vision,
		Parser:         pipe.Parser,
		Reports:        pipe.Reports,
		Triage:         pipeline,
		Records:        recordsSvc,
		Health:         health.NewService(credentials(cfg, pipe.Vision.Backend())),
		Verifier:       verifier,
		TriageHandler:  triage.NewHandler(pipeline),
		RecordsHandler: records.NewHandler(recordsSvc, store),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Verifier:       verifier,
		Health:         app.Health,
		TriageHandler:  app.TriageHandler,
		RecordsHandler: app.RecordsHandler,
		Limiter:        middleware.NewRateLimiter(nil),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":             cfg.Env,
		"object_store":    cfg.ObjectStoreType,
		"database":        sqlDB != nil,
		"vision_backend":  string(app.Vision.Backend()),
		"vision_ready":    app.Vision.Configured(),
		"report_backend":  app.Reports.Configured(),
		"parser_strategy": app.Parser.StrategyName(),
	})
	return app, nil
}

// Pipeline holds the credentialed pipeline components.
type Pipeline struct {
	Vision  *vision.Client
	Parser  *parser.Parser
	Reports *report.Generator
}

// BuildPipeline wires the vision client, parser and report generator from
// configuration. The backend is chosen here once.
func BuildPipeline(cfg config.Config) (Pipeline, error) {
	backend, err := vision.ParseBackend(cfg.Vision.Backend, cfg.Vision.Endpoint)
	if err != nil {
		return Pipeline{}, err
	}
	client, err := vision.New(vision.Config{
		Backend:  backend,
		Endpoint: cfg.Vision.Endpoint,
		APIKey:   cfg.Vision.APIKey,
		Model:    cfg.Vision.Model,
		Prompt:   vision.PromptFor(cfg.ParserStrategy),
		Timeout:  cfg.Vision.Timeout,
	})
	if err != nil {
		return Pipeline{}, err
	}

	strategy, err := parser.NewStrategy(cfg.ParserStrategy)
	if err != nil {
		return Pipeline{}, err
	}

	gen := &report.Generator{Language: report.Language(cfg.Report.Language), Timeout: cfg.Report.Timeout}
	if strings.TrimSpace(cfg.Report.APIKey) != "" {
		completer, err := report.NewOpenAICompleter(cfg.Report.APIKey, cfg.Report.BaseURL, cfg.Report.Model, cfg.Report.Timeout)
		if err != nil {
			return Pipeline{}, err
		}
		gen.Completer = completer
	}

	return Pipeline{Vision: client, Parser: parser.New(strategy, nil), Reports: gen}, nil
}

// Service assembles the orchestrator. A nil store or repo is only valid
// for Evaluate.
func (p Pipeline) Service(store object.ObjectStore, repo records.Repo) *triage.Service {
	return &triage.Service{
		Vision:  p.Vision,
		Parser:  p.Parser,
		Reports: p.Reports,
		Store:   store,
		Repo:    repo,
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
	}
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database unavailable", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			UseSSL:    cfg.Minio.UseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func credentials(cfg config.Config, backend vision.Backend) health.Credentials {
	return health.Credentials{
		VisionBackend:  string(backend),
		VisionEndpoint: cfg.Vision.Endpoint,
		VisionAPIKey:   cfg.Vision.APIKey,
		ReportAPIKey:   cfg.Report.APIKey,
		DatabaseURL:    cfg.DatabaseURL,
		JWTSecret:      cfg.JWTSecret,
	}
}
