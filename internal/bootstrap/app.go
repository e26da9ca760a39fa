package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	githubauth "docuflow/internal/auth"
	"docuflow/internal/documents"
	"docuflow/internal/extract"
	"docuflow/internal/institutions"
	"docuflow/internal/intake"
	"docuflow/internal/jobs"
	"docuflow/internal/members"
	"docuflow/internal/pipeline"
	"docuflow/internal/queue"
	"docuflow/internal/receipts"
	"docuflow/internal/seed"
	"docuflow/internal/services/health"
	sharedauth "docuflow/internal/shared/auth"
	"docuflow/internal/shared/cache"
	rediscache "docuflow/internal/shared/cache/redis"
	"docuflow/internal/shared/config"
	"docuflow/internal/shared/server"
	"docuflow/internal/shared/server/middleware"
	"docuflow/internal/shared/storage/db"
	"docuflow/internal/shared/storage/object"
	localstore "docuflow/internal/shared/storage/object/local"
	miniostore "docuflow/internal/shared/storage/object/minio"
	s3store "docuflow/internal/shared/storage/object/s3"
	"docuflow/internal/shared/telemetry"
	"docuflow/internal/systemconfig"
	"docuflow/internal/uploads"
	"docuflow/internal/users"
	"docuflow/internal/workerproc"
)

// Role selects the connection pool profile of the process being built.
type Role int

const (
	RoleAPI Role = iota
	RoleWorker
	RoleCLI
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	// Cache and Signals share one backend: redis when REDIS_URL is set,
	// process memory otherwise. SQS_QUEUE_URL moves Signals to SQS.
	Cache   cache.Cache
	Signals cache.Signals
	Signer  *sharedauth.Signer

	InstitutionsService *institutions.Service
	MembersService      *members.Service
	DocumentsService    *documents.Service
	ReceiptsService     *receipts.Service
	JobsService         *jobs.Service
	SystemConfigService *systemconfig.Service
	UsersService        *users.Service
	HealthService       *health.Service
	Intake              *intake.Processor
	Stages              *pipeline.Stages
	Worker              *workerproc.Worker
	Seeder              *seed.Seeder

	closers []io.Closer
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config, role Role) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	app := &App{Config: cfg}
	sqlDB, err := buildDB(ctx, cfg, role)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.closers = append(app.closers, sqlDB)
	}

	if app.Store, err = buildStore(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildCache(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildSignals(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if app.Signer, err = sharedauth.NewSigner(cfg.JWTSecret, cfg.Env, 0); err != nil {
		app.Close()
		return nil, err
	}

	app.buildServices()
	app.Router = app.buildRouter()
	return app, nil
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, role Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var opts db.Options
	switch role {
	case RoleWorker:
		opts = db.DefaultWorkerOptions(cfg.WorkerConcurrency)
	case RoleCLI:
		opts = db.DefaultCLIOptions()
	default:
		opts = db.DefaultServerOptions()
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		return miniostore.New(ctx, miniostore.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildCache(ctx context.Context) error {
	if strings.TrimSpace(a.Config.RedisURL) == "" {
		mem := cache.NewMemory()
		a.Cache, a.Signals = mem, mem
		return nil
	}
	store, err := rediscache.NewStoreFromURL(ctx, a.Config.RedisURL)
	if err != nil {
		if a.Config.IsDevLike() {
			telemetry.Warn("bootstrap.memory_cache", map[string]any{"error": err.Error()})
			mem := cache.NewMemory()
			a.Cache, a.Signals = mem, mem
			return nil
		}
		return fmt.Errorf("connect redis: %w", err)
	}
	a.Cache, a.Signals = store, store
	a.closers = append(a.closers, store)
	return nil
}

func (a *App) buildSignals(ctx context.Context) error {
	if strings.TrimSpace(a.Config.SQSQueueURL) == "" {
		return nil
	}
	signals, err := queue.NewSQSSignals(ctx, a.Config.AWSRegion, a.Config.SQSQueueURL)
	if err != nil {
		return fmt.Errorf("sqs signals: %w", err)
	}
	a.Signals = signals
	return nil
}

func (a *App) buildServices() {
	cfg := a.Config

	var (
		instRepo   institutions.Repo
		memberRepo members.Repo
		docRepo    documents.Repo
		rcptRepo   receipts.Repo
		jobRepo    jobs.Repo
		sysRepo    systemconfig.Repo
		userRepo   users.Repo
	)
	if a.DB != nil {
		instRepo = &institutions.PGRepo{DB: a.DB}
		memberRepo = &members.PGRepo{DB: a.DB}
		docRepo = &documents.PGRepo{DB: a.DB}
		rcptRepo = &receipts.PGRepo{DB: a.DB}
		jobRepo = &jobs.PGRepo{DB: a.DB}
		sysRepo = &systemconfig.PGRepo{DB: a.DB}
		userRepo = &users.PGRepo{DB: a.DB}
	} else {
		instRepo = institutions.NewMemoryRepo()
		memberRepo = members.NewMemoryRepo()
		memDocs := documents.NewMemoryRepo()
		docRepo = memDocs
		rcptRepo = receipts.NewMemoryRepo()
		memJobs := jobs.NewMemoryRepo()
		memJobs.Documents = documentRefs(memDocs)
		jobRepo = memJobs
		sysRepo = systemconfig.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	a.JobsService = &jobs.Service{Repo: jobRepo, Signals: a.Signals}
	a.ReceiptsService = &receipts.Service{Repo: rcptRepo}
	a.InstitutionsService = &institutions.Service{
		Repo:      instRepo,
		Members:   memberRepo,
		Documents: docRepo,
	}
	a.MembersService = &members.Service{
		Repo:         memberRepo,
		Institutions: institutionLookup{repo: instRepo},
		Documents:    docRepo,
	}
	a.DocumentsService = &documents.Service{
		Repo:    docRepo,
		Store:   a.Store,
		Members: memberLookup{repo: memberRepo},
		Jobs:    jobLister{svc: a.JobsService},
		Records: a.ReceiptsService,
	}
	a.SystemConfigService = &systemconfig.Service{
		Repo:  sysRepo,
		Cache: a.Cache,
		TTL:   cfg.SystemConfigCacheTTL,
	}
	a.UsersService = users.NewService(userRepo)
	a.HealthService = health.NewService(a.DB)

	a.Intake = &intake.Processor{
		Documents: a.DocumentsService,
		Receipts:  a.ReceiptsService,
		Extractor: extract.New(&extract.TesseractOCR{
			Path:    cfg.TesseractPath,
			Lang:    cfg.OCRLang,
			Timeout: cfg.OCRTimeout,
		}),
	}
	a.Stages = &pipeline.Stages{
		Documents:    a.DocumentsService,
		Receipts:     a.ReceiptsService,
		Intake:       a.Intake,
		Store:        a.Store,
		ExportPrefix: cfg.ExportPrefix,
		MaxAttempts:  cfg.JobMaxAttempts,
	}
	a.Worker = &workerproc.Worker{
		Jobs:    a.JobsService,
		Handler: a.Stages,
		Signals: a.Signals,
		Opts: workerproc.Options{
			Concurrency:     cfg.WorkerConcurrency,
			PollInterval:    cfg.PollInterval(),
			RetryBase:       cfg.JobRetryBaseDelay,
			RetryMax:        cfg.JobRetryMaxDelay,
			ShutdownTimeout: cfg.ShutdownTimeout,
			StaleAfter:      cfg.StaleJobAfter,
		},
	}
	a.Seeder = &seed.Seeder{
		Institutions: a.InstitutionsService,
		Members:      a.MembersService,
		SystemConfig: a.SystemConfigService,
	}
}

func (a *App) buildRouter() *gin.Engine {
	cfg := a.Config
	healthHandler := health.NewHandler(a.HealthService)
	github := githubauth.NewGitHubService(githubauth.GitHubConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}, a.Cache, a.UsersService, a.Signer)

	return server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: a.Signer,
		Limiter:  middleware.NewRateLimiter(nil),
		Probe:    healthHandler,
		Handlers: []server.RouteRegistrar{
			healthHandler,
			github,
			users.NewHandler(a.UsersService, a.Signer),
			systemconfig.NewHandler(a.SystemConfigService),
			institutions.NewHandler(a.InstitutionsService),
			members.NewHandler(a.MembersService),
			documents.NewHandler(a.DocumentsService),
			jobs.NewHandler(a.JobsService),
			&uploads.Handler{
				Documents:   a.DocumentsService,
				Jobs:        a.JobsService,
				Intake:      a.Intake,
				MaxBytes:    cfg.MaxUploadBytes(),
				MaxAttempts: cfg.JobMaxAttempts,
			},
		},
	})
}
