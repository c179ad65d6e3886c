package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/postcraft/internal/api/handlers"
	"github.com/cloo-solutions/postcraft/internal/config"
	"github.com/cloo-solutions/postcraft/internal/database"
	"github.com/cloo-solutions/postcraft/internal/domain"
	"github.com/cloo-solutions/postcraft/internal/jobs"
	"github.com/cloo-solutions/postcraft/internal/openai"
	"github.com/cloo-solutions/postcraft/internal/repository"
	"github.com/cloo-solutions/postcraft/internal/server"
	"github.com/cloo-solutions/postcraft/internal/service"
	"github.com/cloo-solutions/postcraft/internal/telemetry"
	"github.com/cloo-solutions/postcraft/internal/vector"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the postcraft API server and the background ingest worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	jobRepo := repository.NewIngestJobRepository(pool)
	store := vector.NewStore(pool)

	var (
		ingestWorker *jobs.Worker
		postSvc      *service.PostService
		calendarSvc  *service.CalendarService
		brandSvc     *service.BrandVoiceService
		indexerSvc   *service.IndexerService
	)

	if cfg.HasOpenAI() {
		aiClient := openai.NewClientWithConfig(openai.Config{
			APIKey:       cfg.OpenAIAPIKey,
			FastModel:    cfg.FastModel,
			QualityModel: cfg.QualityModel,
		})
		fetcher := service.NewContentFetcher()

		indexerSvc = service.NewIndexerService(fetcher, aiClient, store)
		postSvc = service.NewPostService(fetcher, aiClient, aiClient, aiClient, store)
		calendarSvc = service.NewCalendarService(aiClient, postSvc)
		brandSvc = service.NewBrandVoiceService(fetcher, aiClient)

		ingestProcessor := jobs.NewIngestWorker(jobRepo, &indexerIngester{indexer: indexerSvc})
		ingestWorker = jobs.NewWorker(ingestProcessor, time.Duration(cfg.WorkerPollSeconds)*time.Second)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	} else {
		log.Println("OPENAI_API_KEY not set: workflows disabled, ingest jobs will queue unprocessed")
	}

	workflowHandler := newWorkflowHandler(postSvc, calendarSvc, brandSvc)
	searchHandler := newSearchHandler(indexerSvc)

	routerCfg := server.RouterConfig{
		APIToken:        cfg.APIToken,
		IngestHandler:   handlers.NewIngestHandler(jobRepo),
		WorkflowHandler: workflowHandler,
		SearchHandler:   searchHandler,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newWorkflowHandler(posts *service.PostService, calendars *service.CalendarService, brandVoice *service.BrandVoiceService) *handlers.WorkflowHandler {
	if posts == nil || calendars == nil || brandVoice == nil {
		noop := &noOpWorkflows{}
		return handlers.NewWorkflowHandler(noop, noop, noop)
	}
	return handlers.NewWorkflowHandler(posts, calendars, brandVoice)
}

func newSearchHandler(indexer *service.IndexerService) *handlers.SearchHandler {
	if indexer == nil {
		return handlers.NewSearchHandler(&noOpWorkflows{})
	}
	return handlers.NewSearchHandler(indexer)
}

// indexerIngester adapts IndexerService to the worker's Ingester interface.
// A run whose step failed still returns a nil error from the pipeline (the
// failure lives in the results map), so the adapter surfaces it as an error
// or the worker would mark the job completed.
type indexerIngester struct {
	indexer *service.IndexerService
}

func (i *indexerIngester) Ingest(ctx context.Context, trigger domain.IngestTrigger) error {
	result, err := i.indexer.Ingest(ctx, trigger)
	if err != nil {
		return err
	}
	if stepID, errMsg, ok := result.FirstError(); ok {
		return fmt.Errorf("step %s failed: %s", stepID, errMsg)
	}
	return nil
}

var errOpenAINotConfigured = domain.NewDomainError(domain.ErrCodeInvalidOperation, "workflows not configured: OPENAI_API_KEY required")

// noOpWorkflows backs the trigger endpoints when no OpenAI key is configured.
type noOpWorkflows struct{}

func (n *noOpWorkflows) CreatePostFromPage(ctx context.Context, trigger domain.PageTrigger) (*domain.InstagramPost, error) {
	return nil, errOpenAINotConfigured
}

func (n *noOpWorkflows) CreateCalendar(ctx context.Context, trigger domain.CalendarTrigger) (*service.CalendarPosts, error) {
	return nil, errOpenAINotConfigured
}

func (n *noOpWorkflows) AnalyzeWebsite(ctx context.Context, trigger domain.BrandVoiceTrigger) (*domain.BrandVoiceProfile, error) {
	return nil, errOpenAINotConfigured
}

func (n *noOpWorkflows) Search(ctx context.Context, query, projectID string, k int) ([]*vector.Record, error) {
	return nil, errOpenAINotConfigured
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
