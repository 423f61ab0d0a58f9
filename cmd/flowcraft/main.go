package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/config"
	"github.com/flowcraft-app/flowcraft/internal/db"
	"github.com/flowcraft-app/flowcraft/internal/demo"
	"github.com/flowcraft-app/flowcraft/internal/filestore"
	"github.com/flowcraft-app/flowcraft/internal/handler"
	"github.com/flowcraft-app/flowcraft/internal/job"
	"github.com/flowcraft-app/flowcraft/internal/middleware"
	"github.com/flowcraft-app/flowcraft/internal/monitor"
	"github.com/flowcraft-app/flowcraft/internal/provider"
	"github.com/flowcraft-app/flowcraft/internal/repo"
	"github.com/flowcraft-app/flowcraft/internal/schedule"
	"github.com/flowcraft-app/flowcraft/internal/service"
)

var demoProviders = []string{"zoom", "google-meet", "gmail", "discord", "microsoft-teams"}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "flowcraft",
		Short: "flowcraft backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run flowcraft server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildProviders(cfg *config.Config) (map[string]provider.Provider, error) {
	providers := make(map[string]provider.Provider)
	if cfg.DemoMode {
		for _, name := range demoProviders {
			providers[name] = demo.New(name)
		}
		return providers, nil
	}
	client := &http.Client{Timeout: 10 * time.Second}
	for name, pc := range cfg.Providers {
		p, err := provider.New(name, provider.Args{
			Config: provider.Config{
				ClientID:     pc.ClientID,
				ClientSecret: pc.ClientSecret,
				RedirectURL:  pc.RedirectURL,
				Scopes:       pc.Scopes,
			},
			Client: client,
		})
		if err != nil {
			return nil, fmt.Errorf("init provider %s: %w", name, err)
		}
		providers[name] = p
	}
	return providers, nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Bool("demo_mode", cfg.DemoMode),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(database)
	connectionRepo := repo.NewConnectionRepo(database)
	meetingRepo := repo.NewMeetingRepo(database)
	transcriptRepo := repo.NewTranscriptRepo(database)
	draftRepo := repo.NewDraftRepo(database)
	taskRepo := repo.NewTaskRepo(database)
	deckRepo := repo.NewDeckRepo(database)
	cardRepo := repo.NewCardRepo(database)

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	jwtTTL := time.Hour * time.Duration(cfg.JWTTTLHours)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), jwtTTL)
	connectionService := service.NewConnectionService(connectionRepo, providers)
	meetingService := service.NewMeetingService(connectionService, meetingRepo, transcriptRepo, store)
	draftService := service.NewDraftService(draftRepo, connectionService, "gmail")
	taskService := service.NewTaskService(taskRepo)
	flashcardService := service.NewFlashcardService(deckRepo, cardRepo)

	meetingMonitor := monitor.New(meetingService, time.Duration(cfg.Monitor.IntervalSeconds)*time.Second)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService),
		Connections: handler.NewConnectionHandler(connectionService, cfg.FrontendURL),
		Meetings:    handler.NewMeetingHandler(meetingService, meetingMonitor, store),
		Drafts:      handler.NewDraftHandler(draftService, meetingService),
		Tasks:       handler.NewTaskHandler(taskService),
		Flashcards:  handler.NewFlashcardHandler(flashcardService, meetingService),
		Files:       handler.NewFileHandler(store),
		JWTSecret:   []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	refreshAhead := time.Duration(cfg.Jobs.RefreshAheadMinutes) * time.Minute
	if err := scheduler.AddJob(job.NewCredentialRefreshJob(connectionService, refreshAhead), cfg.Jobs.RefreshCron); err != nil {
		return err
	}
	retention := time.Duration(cfg.DraftRetention) * 24 * time.Hour
	if err := scheduler.AddJob(job.NewDraftCleanupJob(draftService, retention), cfg.Jobs.CleanupCron); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start(ctx)
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	meetingMonitor.StopAll()
	scheduler.Stop()
	return nil
}
