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

	"github.com/xxxsen/askgate/internal/ai"
	"github.com/xxxsen/askgate/internal/cache"
	"github.com/xxxsen/askgate/internal/config"
	"github.com/xxxsen/askgate/internal/db"
	"github.com/xxxsen/askgate/internal/embedcache"
	"github.com/xxxsen/askgate/internal/filestore"
	"github.com/xxxsen/askgate/internal/handler"
	"github.com/xxxsen/askgate/internal/job"
	"github.com/xxxsen/askgate/internal/middleware"
	"github.com/xxxsen/askgate/internal/pkg/token"
	"github.com/xxxsen/askgate/internal/repo"
	"github.com/xxxsen/askgate/internal/schedule"
	"github.com/xxxsen/askgate/internal/service"
)

const embeddingCacheBand = "day"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askgate",
		Short: "askgate question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run askgate server",
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

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	var tokenSecret, tokenClientID string
	var tokenTTLHours int
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "mint a bearer token for the document API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenSecret == "" || tokenClientID == "" {
				return fmt.Errorf("--secret and --client-id are required")
			}
			raw, err := token.Generate(tokenClientID, []byte(tokenSecret), time.Duration(tokenTTLHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Println(raw)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "jwt secret, must match the server config")
	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "", "client identifier embedded in the token")
	tokenCmd.Flags().IntVar(&tokenTTLHours, "ttl-hours", 24, "token lifetime in hours")
	rootCmd.AddCommand(tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAIStack(cfg *config.Config, embedCacheRepo *repo.EmbeddingCacheRepo) (ai.IGenerator, ai.IEmbedder, error) {
	var generators []ai.GeneratorEntry
	var embedders []ai.EmbedderEntry
	for _, pc := range cfg.AI.Providers {
		provider, err := ai.NewProvider(pc.Provider, pc)
		if err != nil {
			return nil, nil, fmt.Errorf("init ai provider %s: %w", pc.Provider, err)
		}
		generators = append(generators, ai.GeneratorEntry{
			Name:      pc.Provider,
			Generator: ai.NewGenerator(provider, pc.Model),
		})
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     pc.Provider,
			Embedder: ai.NewEmbedder(provider, pc.EmbedModel),
		})
	}
	generator := ai.NewGroupGenerator(generators)
	embedder := ai.NewGroupEmbedder(embedders)

	ttlCache, err := cache.New[[]float32](cache.FromSeconds(cfg.Cache.TTLBands), cfg.Cache.LRUSize)
	if err != nil {
		return nil, nil, fmt.Errorf("init embedding cache: %w", err)
	}
	band := embeddingCacheBand
	if _, ok := cfg.Cache.TTLBands[band]; !ok {
		band = ttlCache.Bands()[0]
	}
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, embedCacheRepo)
	embedder = embedcache.WrapTTLCacheToEmbedder(embedder, ttlCache, band)
	return generator, embedder, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Int("ai_providers", len(cfg.AI.Providers)),
	)

	chatRepo := repo.NewChatRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(conn)

	generator, embedder, err := buildAIStack(cfg, embedCacheRepo)
	if err != nil {
		return err
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	timeout := time.Duration(cfg.AI.Timeout) * time.Second
	qaService := service.NewQAService(chatRepo, chunkRepo, generator, embedder, cfg.QA, timeout, cfg.AI.MaxQuestionChars)
	ingestService := service.NewIngestService(docRepo, chunkRepo, embedder, store, cfg.Ingest, cfg.Pagination, timeout)

	deps := handler.RouterDeps{
		QA:            handler.NewQAHandler(qaService),
		Documents:     handler.NewDocumentHandler(ingestService, cfg.Ingest),
		Health:        handler.NewHealthHandler(conn),
		JWTSecret:     []byte(cfg.JWTSecret),
		AskRateWindow: time.Duration(cfg.QA.AskRateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(embedCacheRepo, cfg.Jobs.EmbeddingCacheMaxAgeDays), cfg.Jobs.EmbeddingCacheCleanupSpec); err != nil {
		return fmt.Errorf("schedule embedding cache cleanup: %w", err)
	}
	if err := scheduler.AddJob(job.NewDocumentReaperJob(docRepo, cfg.Jobs.ProcessingDeadlineMinutes), cfg.Jobs.DocumentReaperSpec); err != nil {
		return fmt.Errorf("schedule document reaper: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
