package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"relaycore.dev/agentcore/common/id"
	"relaycore.dev/agentcore/common/logger"
	"relaycore.dev/agentcore/common/otel"
	"relaycore.dev/agentcore/core/config"
	"relaycore.dev/agentcore/core/db"
	"relaycore.dev/agentcore/internal/cost"
	"relaycore.dev/agentcore/internal/daemon"
	"relaycore.dev/agentcore/internal/evaluator"
	"relaycore.dev/agentcore/internal/llmprovider"
	"relaycore.dev/agentcore/internal/memory"
	"relaycore.dev/agentcore/internal/orchestrator"
	"relaycore.dev/agentcore/internal/safety"
	"relaycore.dev/agentcore/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.Load(config.ServiceTypeDaemon)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "agentcore daemon starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.SnowflakeNodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	var redisClient *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.WarnContext(ctx, "redis unavailable, progress mirror disabled", "error", err)
			redisClient = nil
		} else {
			slog.InfoContext(ctx, "redis connected")
		}
	}

	stores := store.NewStores(database.Queries())

	provider, err := llmprovider.NewOpenAI(llmprovider.Config{
		APIKey:  cfg.ModelProvider.APIKey,
		BaseURL: cfg.ModelProvider.BaseURL,
		Model:   cfg.ModelProvider.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build model provider", "error", err)
		os.Exit(1)
	}

	costTracker := cost.NewTracker()
	learnings := stores.Learnings()

	orch := &orchestrator.Orchestrator{
		Provider: provider,
		Executor: &orchestrator.Executor{
			Provider: provider,
			ToolLoop: safety.ToolLoopDetector{},
		},
		Evaluator: &evaluator.Evaluator{
			Checkers: []evaluator.Checker{
				&evaluator.StaticAnalyzerChecker{Runner: evaluator.ExecCommandRunner{}},
				&evaluator.TestRunnerChecker{Runner: evaluator.ExecCommandRunner{}},
			},
			Judge: &evaluator.Judge{Provider: provider},
		},
		Safety:      &safety.Checker{},
		Cost:        costTracker,
		Tasks:       stores.Tasks(),
		Cycles:      stores.Cycles(),
		Usage:       stores.Usage(),
		Learnings:   learnings,
		SkillWriter: stores.SkillWriter(),
		Extractor:   &memory.Extractor{Provider: provider},
		Decayer:     &memory.Decayer{Store: learnings},
		WorkDir:     os.Getenv("AGENTCORE_WORKDIR"),
	}

	d := daemon.New(cfg, orch)
	d.Tasks = stores.Tasks()
	d.Sessions = stores.Sessions()
	d.Patterns = stores.Patterns()
	d.Cost = costTracker
	d.Recaller = &memory.Recaller{Learnings: learnings, Skills: stores.Skills()}
	d.Selector = &memory.SkillSelector{Skills: stores.Skills()}
	d.Broadcaster = daemon.NewBroadcaster(redisClient)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	d.SetupRoutes(router, daemon.RouterConfig{
		BearerToken: cfg.BearerToken,
		ServiceName: cfg.OTel.ServiceName,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	daemonCtx, cancelDaemon := context.WithCancel(ctx)
	go d.Run(daemonCtx)

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	cancelDaemon()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

const banner = `
 █████╗  ██████╗ ███████╗███╗   ██╗████████╗ ██████╗ ██████╗ ██████╗ ███████╗
██╔══██╗██╔════╝ ██╔════╝████╗  ██║╚══██╔══╝██╔════╝██╔═══██╗██╔══██╗██╔════╝
███████║██║  ███╗█████╗  ██╔██╗ ██║   ██║   ██║     ██║   ██║██████╔╝█████╗
██╔══██║██║   ██║██╔══╝  ██║╚██╗██║   ██║   ██║     ██║   ██║██╔══██╗██╔══╝
██║  ██║╚██████╔╝███████╗██║ ╚████║   ██║   ╚██████╗╚██████╔╝██║  ██║███████╗
╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝   ╚═╝    ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝
`
