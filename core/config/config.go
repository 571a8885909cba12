package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"relaycore.dev/agentcore/core/db"
)

// ServiceType selects which required fields Load enforces: for the daemon
// Load fails without a ModelProvider credential; for the CLI it does not
// check the credential (relayctl checks MODEL_API_KEY itself at startup).
type ServiceType string

const (
	ServiceTypeDaemon ServiceType = "daemon"
	ServiceTypeCLI    ServiceType = "cli"
)

// Config holds all application configuration.
type Config struct {
	// Env is the environment name (development, staging, production)
	Env string

	// Port is the HTTP server port
	Port string

	// DB holds database configuration
	DB db.Config

	// OTel holds OpenTelemetry exporter configuration
	OTel OTelConfig

	// BearerToken, if set, is required on every daemon HTTP request outside
	// of /health. Empty disables auth, matching a local/dev deployment.
	BearerToken string

	// SnowflakeNodeID seeds common/id.Init for this process.
	SnowflakeNodeID int64

	// ModelProvider configures the LLM backing the executor and judge.
	ModelProvider ModelProviderConfig

	// Orchestrator holds the default iteration/budget/quality knobs a task
	// inherits when it doesn't override them.
	Orchestrator OrchestratorConfig

	// CronTickInterval is how often the daemon checks scheduled patterns
	// for a due run.
	CronTickInterval time.Duration

	// QueueDrainInterval is how often the daemon drains tasks submitted
	// through the HTTP API.
	QueueDrainInterval time.Duration

	// DashboardURL, if set, is surfaced in status notifications as a link
	// back to a human-facing view of a task's progress.
	DashboardURL string
}

// OTelConfig configures the OTLP-over-HTTP trace and log exporters.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP collector base URL (e.g. http://localhost:4318).
	// Empty disables telemetry export entirely.
	Endpoint string

	// Headers is a comma-separated key=value list sent with every export
	// request (e.g. authentication headers for a hosted collector).
	Headers string
}

// Enabled reports whether an OTLP endpoint has been configured.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// ModelProviderConfig configures the LLM client shared by the executor and
// the judge.
type ModelProviderConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	ContextWindow int
}

// OrchestratorConfig holds the default per-task run limits (spec.md §3, §5).
type OrchestratorConfig struct {
	MaxIterations       int
	QualityThreshold    float64
	MaxTokens           int64
	MaxCostUSD          float64
	MaxDurationSeconds  int
	RegressionThreshold float64
	SkipEvalConfidence  float64
}

// Load loads configuration from environment variables, applying sensible
// development defaults. Callers in cmd/ should load a .env file via
// godotenv before calling Load so local development doesn't require
// exporting every variable by hand.
func Load(service ServiceType) (Config, error) {
	cfg := Config{
		Env:  getEnv("RELAY_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		DB: db.Config{
			DSN:      buildDSN(),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 2)),
		},
		OTel: OTelConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "agentcore-"+string(service)),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		},
		BearerToken:     getEnv("RELAY_BEARER_TOKEN", ""),
		SnowflakeNodeID: int64(getEnvInt("SNOWFLAKE_NODE_ID", 1)),
		ModelProvider: ModelProviderConfig{
			APIKey:        getEnv("MODEL_API_KEY", ""),
			BaseURL:       getEnv("MODEL_BASE_URL", ""),
			Model:         getEnv("MODEL_NAME", ""),
			ContextWindow: getEnvInt("MODEL_CONTEXT_WINDOW", 200_000),
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations:       getEnvInt("ORCH_MAX_ITERATIONS", 5),
			QualityThreshold:    getEnvFloat("ORCH_QUALITY_THRESHOLD", 0.85),
			MaxTokens:           int64(getEnvInt("ORCH_MAX_TOKENS", 500_000)),
			MaxCostUSD:          getEnvFloat("ORCH_MAX_COST_USD", 5.0),
			MaxDurationSeconds:  getEnvInt("ORCH_MAX_DURATION_SECONDS", 1800),
			RegressionThreshold: getEnvFloat("ORCH_REGRESSION_THRESHOLD", 0.15),
			SkipEvalConfidence:  getEnvFloat("ORCH_SKIP_EVAL_CONFIDENCE", 0.85),
		},
		CronTickInterval:   time.Duration(getEnvInt("CRON_TICK_SECONDS", 60)) * time.Second,
		QueueDrainInterval: time.Duration(getEnvInt("QUEUE_DRAIN_SECONDS", 2)) * time.Second,
		DashboardURL:       getEnv("DASHBOARD_URL", ""),
	}

	if service == ServiceTypeDaemon && cfg.ModelProvider.APIKey == "" {
		return Config{}, fmt.Errorf("MODEL_API_KEY is required to run the daemon")
	}

	return cfg, nil
}

// buildDSN constructs the database connection string from individual env vars.
func buildDSN() string {
	host := getEnv("DATABASE_HOST", "localhost")
	port := getEnv("DATABASE_PORT", "5432")
	user := getEnv("DATABASE_USER", "postgres")
	password := getEnv("DATABASE_PASSWORD", "postgres")
	name := getEnv("DATABASE_NAME", "agentcore")
	sslMode := getEnv("DATABASE_SSLMODE", "disable")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslMode,
	)
}

// IsProduction returns true if running in production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
