package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Upstream modes.
const (
	ModeOrchestrator = "orchestrator"
	ModeN8N          = "n8n"
	ModeGemini       = "gemini"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string
	// Upstream generation
	UpstreamMode    string
	OrchestratorURL string
	WebhookURL      string
	VerifierURL     string
	UpstreamTimeout time.Duration
	// Optional OAuth2 client credentials for the orchestrator
	OrchestratorClientID     string
	OrchestratorClientSecret string
	OrchestratorTokenURL     string
	OrchestratorScopes       []string
	// Direct Gemini access through its OpenAI-compatible endpoint
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	PromptFile    string
	// Persistence
	StoreBackend   string
	StoreDir       string
	DatabaseURL    string
	RedisURL       string
	MigrationsDir  string
	MaxTranscript  int
	// Live session cache
	SessionCacheSize int
	SessionIdleTTL   time.Duration
	MetricsEnabled   bool
	CookieSecure     bool
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:                     getEnvDefault("PORT", "8080"),
		AllowedOrigin:            getEnvDefault("ALLOWED_ORIGIN", "*"),
		LogLevel:                 getEnvDefault("LOG_LEVEL", "info"),
		UpstreamMode:             strings.ToLower(getEnvDefault("UPSTREAM_MODE", ModeOrchestrator)),
		OrchestratorURL:          getEnvDefault("ORCHESTRATOR_URL", "http://localhost:8000/generate"),
		WebhookURL:               os.Getenv("N8N_WEBHOOK_URL"),
		VerifierURL:              getEnvDefault("VERIFIER_URL", "http://localhost:8002/verify"),
		UpstreamTimeout:          getEnvDurationDefault("UPSTREAM_TIMEOUT", 120*time.Second),
		OrchestratorClientID:     os.Getenv("ORCHESTRATOR_CLIENT_ID"),
		OrchestratorClientSecret: os.Getenv("ORCHESTRATOR_CLIENT_SECRET"),
		OrchestratorTokenURL:     os.Getenv("ORCHESTRATOR_TOKEN_URL"),
		OrchestratorScopes:       getEnvListDefault("ORCHESTRATOR_SCOPES", nil),
		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:            getEnvDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		GeminiModel:              getEnvDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		PromptFile:               getEnvDefault("PROMPT_FILE", "./prompts/copilot.yaml"),
		StoreBackend:             strings.ToLower(getEnvDefault("STORE_BACKEND", StoreMemory)),
		StoreDir:                 getEnvDefault("STORE_DIR", "data/transcripts"),
		DatabaseURL:              os.Getenv("DB_URL"),
		RedisURL:                 getEnvDefault("REDIS_URL", "redis://localhost:6379/0"),
		MigrationsDir:            getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		MaxTranscript:            getEnvIntDefault("MAX_TRANSCRIPT", 0),
		SessionCacheSize:         getEnvIntDefault("SESSION_CACHE_SIZE", 1000),
		SessionIdleTTL:           getEnvDurationDefault("SESSION_IDLE_TTL", 30*time.Minute),
		MetricsEnabled:           getEnvBoolDefault("METRICS_ENABLED", true),
		CookieSecure:             getEnvBoolDefault("COOKIE_SECURE", false),
	}
	if cfg.UpstreamMode == ModeGemini && cfg.GeminiAPIKey == "" {
		log.Println("warning: GEMINI_API_KEY is not set; generation calls will fail until provided")
	}
	if cfg.UpstreamMode == ModeN8N && cfg.WebhookURL == "" {
		log.Println("warning: N8N_WEBHOOK_URL is not set; falling back to ORCHESTRATOR_URL")
	}
	return cfg
}

// GenerateURL is the endpoint prompts are posted to for the HTTP upstream modes.
func (c Config) GenerateURL() string {
	if c.UpstreamMode == ModeN8N && c.WebhookURL != "" {
		return c.WebhookURL
	}
	return c.OrchestratorURL
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("warning: invalid duration %q for %s, using %s", v, key, def)
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		log.Printf("warning: invalid integer %q for %s, using %d", v, key, def)
	}
	return def
}
