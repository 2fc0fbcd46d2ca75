package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AdminEmail    string
	AdminPassword string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	EmbeddingModel   string
	EmbeddingDims    int
	MaxRetries       int
}

type StorageConfig struct {
	Backend     string // "local" or "supabase"
	LocalDir    string
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	accessMinutes, err := getEnvInt("JWT_ACCESS_TTL_MINUTES", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TTL_MINUTES: %w", err)
	}

	refreshDays, err := getEnvInt("JWT_REFRESH_TTL_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_TTL_DAYS: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	// Must match the output width of LLM_EMBEDDING_MODEL and the
	// document_chunks.embedding column. nomic-embed-text is 768.
	embeddingDims, err := getEnvInt("LLM_EMBEDDING_DIMS", 768)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_EMBEDDING_DIMS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			AccessTTL:     time.Duration(accessMinutes) * time.Minute,
			RefreshTTL:    time.Duration(refreshDays) * 24 * time.Hour,
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@legaldrishti.local"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		LLM: LLMConfig{
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", "http://localhost:11434"),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "ollama"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gemma3:4b"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			EmbeddingModel:   getEnv("LLM_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDims:    embeddingDims,
			MaxRetries:       maxRetries,
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "local"),
			LocalDir:    getEnv("STORAGE_LOCAL_DIR", "uploads"),
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:      getEnv("STORAGE_BUCKET", "documents"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Storage.Backend == "supabase" && (c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "") {
		missing = append(missing, "SUPABASE_URL/SUPABASE_SERVICE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
