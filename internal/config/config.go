package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Image generation API
	ImageGenAPIKey     string
	ImageGenAPIBaseURL string
	ImageGenModel      string

	// Face validation API
	VisionAPIKey     string
	VisionAPIBaseURL string

	// Supabase Storage (optional; local disk is used when unset)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Local storage fallback
	UploadDir string

	// Admin auth for catalog management (optional)
	AdminJWTSecret string

	// Queue
	RedisURL string

	// Database
	DatabaseURL string

	// Worker
	WorkerCount int

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	// A missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{
		ImageGenAPIKey:     getEnv("IMAGEGEN_API_KEY", ""),
		ImageGenAPIBaseURL: getEnv("IMAGEGEN_API_BASE_URL", "https://api.replicate.com/v1"),
		ImageGenModel:      getEnv("IMAGEGEN_MODEL", "bytedance/pulid"),

		VisionAPIKey:     getEnv("VISION_API_KEY", ""),
		VisionAPIBaseURL: getEnv("VISION_API_BASE_URL", ""),

		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "storybook-assets"),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		WorkerCount: getEnvInt("WORKER_COUNT", 2),

		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8000"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL != "" && c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required when SUPABASE_URL is set")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	return nil
}

// UseSupabaseStorage reports whether uploads go to Supabase Storage rather
// than the local upload directory.
func (c *Config) UseSupabaseStorage() bool {
	return c.SupabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
