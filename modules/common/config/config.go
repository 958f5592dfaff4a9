package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config - all environment settings in one place
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string

	// Masterpiece X API
	MPXBearerToken string
	MPXAPIBaseURL  string

	// Gemini API (prompt refinement)
	GeminiAPIKey  string
	GeminiAPIKeys []string
	GeminiModel   string

	// Server
	Port string

	// Credit
	ModelPerPrice int
}

var globalConfig *Config

// LoadConfig - load environment variables
func LoadConfig() (*Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Parse Redis UseTLS
	useTLS := true // default
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// Parse ModelPerPrice
	modelPerPrice := 20 // default credits per generated model
	if priceStr := os.Getenv("MODEL_PER_PRICE"); priceStr != "" {
		if parsed, err := strconv.Atoi(priceStr); err == nil {
			modelPerPrice = parsed
		}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),

		// Masterpiece X
		MPXBearerToken: getEnv("MPX_SDK_BEARER_TOKEN", ""),
		MPXAPIBaseURL:  getEnv("MPX_API_BASE_URL", "https://api.genai.masterpiecex.com/v1"),

		// Gemini API
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiAPIKeys: parseAPIKeys(),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		// Server
		Port: getEnv("PORT", "8080"),

		// Credit
		ModelPerPrice: modelPerPrice,
	}

	// Validate required variables
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	if globalConfig.MPXBearerToken == "" {
		log.Println("⚠️  MPX_SDK_BEARER_TOKEN not set - generation runs will be rejected until configured")
	}
	if len(globalConfig.GeminiAPIKeys) == 0 {
		log.Println("⚠️  GEMINI_API_KEY not set - prompt refinement disabled")
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s", globalConfig.SupabaseURL)
	log.Printf("   MPX API: %s", globalConfig.MPXAPIBaseURL)
	log.Printf("   Credit: %d per model", globalConfig.ModelPerPrice)

	return globalConfig, nil
}

// GetConfig - fetch the loaded configuration
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - check required environment variables
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	return nil
}

// parseAPIKeys - GEMINI_API_KEYS comma list, falling back to GEMINI_API_KEY
func parseAPIKeys() []string {
	var keys []string
	if list := os.Getenv("GEMINI_API_KEYS"); list != "" {
		for _, key := range strings.Split(list, ",") {
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				keys = append(keys, trimmed)
			}
		}
	}
	if len(keys) == 0 {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// getEnv - environment variable with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetRedisAddr - Redis connection string
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
