package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	// Generation provider: "openai" or "anthropic".
	GenerationProvider string
	OpenAIAPIKey       string
	AnthropicAPIKey    string

	PineconeAPIKey    string
	PineconeIndexName string

	// Per-concept mastery threshold.
	RequiredCorrectAnswers int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] No .env file found, using environment variables")
	}

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            os.Getenv("DB_URL"),
		GenerationProvider:     getEnv("GENERATION_PROVIDER", "openai"),
		OpenAIAPIKey:           os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:        os.Getenv("ANTHROPIC_API_KEY"),
		PineconeAPIKey:         os.Getenv("PINECONE_API_KEY"),
		PineconeIndexName:      getEnv("PINECONE_INDEX_NAME", "tutor-docs-index"),
		RequiredCorrectAnswers: getEnvInt("REQUIRED_CORRECT_ANSWERS", 2),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		log.Printf("[WARN] Invalid %s value %q, using %d", key, value, fallback)
		return fallback
	}
	return parsed
}
