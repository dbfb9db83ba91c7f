package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// FollowUpPolicy decides when the post-confirmation follow-up call runs after
// a report is confirmed.
type FollowUpPolicy string

const (
	// FollowUpOnReply runs the follow-up only when the confirm call produced a
	// reply. Matches the historical behavior of the assistant front end.
	FollowUpOnReply FollowUpPolicy = "on-reply"
	// FollowUpAlways runs the follow-up on any confirmed decision, even when
	// the confirm call itself failed.
	FollowUpAlways FollowUpPolicy = "always"
)

type Config struct {
	Port            string `validate:"required"`
	LogLevel        string
	BackendBaseURL  string `validate:"required,url"`
	BackendTimeout  time.Duration
	ConversationTTL time.Duration
	FollowUpPolicy  FollowUpPolicy `validate:"oneof=on-reply always"`
}

func LoadEnv() error {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file loaded, using system environment")
		return err
	}
	return nil
}

// Load builds the service configuration from the environment. The backend
// base URL has no default on purpose: it must be injected, never guessed.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		BackendBaseURL:  os.Getenv("BACKEND_BASE_URL"),
		BackendTimeout:  time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 30)) * time.Second,
		ConversationTTL: time.Duration(getEnvAsInt("CONVERSATION_TTL_MINUTES", 60)) * time.Minute,
		FollowUpPolicy:  FollowUpPolicy(getEnv("CONFIRM_FOLLOWUP_POLICY", string(FollowUpOnReply))),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s, using default %d", key, fallback)
		return fallback
	}
	return parsed
}
