// Package config provides chat service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MaxHistoryMessages is the largest accepted MAX_HISTORY_MESSAGES.
const MaxHistoryMessages = 100

// Server holds the chat service configuration.
type Server struct {
	Addr string

	// StateTable selects DynamoDB session history; empty keeps history in
	// memory.
	StateTable string
	// ParamPrefix selects SSM for the OpenAI token and model settings.
	ParamPrefix string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	MaxHistoryMessages int
	MaxMessageLength   int

	LogLevel  string
	LogFormat string
}

// LoadServer reads configuration from environment variables.
func LoadServer() (*Server, error) {
	cfg := &Server{
		Addr:               getEnv("ADDR", ":8080"),
		StateTable:         getEnv("STATE_TABLE", ""),
		ParamPrefix:        strings.TrimRight(getEnv("PARAM_PREFIX", ""), "/"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", 5),
		MaxMessageLength:   getEnvInt("MAX_MESSAGE_LENGTH", 2000),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can start a service.
func (c *Server) Validate() error {
	if c.Addr == "" {
		return errors.New("ADDR cannot be empty")
	}
	if c.OpenAIAPIKey == "" && c.ParamPrefix == "" {
		return errors.New("either OPENAI_API_KEY or PARAM_PREFIX must be set")
	}
	if c.MaxHistoryMessages < 0 || c.MaxHistoryMessages > MaxHistoryMessages {
		return fmt.Errorf("MAX_HISTORY_MESSAGES must be between 0 and %d", MaxHistoryMessages)
	}
	if c.MaxMessageLength <= 0 {
		return errors.New("MAX_MESSAGE_LENGTH must be > 0")
	}
	return nil
}

// UsesAWS reports whether any AWS-backed component is configured.
func (c *Server) UsesAWS() bool {
	return c.StateTable != "" || c.ParamPrefix != ""
}

// InLambda reports whether the process runs inside AWS Lambda.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
