package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ErrNoAPIKey is returned when neither API_KEY nor API_KEY_FILE yields a key.
var ErrNoAPIKey = errors.New("no API key configured")

type Config struct {
	// Pipeline paths.
	FilesJSON          string
	ExtractionBase     string
	JSONFile           string
	JSONTranslatedFile string
	TextsDir           string
	OutputDir          string
	TermsFile          string
	SourceEncoding     string

	// Chat endpoint.
	APIBaseURL       string
	APIKey           string
	APIKeyFile       string
	TranslationModel string
	Temperature      float64
	MaxRetries       int
	RetryDelay       time.Duration
	RequestTimeout   time.Duration

	// Prompt.
	SourceLang      string
	TargetLang      string
	GameTitle       string
	ContextMaxChars int
	ContextMaxItems int
	MaxTerms        int

	WorkerCount           int
	MaxConcurrentAPICalls int

	// Optional stores; empty disables them.
	DatabaseURL   string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		FilesJSON:          getEnv("FILES_JSON", "text/event/files.json"),
		ExtractionBase:     getEnv("EXTRACTION_BASE", "extraction/PSP_GAME/USRDIR/pack/P2PT_ALL.cpk$/event.bin$"),
		JSONFile:           getEnv("JSON_FILE", "json/all.json"),
		JSONTranslatedFile: getEnv("JSON_TRANSLATED_FILE", "json/all_translated.json"),
		TextsDir:           getEnv("TEXTS_DIR", "texts"),
		OutputDir:          getEnv("OUTPUT_DIR", "text/event"),
		TermsFile:          getEnv("TERMS_FILE", "texts/terms.json"),
		SourceEncoding:     getEnv("SOURCE_ENCODING", "utf-8"),

		APIBaseURL:       getEnv("API_BASE_URL", "https://api.openai.com/v1"),
		APIKey:           getEnv("API_KEY", ""),
		APIKeyFile:       getEnv("API_KEY_FILE", "api_key.txt"),
		TranslationModel: getEnv("TRANSLATION_MODEL", "gpt-4.1-mini"),
		Temperature:      getEnvFloat("TEMPERATURE", 0.7),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		RetryDelay:       getEnvDuration("RETRY_DELAY", time.Second),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		SourceLang:      getEnv("SOURCE_LANG", "Japanese"),
		TargetLang:      getEnv("TARGET_LANG", "Simplified Chinese"),
		GameTitle:       getEnv("GAME_TITLE", "Persona 2: Eternal Punishment"),
		ContextMaxChars: getEnvInt("CONTEXT_MAX_CHARS", 4096),
		ContextMaxItems: getEnvInt("CONTEXT_MAX_ITEMS", 5),
		MaxTerms:        getEnvInt("MAX_TERMS", 20),

		WorkerCount:           getEnvInt("WORKER_COUNT", 8),
		MaxConcurrentAPICalls: getEnvInt("MAX_CONCURRENT_API_CALLS", 10),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Neo4jURI:      getEnv("NEO4J_URI", ""),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
	}
}

// ResolveAPIKey returns API_KEY, or the trimmed contents of API_KEY_FILE.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyFile == "" {
		return "", ErrNoAPIKey
	}
	data, err := os.ReadFile(c.APIKeyFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s not found", ErrNoAPIKey, c.APIKeyFile)
		}
		return "", fmt.Errorf("read API key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoAPIKey, c.APIKeyFile)
	}
	return key, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer, using default")
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid number, using default")
		return fallback
	}
	return f
}

// getEnvDuration accepts a Go duration ("1500ms") or a number of seconds ("2").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration, using default")
	return fallback
}
