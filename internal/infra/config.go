package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	DefaultCallbackURL string
	CallbackTimeout    time.Duration
	CallbackRetryCount int
	CallbackRetryDelay time.Duration

	EnableSTT           bool
	EnableSummarization bool
	EnableCallback      bool

	BypassMode    bool
	BypassLogFile string

	WhisperCLI   string
	WhisperModel string
	STTTimeout   time.Duration

	SummaryProvider string
	SummaryMaxChars int
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string

	TempDownloadDir string
	DownloadTimeout time.Duration

	GeoIPDBPath     string
	RateLimitPerMin int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		DefaultCallbackURL: os.Getenv("DEFAULT_CALLBACK_URL"),
		CallbackTimeout:    time.Second * time.Duration(getEnvInt("CALLBACK_TIMEOUT_SECONDS", 30)),
		CallbackRetryCount: getEnvInt("CALLBACK_RETRY_COUNT", 3),
		CallbackRetryDelay: time.Second * time.Duration(getEnvInt("CALLBACK_RETRY_DELAY_SECONDS", 3)),

		EnableSTT:           getEnvBool("ENABLE_STT", true),
		EnableSummarization: getEnvBool("ENABLE_SUMMARIZATION", true),
		EnableCallback:      getEnvBool("ENABLE_CALLBACK", true),

		BypassMode:    getEnvBool("BYPASS_MODE", false),
		BypassLogFile: getEnv("BYPASS_LOG_FILE", "./bypass_output.log"),

		WhisperCLI:   getEnv("WHISPER_CLI", "whisper"),
		WhisperModel: getEnv("WHISPER_MODEL", "large-v3"),
		STTTimeout:   time.Second * time.Duration(getEnvInt("STT_TIMEOUT_SECONDS", 1800)),

		SummaryProvider: getEnv("SUMMARY_PROVIDER", "static"),
		SummaryMaxChars: getEnvInt("SUMMARY_MAX_CHARS", 500),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		TempDownloadDir: getEnv("TEMP_DOWNLOAD_DIR", "/tmp/audio_downloads"),
		DownloadTimeout: time.Second * time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 300)),

		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Bypass mode always takes the deterministic mock transcription path.
	if cfg.BypassMode {
		cfg.EnableSTT = false
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}
