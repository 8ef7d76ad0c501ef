// Package config loads settings from an optional YAML file overridden by
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"calorie-tracker/internal/food"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// Store backends, image hosts and chat providers.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"

	HostImgBB = "imgbb"
	HostS3    = "s3"

	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// Config holds the configuration for the application.
type Config struct {
	ChatProvider string
	GeminiAPIKey string
	GeminiModel  string

	GroqAPIKey      string
	GroqAPIURL      string
	GroqVisionModel string
	GroqChatModel   string

	ImageHost   string
	ImgBBAPIKey string
	ImgBBURL    string
	S3Bucket    string
	S3Region    string
	S3PublicURL string
	S3Prefix    string

	StoreBackend string
	DataDir      string
	DatabasePath string
	DefaultGoal  int
	DefaultMeal  food.MealType
	HTTPTimeout  time.Duration

	LogLevel  string
	LogFormat string

	// Telegram Config
	TelegramBotToken    string
	TelegramAllowUserID int64
	MetricsAddr         string
}

// Load reads the YAML file at path (skipped when path is empty) and then
// applies environment variables, e.g. GEMINI_API_KEY -> gemini_api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	dataDir := stringOr(k, "data_dir", "data")
	cfg := &Config{
		ChatProvider: strings.ToLower(stringOr(k, "chat_provider", ProviderGemini)),
		GeminiAPIKey: k.String("gemini_api_key"),
		GeminiModel:  stringOr(k, "gemini_model", "gemini-1.5-flash"),

		GroqAPIKey:      k.String("groq_api_key"),
		GroqAPIURL:      stringOr(k, "groq_api_url", "https://api.groq.com/openai/v1/chat/completions"),
		GroqVisionModel: stringOr(k, "groq_vision_model", "meta-llama/llama-4-scout-17b-16e-instruct"),
		GroqChatModel:   stringOr(k, "groq_chat_model", "llama-3.3-70b-versatile"),

		ImageHost:   strings.ToLower(stringOr(k, "image_host", HostImgBB)),
		ImgBBAPIKey: k.String("imgbb_api_key"),
		ImgBBURL:    stringOr(k, "imgbb_url", "https://api.imgbb.com/1/upload"),
		S3Bucket:    k.String("s3_bucket"),
		S3Region:    stringOr(k, "s3_region", k.String("aws_region")),
		S3PublicURL: strings.TrimRight(k.String("s3_public_url"), "/"),
		S3Prefix:    stringOr(k, "s3_prefix", "food-photos"),

		StoreBackend: strings.ToLower(stringOr(k, "store_backend", BackendSQLite)),
		DataDir:      dataDir,
		DatabasePath: stringOr(k, "database_path", dataDir+"/calorie-tracker.db"),
		DefaultGoal:  intOr(k, "daily_goal_default", 2000),
		DefaultMeal:  food.MealType(strings.ToLower(stringOr(k, "default_meal", string(food.Lunch)))),
		HTTPTimeout:  durationOr(k, "http_timeout", 60*time.Second),

		LogLevel:  stringOr(k, "log_level", "info"),
		LogFormat: stringOr(k, "log_format", "console"),

		TelegramBotToken:    k.String("telegram_bot_token"),
		TelegramAllowUserID: k.Int64("telegram_allow_user_id"),
		MetricsAddr:         k.String("metrics_addr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values. Credentials are checked separately by the
// Require* methods so commands that never call an API work without them.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("unknown store_backend %q (want sqlite or file)", c.StoreBackend)
	}
	switch c.ImageHost {
	case HostImgBB, HostS3:
	default:
		return fmt.Errorf("unknown image_host %q (want imgbb or s3)", c.ImageHost)
	}
	switch c.ChatProvider {
	case ProviderGemini, ProviderGroq:
	default:
		return fmt.Errorf("unknown chat_provider %q (want gemini or groq)", c.ChatProvider)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log_format %q (want console or json)", c.LogFormat)
	}
	if c.DefaultGoal <= 0 {
		return fmt.Errorf("daily_goal_default must be positive, got %d", c.DefaultGoal)
	}
	if _, err := food.ParseMealType(string(c.DefaultMeal)); err != nil {
		return fmt.Errorf("invalid default_meal: %w", err)
	}
	return nil
}

// RequireChat checks the credentials needed by the nutrition assistant.
func (c *Config) RequireChat() error {
	if c.ChatProvider == ProviderGroq {
		return required("GROQ_API_KEY", c.GroqAPIKey)
	}
	return required("GEMINI_API_KEY", c.GeminiAPIKey)
}

// RequireVision checks the credentials needed by photo analysis.
func (c *Config) RequireVision() error {
	if err := required("GROQ_API_KEY", c.GroqAPIKey); err != nil {
		return err
	}
	if c.ImageHost == HostS3 {
		if err := required("S3_BUCKET", c.S3Bucket); err != nil {
			return err
		}
		return required("S3_PUBLIC_URL", c.S3PublicURL)
	}
	return required("IMGBB_API_KEY", c.ImgBBAPIKey)
}

// RequireTelegram checks the bot settings.
func (c *Config) RequireTelegram() error {
	if err := required("TELEGRAM_BOT_TOKEN", c.TelegramBotToken); err != nil {
		return err
	}
	if c.TelegramAllowUserID == 0 {
		return fmt.Errorf("TELEGRAM_ALLOW_USER_ID environment variable not set")
	}
	return nil
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s environment variable not set", name)
	}
	return nil
}

func stringOr(k *koanf.Koanf, key, def string) string {
	if v := strings.TrimSpace(k.String(key)); v != "" {
		return v
	}
	return def
}

func intOr(k *koanf.Koanf, key string, def int) int {
	if !k.Exists(key) {
		return def
	}
	return k.Int(key)
}

func durationOr(k *koanf.Koanf, key string, def time.Duration) time.Duration {
	if v := k.Duration(key); v > 0 {
		return v
	}
	return def
}
