package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		Mode        string   `yaml:"mode"` // gin mode: debug, release, test
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
	} `yaml:"log"`
	Database struct {
		Driver string `yaml:"driver"` // postgres or sqlite
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Security struct {
		// ContentKey is a base64 encoded 32 byte key. Message content is
		// stored encrypted when it is set.
		ContentKey string `yaml:"content_key"`
	} `yaml:"security"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	MLService struct {
		URL             string        `yaml:"url"`
		Token           string        `yaml:"token"`
		EmotionModel    string        `yaml:"emotion_model"`
		GenerationModel string        `yaml:"generation_model"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"ml_service"`
	OpenAI struct {
		APIKey      string  `yaml:"api_key"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"openai"`
	Emotion struct {
		Provider string `yaml:"provider"` // ml_service or openai
	} `yaml:"emotion"`
	Conversation struct {
		Provider  string `yaml:"provider"` // ml_service or openai
		MaxLength int    `yaml:"max_length"`
	} `yaml:"conversation"`
	Crisis struct {
		Phrases []CrisisPhrase `yaml:"phrases"`
		Message string         `yaml:"message"`
	} `yaml:"crisis"`
	Support struct {
		Triggers []string `yaml:"triggers"`
		Seed     int64    `yaml:"seed"` // 0 picks a random seed
	} `yaml:"support"`
	Alerts struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ChatID           int64  `yaml:"chat_id"`
	} `yaml:"alerts"`
}

// CrisisPhrase is one entry of the configurable crisis table.
type CrisisPhrase struct {
	Phrase   string `yaml:"phrase"`
	Severity string `yaml:"severity"`
}

const (
	ProviderMLService = "ml_service"
	ProviderOpenAI    = "openai"
)

// LoadConfig reads configuration from the specified YAML file. A missing
// file is not an error: defaults and environment variables still apply.
// Variables from a .env file in the working directory are loaded first.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	file, err := os.Open(configPath)
	switch {
	case err == nil:
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnvOverrides() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Server.Port, "PORT")
	override(&c.Database.URL, "DATABASE_URL")
	override(&c.Database.Driver, "DATABASE_DRIVER")
	override(&c.Auth.JWTSecret, "JWT_SECRET")
	override(&c.Security.ContentKey, "CONTENT_KEY")
	override(&c.Redis.URL, "REDIS_URL")
	override(&c.MLService.URL, "ML_SERVICE_URL")
	override(&c.MLService.Token, "HF_API_TOKEN")
	override(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	override(&c.Alerts.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
		if strings.HasPrefix(c.Database.URL, "file:") || strings.HasSuffix(c.Database.URL, ".db") {
			c.Database.Driver = "sqlite"
		}
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.MLService.URL == "" {
		c.MLService.URL = "https://api-inference.huggingface.co"
	}
	if c.MLService.EmotionModel == "" {
		c.MLService.EmotionModel = "bhadresh-savani/distilbert-base-uncased-emotion"
	}
	if c.MLService.GenerationModel == "" {
		c.MLService.GenerationModel = "facebook/blenderbot-400M-distill"
	}
	if c.MLService.Timeout == 0 {
		c.MLService.Timeout = 30 * time.Second
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.Temperature == 0 {
		c.OpenAI.Temperature = 0.7
	}
	if c.Emotion.Provider == "" {
		c.Emotion.Provider = ProviderMLService
	}
	if c.Conversation.Provider == "" {
		c.Conversation.Provider = ProviderMLService
	}
	if c.Conversation.MaxLength == 0 {
		c.Conversation.MaxLength = 100
	}
	if len(c.Support.Triggers) == 0 {
		c.Support.Triggers = []string{"sadness", "fear", "anger"}
	}
}

// Validate reports configuration that cannot produce a working server.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	for name, provider := range map[string]string{"emotion": c.Emotion.Provider, "conversation": c.Conversation.Provider} {
		switch provider {
		case ProviderMLService:
		case ProviderOpenAI:
			if c.OpenAI.APIKey == "" {
				return fmt.Errorf("%s provider openai requires openai.api_key", name)
			}
		default:
			return fmt.Errorf("unknown %s provider %q", name, provider)
		}
	}
	if c.Alerts.Enabled && (c.Alerts.TelegramBotToken == "" || c.Alerts.ChatID == 0) {
		return errors.New("alerts.enabled requires telegram_bot_token and chat_id")
	}
	return nil
}
