package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "DAILY_HOLLER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	llmProviderEnv    = "LLM_PROVIDER"
	llmModelEnv       = "LLM_MODEL"
	llmAPIKeyEnv      = "LLM_API_KEY"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	redisAddrEnv      = "REDIS_ADDR"
	checkpointDirEnv  = "CHECKPOINT_DIR"
	volumeMountEnv    = "RAILWAY_VOLUME_MOUNT_PATH"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
)

// PathEnv names the environment variable that points at the YAML file.
const PathEnv = configPathEnv

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Generation    GenerationConfig   `yaml:"generation"`
	LLM           LLMConfig          `yaml:"llm"`
	Checkpoint    CheckpointConfig   `yaml:"checkpoint"`
	Cities        CitiesConfig       `yaml:"cities"`
	Facts         FactsConfig        `yaml:"facts"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN keeps
// articles in memory.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// SchedulerConfig defines when the daily regeneration runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GenerationConfig parameterizes the batch orchestrator.
type GenerationConfig struct {
	RequestInterval    time.Duration   `yaml:"requestInterval"`
	BatchSize          int             `yaml:"batchSize"`
	Concurrency        int             `yaml:"concurrency"`
	BatchDelay         time.Duration   `yaml:"batchDelay"`
	MaxRetries         int             `yaml:"maxRetries"`
	BackoffBase        time.Duration   `yaml:"backoffBase"`
	BackoffMax         time.Duration   `yaml:"backoffMax"`
	BatchRetryDelays   []time.Duration `yaml:"batchRetryDelays"`
	Continuous         bool            `yaml:"continuous"`
	FreshnessThreshold time.Duration   `yaml:"freshnessThreshold"`
	CycleDelay         time.Duration   `yaml:"cycleDelay"`
	RestartDelay       time.Duration   `yaml:"restartDelay"`
	ReplaceToday       bool            `yaml:"replaceToday"`
	UseFallback        bool            `yaml:"useFallback"`
	SlugAttempts       int             `yaml:"slugAttempts"`
	ThemeMode          string          `yaml:"themeMode"`
	Seed               int64           `yaml:"seed"`
}

// LLMConfig defines how to contact the text generation provider.
type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	BaseURL      string        `yaml:"baseUrl"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"maxTokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CheckpointConfig selects where the batch cursor is persisted.
type CheckpointConfig struct {
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	RedisAddr string `yaml:"redisAddr"`
	RedisDB   int    `yaml:"redisDb"`
	Key       string `yaml:"key"`
}

// Path joins the checkpoint directory and file name.
func (c CheckpointConfig) Path() string {
	return filepath.Join(c.Dir, c.File)
}

// CitiesConfig points at an optional replacement for the embedded city list.
type CitiesConfig struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"`
}

// FactsConfig controls the Wikipedia fact lookup.
type FactsConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"baseUrl"`
	Sentences int           `yaml:"sentences"`
	Timeout   time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()
	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// LoadFile decodes a YAML document over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.bindTimezone()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	} else if v := os.Getenv(openAIAPIKeyEnv); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Checkpoint.RedisAddr = v
	}
	if v := os.Getenv(checkpointDirEnv); v != "" {
		c.Checkpoint.Dir = v
	} else if v := os.Getenv(volumeMountEnv); v != "" {
		c.Checkpoint.Dir = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{MaxOpenConns: 5},
		Scheduler: SchedulerConfig{CronExpression: "0 2 * * *", Timezone: defaultTimezone, location: tz},
		Generation: GenerationConfig{
			RequestInterval:    3 * time.Second,
			BatchSize:          10,
			Concurrency:        3,
			BatchDelay:         2 * time.Second,
			MaxRetries:         3,
			BackoffBase:        5 * time.Second,
			BackoffMax:         time.Minute,
			BatchRetryDelays:   []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second},
			FreshnessThreshold: 6 * time.Hour,
			CycleDelay:         time.Minute,
			RestartDelay:       30 * time.Second,
			UseFallback:        true,
			SlugAttempts:       5,
			ThemeMode:          "random",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
			MaxTokens:   1000,
			Timeout:     60 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Backend: "file",
			Dir:     ".",
			File:    "generation-progress.json",
			Key:     "dailyholler:checkpoint",
		},
		Facts: FactsConfig{
			BaseURL:   "https://en.wikipedia.org/wiki/",
			Sentences: 2,
			Timeout:   10 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:              ":3001",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
	}
}
