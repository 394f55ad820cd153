package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Temporal configuration.
	TemporalAddress   string `mapstructure:"TEMPORAL_ADDRESS"`
	TemporalNamespace string `mapstructure:"TEMPORAL_NAMESPACE"`
	TaskQueue         string `mapstructure:"TASK_QUEUE"`

	// Redis configuration.
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisEventsDB  int           `mapstructure:"REDIS_EVENTS_DB"`
	RedisSessionDB int           `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int           `mapstructure:"REDIS_QUEUE_DB"`
	EventNamespace string        `mapstructure:"EVENT_NAMESPACE"`
	SessionIdleTTL time.Duration `mapstructure:"SESSION_IDLE_TTL"`

	// Reasoning provider.
	GeminiAPIKey      string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string `mapstructure:"GEMINI_MODEL"`
	GeminiReviewModel string `mapstructure:"GEMINI_REVIEW_MODEL"`

	// Google Places API Key.
	GooglePlacesAPIKey string  `mapstructure:"GOOGLE_PLACES_API_KEY"`
	PlacesRatePerSec   float64 `mapstructure:"PLACES_RATE_PER_SEC"`
	AdvisoryURL        string  `mapstructure:"ADVISORY_URL"`

	// Results archive. Empty DATABASE_URL disables it.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Orchestration tuning.
	MaxAttempts        int    `mapstructure:"MAX_ATTEMPTS"`
	MaxCritiqueRounds  int    `mapstructure:"MAX_CRITIQUE_ROUNDS"`
	MailboxCapacity    int    `mapstructure:"MAILBOX_CAPACITY"`
	MailboxPolicy      string `mapstructure:"MAILBOX_POLICY"`
	MaxTranscript      int    `mapstructure:"MAX_TRANSCRIPT"`
	MaxCritiqueHistory int    `mapstructure:"MAX_CRITIQUE_HISTORY"`
	ContinueAsNewAfter int    `mapstructure:"CONTINUE_AS_NEW_AFTER"`
	MaxPhaseRetries    int    `mapstructure:"MAX_PHASE_RETRIES"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("TEMPORAL_ADDRESS", "localhost:7233")
	v.SetDefault("TEMPORAL_NAMESPACE", "default")
	v.SetDefault("TASK_QUEUE", "pois-self-improving-v2")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_EVENTS_DB", 0)
	v.SetDefault("REDIS_SESSION_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 2)
	v.SetDefault("EVENT_NAMESPACE", "chainlit")
	v.SetDefault("SESSION_IDLE_TTL", "2h")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_REVIEW_MODEL", "gemini-2.5-pro")
	v.SetDefault("GOOGLE_PLACES_API_KEY", "")
	v.SetDefault("PLACES_RATE_PER_SEC", 5.0)
	v.SetDefault("ADVISORY_URL", "https://travel.state.gov/en/international-travel/travel-advisories.html")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_NAME", "wayfarer")
	v.SetDefault("MAX_ATTEMPTS", 20)
	v.SetDefault("MAX_CRITIQUE_ROUNDS", 8)
	v.SetDefault("MAILBOX_CAPACITY", 1)
	v.SetDefault("MAILBOX_POLICY", "drop_oldest")
	v.SetDefault("MAX_TRANSCRIPT", 200)
	v.SetDefault("MAX_CRITIQUE_HISTORY", 100)
	v.SetDefault("CONTINUE_AS_NEW_AFTER", 10)
	v.SetDefault("MAX_PHASE_RETRIES", 3)
}

// Load reads configuration from an optional config.yaml (in . or ./config)
// and the environment, environment winning.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig populates AppConfig from the global viper instance.
func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
