package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

// Fixed fallbacks for the frontend the notifications deep-link into.
const (
	DefaultFrontendBaseURL = "https://app.haulmatch.com"
	DefaultAppName         = "HaulMatch"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type VapidConfig struct {
	PublicKey       string
	PrivateKey      string
	SubscriberEmail string
}

// Configured reports whether real push delivery is possible. Missing keys
// are an expected operational state, not a startup failure: the dispatcher
// degrades to simulated delivery instead.
func (v VapidConfig) Configured() bool {
	return v.PublicKey != "" && v.PrivateKey != "" && v.SubscriberEmail != ""
}

type FrontendConfig struct {
	BaseURL string
	AppName string
}

// RateLimitConfig is the location-update throttle policy. Unlike VAPID,
// an invalid policy here is a deployment error and fails startup.
type RateLimitConfig struct {
	LocationWindow time.Duration
	LocationMax    int
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID              string
	ListenAddr             string
	SubscriptionID         string
	SubscriptionDLQTopicID string
	NumPipelineWorkers     int
	MaxDispatchConcurrency int

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	Vapid      VapidConfig
	Frontend   FrontendConfig
	RateLimit  RateLimitConfig

	TopicID              string
	PubsubConsumerConfig *messagepipeline.GooglePubsubConsumerConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_ID", "source", "env")
		cfg.SubscriptionID = val
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(val)
	}
	if val := os.Getenv("SUBSCRIPTION_DLQ_TOPIC_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SUBSCRIPTION_DLQ_TOPIC_ID", "source", "env")
		cfg.SubscriptionDLQTopicID = val
	}
	if val := os.Getenv("NUM_PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			cfg.NumPipelineWorkers = workers
		}
	}
	if val := os.Getenv("MAX_DISPATCH_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxDispatchConcurrency = n
		}
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// VAPID Overrides
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PUBLIC_KEY", "source", "env")
		cfg.Vapid.PublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PRIVATE_KEY", "source", "env")
		cfg.Vapid.PrivateKey = val
	}
	if val := os.Getenv("VAPID_SUB_EMAIL"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_SUB_EMAIL", "source", "env")
		cfg.Vapid.SubscriberEmail = val
	}

	// Frontend Overrides
	if val := os.Getenv("FRONTEND_BASE_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "FRONTEND_BASE_URL", "source", "env")
		cfg.Frontend.BaseURL = val
	}
	if val := os.Getenv("APP_NAME"); val != "" {
		cfg.Frontend.AppName = val
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		rawOrigins := strings.Split(corsOrigins, ",")
		var cleanOrigins []string
		for _, o := range rawOrigins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.SubscriptionID == "" {
		return nil, fmt.Errorf("subscription_id is required (set via YAML or SUBSCRIPTION_ID env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 1
	}

	// Rate-limit policy: unset means default, anything explicitly invalid is
	// fatal — a bad throttle is a programming/deployment error.
	if cfg.RateLimit.LocationWindow == 0 {
		cfg.RateLimit.LocationWindow = 5 * time.Second
	}
	if cfg.RateLimit.LocationMax == 0 {
		cfg.RateLimit.LocationMax = 1
	}
	if cfg.RateLimit.LocationWindow < 0 {
		return nil, fmt.Errorf("rate_limit.location_window must be positive, got %s", cfg.RateLimit.LocationWindow)
	}
	if cfg.RateLimit.LocationMax < 0 {
		return nil, fmt.Errorf("rate_limit.location_max must be positive, got %d", cfg.RateLimit.LocationMax)
	}

	if cfg.Frontend.BaseURL == "" {
		cfg.Frontend.BaseURL = DefaultFrontendBaseURL
	}
	if cfg.Frontend.AppName == "" {
		cfg.Frontend.AppName = DefaultAppName
	}

	if !cfg.Vapid.Configured() {
		logger.Warn("VAPID credentials incomplete; push deliveries will be simulated")
	}

	if cfg.PubsubConsumerConfig == nil && cfg.SubscriptionID != "" {
		cfg.PubsubConsumerConfig = messagepipeline.NewGooglePubsubConsumerDefaults(cfg.SubscriptionID)
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
