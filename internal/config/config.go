package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Origins   []string
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

// RateLimitConfig bounds websocket connection attempts per client IP. The
// limiter needs Redis; it is skipped entirely when REDIS_URL is empty.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func LoadConfig() (*Config, error) {
	// Viper setup
	once.Do(func() {
		viper.SetDefault("GATEWAY_ENV", "dev")
		viper.SetDefault("GATEWAY_HOST", "")
		viper.SetDefault("GATEWAY_PORT", "3000")
		viper.SetDefault("GATEWAY_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("GATEWAY_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("GATEWAY_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("GATEWAY_WS_CONN_LIMIT", 30)
		viper.SetDefault("GATEWAY_WS_CONN_WINDOW", time.Minute)
		viper.SetDefault("ALLOWED_ORIGINS", "")
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			Env: viper.GetString("GATEWAY_ENV"),
			Server: ServerConfig{
				Host:         viper.GetString("GATEWAY_HOST"),
				Port:         viper.GetString("GATEWAY_PORT"),
				ReadTimeout:  viper.GetDuration("GATEWAY_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("GATEWAY_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("GATEWAY_IDLE_TIMEOUT"),
			},
			Redis: RedisConfig{
				URL:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			RateLimit: RateLimitConfig{
				Requests: viper.GetInt("GATEWAY_WS_CONN_LIMIT"),
				Window:   viper.GetDuration("GATEWAY_WS_CONN_WINDOW"),
			},
			Origins: splitOrigins(viper.GetString("ALLOWED_ORIGINS")),
		}
	})

	return ConfigInstance, nil
}

func splitOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
