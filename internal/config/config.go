package config

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	HTTPPort string
	LogLevel string

	// Secret signs identity tokens. TokenTTL is their lifetime.
	Secret   string
	TokenTTL time.Duration

	DatabaseDriver string
	DatabaseDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheTimeout  time.Duration

	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	AdminEmail    string
	AdminUsername string
	AdminPassword string

	CORSAllowedOrigins []string
}

// Load reads configuration from WEATHER_* environment variables with
// reasonable defaults. Nested keys use underscores, e.g. WEATHER_DATABASE_DSN.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix("WEATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "dev_secret")
	v.SetDefault("token_ttl", time.Hour)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:weather.db?_pragma=foreign_keys(1)")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl", 600*time.Second)
	v.SetDefault("cache.timeout", 2*time.Second)
	v.SetDefault("provider.base_url", "https://api.openweathermap.org")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout", 5*time.Second)
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("cors.allowed_origins", "*")

	port := v.GetString("http_port")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid WEATHER_HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	driver := strings.ToLower(v.GetString("database.driver"))
	if driver != "sqlite" && driver != "pgx" {
		log.Printf("unsupported WEATHER_DATABASE_DRIVER value %q, defaulting to sqlite", driver)
		driver = "sqlite"
	}

	return Config{
		HTTPPort:           port,
		LogLevel:           v.GetString("log_level"),
		Secret:             v.GetString("secret"),
		TokenTTL:           positiveDuration(v, "token_ttl", time.Hour),
		DatabaseDriver:     driver,
		DatabaseDSN:        v.GetString("database.dsn"),
		RedisAddr:          v.GetString("redis.addr"),
		RedisPassword:      v.GetString("redis.password"),
		RedisDB:            v.GetInt("redis.db"),
		CacheTTL:           positiveDuration(v, "cache.ttl", 600*time.Second),
		CacheTimeout:       positiveDuration(v, "cache.timeout", 2*time.Second),
		ProviderBaseURL:    strings.TrimRight(v.GetString("provider.base_url"), "/"),
		ProviderAPIKey:     v.GetString("provider.api_key"),
		ProviderTimeout:    positiveDuration(v, "provider.timeout", 5*time.Second),
		AdminEmail:         v.GetString("admin.email"),
		AdminUsername:      v.GetString("admin.username"),
		AdminPassword:      v.GetString("admin.password"),
		CORSAllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
}

// positiveDuration falls back to def when key is malformed or not positive.
func positiveDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		env := "WEATHER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		log.Printf("invalid %s value %q, defaulting to %s", env, v.GetString(key), def)
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
