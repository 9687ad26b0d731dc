package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment         string
	HTTPPort            string
	DatabaseURL         string
	ClientID            string
	ClientSecret        string
	RedirectURI         string
	OAuthScopes         []string
	AuthBaseURL         string
	APIBaseURL          string
	DefaultTenant       string
	IdeasProjectKey     string
	TimeProjectKey      string
	QualifiedHoursField string
	MarketRates         map[string]float64
	SearchPageSize      int
	FanoutLimit         int
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	ServiceName         string
	RateLimitRPM        int
	TelemetryEndpoint   string
	TelemetryInsecure   bool
	CORSAllowedOrigins  []string
	CORSAllowedMethods  []string
	CORSAllowedHeaders  []string
	HTTPClientTimeout   time.Duration
}

// Load reads configuration from environment variables with sane defaults.
// The Atlassian OAuth trio and DATABASE_URL are required; everything else
// falls back to a default.
func Load() (Config, error) {
	_ = godotenv.Load()

	clientID := strings.TrimSpace(os.Getenv("CLIENT_ID"))
	if clientID == "" {
		return Config{}, fmt.Errorf("CLIENT_ID is required")
	}
	clientSecret := strings.TrimSpace(os.Getenv("CLIENT_SECRET"))
	if clientSecret == "" {
		return Config{}, fmt.Errorf("CLIENT_SECRET is required")
	}
	redirectURI := strings.TrimSpace(os.Getenv("REDIRECT_URI"))
	if redirectURI == "" {
		return Config{}, fmt.Errorf("REDIRECT_URI is required")
	}

	cfg := Config{
		Environment:         getEnv("APP_ENV", "development"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ClientID:            clientID,
		ClientSecret:        clientSecret,
		RedirectURI:         redirectURI,
		OAuthScopes:         getList("OAUTH_SCOPES", []string{"read:jira-work", "write:jira-work", "offline_access"}),
		AuthBaseURL:         getEnv("ATLASSIAN_AUTH_URL", "https://auth.atlassian.com"),
		APIBaseURL:          getEnv("ATLASSIAN_API_URL", "https://api.atlassian.com"),
		DefaultTenant:       getEnv("DEFAULT_TENANT", "default"),
		IdeasProjectKey:     getEnv("IDEAS_PROJECT_KEY", "TP"),
		TimeProjectKey:      getEnv("TIME_PROJECT_KEY", "GUARD"),
		QualifiedHoursField: getEnv("QUALIFIED_HOURS_FIELD", "customfield_10131"),
		MarketRates:         getRates("MARKET_RATES", defaultMarketRates()),
		SearchPageSize:      getInt("SEARCH_PAGE_SIZE", 100),
		FanoutLimit:         getInt("FANOUT_LIMIT", 8),
		RedisAddr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getInt("REDIS_DB", 0),
		ServiceName:         getEnv("SERVICE_NAME", "innovation-jira"),
		RateLimitRPM:        getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:   getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:  getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:  getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Tenant-ID"}),
		HTTPClientTimeout:   getDuration("HTTP_CLIENT_TIMEOUT", 10*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SearchPageSize < 1 {
		cfg.SearchPageSize = 100
	}
	if cfg.FanoutLimit < 1 {
		cfg.FanoutLimit = 1
	}

	return cfg, nil
}

func defaultMarketRates() map[string]float64 {
	return map[string]float64{
		"Testing":       100,
		"Development":   120,
		"Prototyping":   120,
		"Documentation": 100,
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}

// getRates parses "Development=120,Testing=100" style overrides. Entries that
// fail to parse are skipped; an empty result keeps the defaults.
func getRates(key string, def map[string]float64) map[string]float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	rates := make(map[string]float64)
	for _, pair := range strings.Split(v, ",") {
		name, raw, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		name = strings.TrimSpace(name)
		if name != "" {
			rates[name] = rate
		}
	}
	if len(rates) == 0 {
		return def
	}
	return rates
}
