package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arcnid/innovation-jira/internal/config"
)

func setRequired(t *testing.T) {
	t.Setenv("CLIENT_ID", "client-id")
	t.Setenv("CLIENT_SECRET", "client-secret")
	t.Setenv("REDIRECT_URI", "https://portal.example.com/api/auth/callback")
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "https://auth.atlassian.com", cfg.AuthBaseURL)
	require.Equal(t, "https://api.atlassian.com", cfg.APIBaseURL)
	require.Equal(t, "default", cfg.DefaultTenant)
	require.Equal(t, "TP", cfg.IdeasProjectKey)
	require.Equal(t, "GUARD", cfg.TimeProjectKey)
	require.Equal(t, "customfield_10131", cfg.QualifiedHoursField)
	require.Equal(t, []string{"read:jira-work", "write:jira-work", "offline_access"}, cfg.OAuthScopes)
	require.Equal(t, 100, cfg.SearchPageSize)
	require.Equal(t, 8, cfg.FanoutLimit)
	require.Equal(t, 10*time.Second, cfg.HTTPClientTimeout)
	require.Equal(t, 120.0, cfg.MarketRates["Development"])
	require.Equal(t, 100.0, cfg.MarketRates["Testing"])
}

func TestLoadRequiresOAuthSettings(t *testing.T) {
	t.Setenv("CLIENT_ID", "")
	t.Setenv("CLIENT_SECRET", "client-secret")
	t.Setenv("REDIRECT_URI", "https://portal.example.com/api/auth/callback")
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")

	_, err := config.Load()
	require.ErrorContains(t, err, "CLIENT_ID is required")
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("CLIENT_ID", "client-id")
	t.Setenv("CLIENT_SECRET", "client-secret")
	t.Setenv("REDIRECT_URI", "https://portal.example.com/api/auth/callback")
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	require.ErrorContains(t, err, "DATABASE_URL is required")
}

func TestLoadParsesMarketRateOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MARKET_RATES", "Development=150, Testing=90,bogus,Empty=")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 150.0, cfg.MarketRates["Development"])
	require.Equal(t, 90.0, cfg.MarketRates["Testing"])
	require.NotContains(t, cfg.MarketRates, "bogus")
	require.NotContains(t, cfg.MarketRates, "Empty")
}

func TestLoadParsesLists(t *testing.T) {
	setRequired(t)
	t.Setenv("OAUTH_SCOPES", "read:jira-work, offline_access")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://portal.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"read:jira-work", "offline_access"}, cfg.OAuthScopes)
	require.Equal(t, []string{"https://portal.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadClampsPagingAndFanout(t *testing.T) {
	setRequired(t)
	t.Setenv("SEARCH_PAGE_SIZE", "0")
	t.Setenv("FANOUT_LIMIT", "-3")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 100, cfg.SearchPageSize)
	require.Equal(t, 1, cfg.FanoutLimit)
}
