package service_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	atlassianadapter "github.com/arcnid/innovation-jira/internal/adapter/atlassian"
	domainatlassian "github.com/arcnid/innovation-jira/internal/domain/atlassian"
	"github.com/arcnid/innovation-jira/internal/service"
)

func TestValidReturnsUnexpiredToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seeded := h.seedToken(t, "default", time.Now().Add(time.Hour))

	token, err := h.tokenSvc.Valid(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, seeded.AccessToken, token.AccessToken)
	require.Zero(t, h.atlassian.refreshCount())
}

func TestValidRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seeded := h.seedToken(t, "default", time.Now().Add(-time.Second))
	h.atlassian.refreshResp = &domainatlassian.TokenResponse{
		AccessToken:  "fresh-access",
		RefreshToken: "fresh-refresh",
		TokenType:    "Bearer",
		Scope:        seeded.Scope,
		ExpiresIn:    3600,
	}

	token, err := h.tokenSvc.Valid(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, "fresh-access", token.AccessToken)
	require.Equal(t, "fresh-refresh", token.RefreshToken)
	require.Equal(t, seeded.ID, token.ID)
	require.True(t, token.ExpiresAt.After(time.Now()))
	require.Equal(t, 1, h.atlassian.refreshCount())

	// the row is rewritten in place, not duplicated
	require.Equal(t, 1, h.tokens.rowCount("default"))
}

func TestValidWithoutStoredToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.tokenSvc.Valid(context.Background(), "default")
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Access token not found", apiErr.Message)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seeded := h.seedToken(t, "default", time.Now().Add(-time.Minute))
	seeded.RefreshToken = ""
	_, err := h.tokens.Update(ctx, seeded)
	require.NoError(t, err)

	_, err = h.tokenSvc.Refresh(ctx, "default")
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "No refresh token available", apiErr.Message)
	require.Zero(t, h.atlassian.refreshCount())
}

func TestRefreshFailureCarriesUpstreamBody(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedToken(t, "default", time.Now().Add(-time.Minute))
	h.atlassian.refreshErr = &atlassianadapter.StatusError{
		Op:         "token refresh",
		StatusCode: http.StatusForbidden,
		Body:       `{"error":"invalid_grant"}`,
	}

	_, err := h.tokenSvc.Refresh(ctx, "default")
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "Failed to refresh token", apiErr.Message)
	require.Contains(t, apiErr.Details, "invalid_grant")
}

func TestConcurrentRefreshHitsProviderOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedToken(t, "default", time.Now().Add(-time.Minute))
	h.atlassian.refreshDelay = 50 * time.Millisecond
	h.atlassian.refreshResp = &domainatlassian.TokenResponse{
		AccessToken:  "fresh-access",
		RefreshToken: "fresh-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	got := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := h.tokenSvc.Refresh(ctx, "default")
			errs[i] = err
			got[i] = token.AccessToken
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "fresh-access", got[i])
	}

	require.Equal(t, 1, h.atlassian.refreshCount())
	require.Equal(t, 1, h.tokens.rowCount("default"))
}

func TestSaveOrUpdateRewritesExistingRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	seeded := h.seedToken(t, "default", time.Now().Add(time.Hour))

	updated, err := h.tokenSvc.SaveOrUpdate(ctx, "default", &domainatlassian.TokenResponse{
		AccessToken:  "second-access",
		RefreshToken: "second-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)
	require.Equal(t, seeded.ID, updated.ID)
	require.Equal(t, "second-access", updated.AccessToken)
	require.Equal(t, 1, h.tokens.rowCount("default"))
}

func TestSaveOrUpdateInsertsFirstRow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	saved, err := h.tokenSvc.SaveOrUpdate(ctx, "default", &domainatlassian.TokenResponse{
		AccessToken:  "first-access",
		RefreshToken: "first-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	})
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	require.True(t, saved.ExpiresAt.After(time.Now().Add(59*time.Minute)))
	require.Equal(t, 1, h.tokens.rowCount("default"))
}

func TestTokensAreScopedByTenant(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedToken(t, "alpha", time.Now().Add(time.Hour))

	_, err := h.tokenSvc.Latest(ctx, "beta")
	var apiErr *service.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	token, err := h.tokenSvc.Latest(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, "alpha", token.Tenant)
}
