package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	atlassianadapter "github.com/arcnid/innovation-jira/internal/adapter/atlassian"
	"github.com/arcnid/innovation-jira/internal/domain"
	domainatlassian "github.com/arcnid/innovation-jira/internal/domain/atlassian"
	"github.com/arcnid/innovation-jira/internal/repository"
)

// TokenService owns the OAuth token lifecycle: persistence, expiry checks,
// and transparent refresh. Valid is the single entry point callers must use
// to obtain a bearer token.
type TokenService struct {
	tokens    repository.TokenRepository
	atlassian atlassianadapter.Client
	node      *snowflake.Node
	logger    *zap.Logger
	now       func() time.Time

	// refreshes for the same tenant collapse into one provider call
	refresh singleflight.Group
}

// NewTokenService wires dependencies.
func NewTokenService(tokens repository.TokenRepository, client atlassianadapter.Client, node *snowflake.Node, logger *zap.Logger) *TokenService {
	return &TokenService{
		tokens:    tokens,
		atlassian: client,
		node:      node,
		logger:    logger,
		now:       time.Now,
	}
}

// Latest returns the most recently created token row for the tenant.
func (s *TokenService) Latest(ctx context.Context, tenant string) (domain.TokenRecord, error) {
	token, err := s.tokens.Latest(ctx, tenant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenRecord{}, newAPIError(http.StatusUnauthorized, "Access token not found", "")
		}
		return domain.TokenRecord{}, persistenceError("Error fetching token", err)
	}
	return token, nil
}

// Save inserts a new token row computed from a token-endpoint response.
func (s *TokenService) Save(ctx context.Context, tenant string, resp *domainatlassian.TokenResponse) (domain.TokenRecord, error) {
	now := s.now()
	record := domain.TokenRecord{
		ID:           s.node.Generate().Int64(),
		Tenant:       tenant,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	saved, err := s.tokens.Insert(ctx, record)
	if err != nil {
		return domain.TokenRecord{}, persistenceError("Error saving token", err)
	}
	return saved, nil
}

// Update rewrites the row identified by id with fresh token fields and a
// recomputed expiry.
func (s *TokenService) Update(ctx context.Context, id int64, resp *domainatlassian.TokenResponse) (domain.TokenRecord, error) {
	record := domain.TokenRecord{
		ID:           id,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		ExpiresIn:    resp.ExpiresIn,
		ExpiresAt:    s.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	updated, err := s.tokens.Update(ctx, record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenRecord{}, newAPIError(http.StatusNotFound, "Token not found", "")
		}
		return domain.TokenRecord{}, persistenceError("Error updating token", err)
	}
	return updated, nil
}

// SaveOrUpdate rewrites the tenant's existing row in place when one exists,
// otherwise inserts the first row.
func (s *TokenService) SaveOrUpdate(ctx context.Context, tenant string, resp *domainatlassian.TokenResponse) (domain.TokenRecord, error) {
	existing, err := s.tokens.Latest(ctx, tenant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.Save(ctx, tenant, resp)
		}
		return domain.TokenRecord{}, persistenceError("Error fetching token", err)
	}
	return s.Update(ctx, existing.ID, resp)
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the result. Concurrent refreshes for one tenant are deduplicated:
// the losers wait for the winner's row instead of racing the provider.
func (s *TokenService) Refresh(ctx context.Context, tenant string) (domain.TokenRecord, error) {
	result, err, _ := s.refresh.Do(tenant, func() (any, error) {
		return s.doRefresh(ctx, tenant)
	})
	if err != nil {
		return domain.TokenRecord{}, err
	}
	return result.(domain.TokenRecord), nil
}

func (s *TokenService) doRefresh(ctx context.Context, tenant string) (domain.TokenRecord, error) {
	latest, err := s.tokens.Latest(ctx, tenant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenRecord{}, newAPIError(http.StatusUnauthorized, "No refresh token available", "")
		}
		return domain.TokenRecord{}, persistenceError("Error fetching token", err)
	}
	if latest.RefreshToken == "" {
		return domain.TokenRecord{}, newAPIError(http.StatusUnauthorized, "No refresh token available", "")
	}

	resp, err := s.atlassian.RefreshToken(ctx, latest.RefreshToken)
	if err != nil {
		return domain.TokenRecord{}, upstreamError("Failed to refresh token", err)
	}

	updated, err := s.Update(ctx, latest.ID, resp)
	if err != nil {
		return domain.TokenRecord{}, err
	}

	s.logger.Info("access token refreshed",
		zap.String("tenant", tenant),
		zap.Int64("token_id", updated.ID),
		zap.Time("expires_at", updated.ExpiresAt),
	)
	return updated, nil
}

// Valid returns the latest token unchanged while its expiry is in the
// future, refreshing transparently otherwise.
func (s *TokenService) Valid(ctx context.Context, tenant string) (domain.TokenRecord, error) {
	latest, err := s.Latest(ctx, tenant)
	if err != nil {
		return domain.TokenRecord{}, err
	}
	if latest.Valid(s.now()) {
		return latest, nil
	}
	return s.Refresh(ctx, tenant)
}
