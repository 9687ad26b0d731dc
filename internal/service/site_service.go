package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	atlassianadapter "github.com/arcnid/innovation-jira/internal/adapter/atlassian"
	"github.com/arcnid/innovation-jira/internal/config"
	"github.com/arcnid/innovation-jira/internal/domain"
	domainatlassian "github.com/arcnid/innovation-jira/internal/domain/atlassian"
	"github.com/arcnid/innovation-jira/internal/repository"
)

// SiteService maps a valid bearer token to the tenant-scoped Jira REST base
// URL and keeps the site record current.
type SiteService struct {
	sites     repository.SiteRepository
	tokens    *TokenService
	atlassian atlassianadapter.Client
	node      *snowflake.Node
	cfg       config.Config
	logger    *zap.Logger
}

// NewSiteService wires dependencies.
func NewSiteService(sites repository.SiteRepository, tokens *TokenService, client atlassianadapter.Client, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *SiteService {
	return &SiteService{
		sites:     sites,
		tokens:    tokens,
		atlassian: client,
		node:      node,
		cfg:       cfg,
		logger:    logger,
	}
}

// AccessibleResources lists the sites the tenant's token is authorized for.
func (s *SiteService) AccessibleResources(ctx context.Context, tenant string) ([]domainatlassian.Resource, error) {
	token, err := s.tokens.Valid(ctx, tenant)
	if err != nil {
		return nil, err
	}
	resources, err := s.atlassian.AccessibleResources(ctx, token.AccessToken)
	if err != nil {
		return nil, upstreamError("Failed to fetch accessible resources", err)
	}
	return resources, nil
}

// ResolveRequestURL discovers the tenant's site, derives the Jira REST base
// URL, and rewrites the site record. Resource index 0 is selected
// deterministically; multi-site tokens are not supported.
func (s *SiteService) ResolveRequestURL(ctx context.Context, tenant string) (string, domain.SiteRecord, error) {
	resources, err := s.AccessibleResources(ctx, tenant)
	if err != nil {
		return "", domain.SiteRecord{}, err
	}
	if len(resources) == 0 {
		return "", domain.SiteRecord{}, newAPIError(http.StatusNotFound, "No accessible resources found", "")
	}

	site := resources[0]
	jiraAPIURL := fmt.Sprintf("%s/ex/jira/%s/rest/api", strings.TrimRight(s.cfg.APIBaseURL, "/"), site.ID)

	saved, err := s.sites.Upsert(ctx, domain.SiteRecord{
		ID:         s.node.Generate().Int64(),
		Tenant:     tenant,
		SiteID:     site.ID,
		Name:       site.Name,
		URL:        site.URL,
		JiraAPIURL: jiraAPIURL,
		Scopes:     site.Scopes,
	})
	if err != nil {
		return "", domain.SiteRecord{}, persistenceError("Error saving site record", err)
	}

	return jiraAPIURL, saved, nil
}

// Session resolves the base URL and a valid bearer token in one step; every
// Jira aggregation call starts here.
func (s *SiteService) Session(ctx context.Context, tenant string) (string, domain.TokenRecord, error) {
	baseURL, _, err := s.ResolveRequestURL(ctx, tenant)
	if err != nil {
		return "", domain.TokenRecord{}, err
	}
	token, err := s.tokens.Valid(ctx, tenant)
	if err != nil {
		return "", domain.TokenRecord{}, err
	}
	return baseURL, token, nil
}
