package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	jiraadapter "github.com/arcnid/innovation-jira/internal/adapter/jira"
	"github.com/arcnid/innovation-jira/internal/config"
	domainjira "github.com/arcnid/innovation-jira/internal/domain/jira"
)

// IssueService serves the idea pages: the epic listing, per-epic detail with
// children, and issue creation.
type IssueService struct {
	jira   jiraadapter.Client
	sites  *SiteService
	cfg    config.Config
	logger *zap.Logger
}

// NewIssueService wires dependencies.
func NewIssueService(client jiraadapter.Client, sites *SiteService, cfg config.Config, logger *zap.Logger) *IssueService {
	return &IssueService{jira: client, sites: sites, cfg: cfg, logger: logger}
}

// CreateIssueInput is the inbound issue-creation payload.
type CreateIssueInput struct {
	ProjectKey  string `json:"projectKey"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	IssueType   string `json:"issueType"`
}

// ListEpics pages through the ideas project until the reported total is
// reached, then filters for epics. Any page failure discards prior pages.
func (s *IssueService) ListEpics(ctx context.Context, tenant string) ([]domainjira.Issue, error) {
	baseURL, token, err := s.sites.Session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	jql := "project=" + s.cfg.IdeasProjectKey
	pageSize := s.cfg.SearchPageSize

	var all []domainjira.Issue
	startAt := 0
	total := 0
	for {
		page, err := s.jira.SearchIssues(ctx, baseURL, token.AccessToken, jql, startAt, pageSize)
		if err != nil {
			return nil, upstreamError("Failed to fetch issues", err)
		}
		if startAt == 0 {
			total = page.Total
		}
		all = append(all, page.Issues...)
		startAt += pageSize
		if startAt >= total {
			break
		}
	}

	epics := make([]domainjira.Issue, 0, len(all))
	for _, issue := range all {
		if issue.Fields.IssueType.Name == "Epic" {
			epics = append(epics, issue)
		}
	}
	return epics, nil
}

// GetIssueWithChildren fetches one issue and searches for its children. A
// child-search failure is logged and yields an empty children list rather
// than failing the whole request.
func (s *IssueService) GetIssueWithChildren(ctx context.Context, tenant, key string) (*domainjira.IssueDetail, error) {
	baseURL, token, err := s.sites.Session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	issue, err := s.jira.GetIssue(ctx, baseURL, token.AccessToken, key)
	if err != nil {
		return nil, upstreamError("Failed to fetch issue", err)
	}

	children := []domainjira.Issue{}
	childJQL := fmt.Sprintf("parent = %q", key)
	if result, err := s.jira.SearchIssues(ctx, baseURL, token.AccessToken, childJQL, 0, s.cfg.SearchPageSize); err != nil {
		s.logger.Warn("failed to search for child issues",
			zap.String("tenant", tenant),
			zap.String("issue_key", key),
			zap.Error(err),
		)
	} else if result.Issues != nil {
		children = result.Issues
	}

	return &domainjira.IssueDetail{Issue: *issue, Children: children}, nil
}

// Create validates the input locally, wraps the description in a minimal ADF
// document, and submits the issue. Validation failures never reach Jira.
func (s *IssueService) Create(ctx context.Context, tenant string, in CreateIssueInput) (*domainjira.CreatedIssue, error) {
	if strings.TrimSpace(in.ProjectKey) == "" || strings.TrimSpace(in.Summary) == "" || strings.TrimSpace(in.IssueType) == "" {
		return nil, newAPIError(http.StatusBadRequest,
			"Missing required fields. 'projectKey', 'summary', and 'issueType' are required.", "")
	}

	baseURL, token, err := s.sites.Session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	description := in.Description
	if description == "" {
		description = "No description provided"
	}

	created, err := s.jira.CreateIssue(ctx, baseURL, token.AccessToken, domainjira.CreateIssueRequest{
		Fields: domainjira.CreateIssueFields{
			Project:     domainjira.ProjectRef{Key: in.ProjectKey},
			Summary:     in.Summary,
			Description: domainjira.NewDocument(description),
			IssueType:   domainjira.IssueTypeRef{Name: in.IssueType},
		},
	})
	if err != nil {
		return nil, upstreamError("Failed to create issue", err)
	}

	s.logger.Info("issue created",
		zap.String("tenant", tenant),
		zap.String("issue_key", created.Key),
		zap.String("project_key", in.ProjectKey),
	)
	return created, nil
}
