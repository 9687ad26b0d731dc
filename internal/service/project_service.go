package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jiraadapter "github.com/arcnid/innovation-jira/internal/adapter/jira"
	"github.com/arcnid/innovation-jira/internal/config"
	domainjira "github.com/arcnid/innovation-jira/internal/domain/jira"
)

// ProjectService aggregates the project list with per-project detail and
// statuses for the admin dashboard.
type ProjectService struct {
	jira   jiraadapter.Client
	sites  *SiteService
	cfg    config.Config
	logger *zap.Logger
}

// NewProjectService wires dependencies.
func NewProjectService(client jiraadapter.Client, sites *SiteService, cfg config.Config, logger *zap.Logger) *ProjectService {
	return &ProjectService{jira: client, sites: sites, cfg: cfg, logger: logger}
}

// ProjectOverview is one project enriched with its detail and statuses.
// Per-item fetch failures land in the error fields instead of failing the
// batch.
type ProjectOverview struct {
	domainjira.Project
	Details       *domainjira.Project            `json:"details,omitempty"`
	DetailsError  string                         `json:"error,omitempty"`
	Statuses      []domainjira.IssueTypeStatuses `json:"statuses,omitempty"`
	StatusesError string                         `json:"statusesError,omitempty"`
}

// ProjectSummary is the reduced shape the idea-submission form consumes.
type ProjectSummary struct {
	ID   string           `json:"id"`
	Key  string           `json:"key"`
	Name string           `json:"name"`
	Lead *domainjira.User `json:"lead,omitempty"`
}

// ListWithDetail fetches the project list and fans out one detail and one
// statuses request per project. Outbound concurrency is capped by the
// configured limit; results keep the input order.
func (s *ProjectService) ListWithDetail(ctx context.Context, tenant string) ([]ProjectOverview, error) {
	baseURL, token, err := s.sites.Session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	projects, err := s.jira.ListProjects(ctx, baseURL, token.AccessToken)
	if err != nil {
		return nil, upstreamError("Failed to fetch projects", err)
	}

	overviews := make([]ProjectOverview, len(projects))
	var g errgroup.Group
	g.SetLimit(s.cfg.FanoutLimit)
	for i, project := range projects {
		i, project := i, project
		overviews[i].Project = project
		g.Go(func() error {
			detail, err := s.jira.GetProject(ctx, baseURL, token.AccessToken, project.ID)
			if err != nil {
				overviews[i].DetailsError = "Failed to fetch project details"
				s.logger.Warn("project detail fetch failed",
					zap.String("project_id", project.ID), zap.Error(err))
			} else {
				overviews[i].Details = detail
			}

			statuses, err := s.jira.ProjectStatuses(ctx, baseURL, token.AccessToken, project.ID)
			if err != nil {
				overviews[i].StatusesError = "Failed to fetch project statuses"
				s.logger.Warn("project statuses fetch failed",
					zap.String("project_id", project.ID), zap.Error(err))
			} else {
				overviews[i].Statuses = statuses
			}
			return nil
		})
	}
	_ = g.Wait()

	return overviews, nil
}

// FormattedList reduces non-private projects to {id, key, name, lead}; the
// lead only appears on the project-detail payload, so each project costs one
// extra request.
func (s *ProjectService) FormattedList(ctx context.Context, tenant string) ([]ProjectSummary, error) {
	baseURL, token, err := s.sites.Session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	projects, err := s.jira.ListProjects(ctx, baseURL, token.AccessToken)
	if err != nil {
		return nil, upstreamError("Failed to fetch projects", err)
	}

	leads := make([]*domainjira.User, len(projects))
	var g errgroup.Group
	g.SetLimit(s.cfg.FanoutLimit)
	for i, project := range projects {
		i, project := i, project
		if project.IsPrivate {
			continue
		}
		g.Go(func() error {
			detail, err := s.jira.GetProject(ctx, baseURL, token.AccessToken, project.ID)
			if err != nil {
				s.logger.Warn("project lead fetch failed",
					zap.String("project_id", project.ID), zap.Error(err))
				return nil
			}
			leads[i] = detail.Lead
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]ProjectSummary, 0, len(projects))
	for i, project := range projects {
		if project.IsPrivate {
			continue
		}
		summaries = append(summaries, ProjectSummary{
			ID:   project.ID,
			Key:  project.Key,
			Name: project.Name,
			Lead: leads[i],
		})
	}
	return summaries, nil
}
