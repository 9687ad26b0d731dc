package service

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"

	jiraadapter "github.com/arcnid/innovation-jira/internal/adapter/jira"
	"github.com/arcnid/innovation-jira/internal/config"
	domainjira "github.com/arcnid/innovation-jira/internal/domain/jira"
)

// ReportService produces the qualified-hours cost report for the admin
// dashboard.
type ReportService struct {
	jira   jiraadapter.Client
	sites  *SiteService
	cfg    config.Config
	logger *zap.Logger
}

// NewReportService wires dependencies.
func NewReportService(client jiraadapter.Client, sites *SiteService, cfg config.Config, logger *zap.Logger) *ReportService {
	return &ReportService{jira: client, sites: sites, cfg: cfg, logger: logger}
}

// TimeIssue is an issue annotated with its qualified-hours category.
type TimeIssue struct {
	domainjira.Issue
	QualifiedHoursType string `json:"qualifiedHoursType,omitempty"`
}

// CategoryBreakdown totals one qualified-hours category.
type CategoryBreakdown struct {
	TotalHours    float64            `json:"totalHours"`
	MarketRate    float64            `json:"marketRate"`
	EstimatedCost float64            `json:"estimatedCost"`
	Assignees     map[string]float64 `json:"assignees"`
}

// HoursReport is the full cost report.
type HoursReport struct {
	Breakdown       map[string]CategoryBreakdown `json:"breakdown"`
	GrandTotalHours float64                      `json:"grandTotalHours"`
	GrandTotalCost  float64                      `json:"grandTotalCost"`
}

// knownCategories normalizes the custom-field option values the reporting
// project uses; unrecognized values pass through verbatim.
var knownCategories = map[string]string{
	"Development":   "Development",
	"Prototyping":   "Prototyping",
	"Documentation": "Documentation",
	"Testing":       "Testing",
}

// QualifiedIssues fetches the reporting project's issues and annotates each
// with its qualified-hours category.
func (s *ReportService) QualifiedIssues(ctx context.Context, tenant string) ([]TimeIssue, error) {
	baseURL, token, err := s.sites.Session(ctx, tenant)
	if err != nil {
		return nil, err
	}

	jql := "project=" + s.cfg.TimeProjectKey
	result, err := s.jira.SearchIssues(ctx, baseURL, token.AccessToken, jql, 0, s.cfg.SearchPageSize)
	if err != nil {
		return nil, upstreamError("Failed to fetch issues", err)
	}

	annotated := make([]TimeIssue, 0, len(result.Issues))
	for _, issue := range result.Issues {
		annotated = append(annotated, TimeIssue{
			Issue:              issue,
			QualifiedHoursType: categoryOf(issue.Fields.Custom[s.cfg.QualifiedHoursField]),
		})
	}
	return annotated, nil
}

// Breakdown aggregates annotated issues into per-category hour totals,
// per-assignee sub-totals, and market-rate cost estimates. Hours are rounded
// to two decimal places.
func (s *ReportService) Breakdown(ctx context.Context, tenant string) (*HoursReport, error) {
	issues, err := s.QualifiedIssues(ctx, tenant)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]CategoryBreakdown)
	grandTotal := 0.0
	for _, issue := range issues {
		category := issue.QualifiedHoursType
		if category == "" {
			continue
		}

		hours := float64(spentSeconds(issue.Issue)) / 3600

		assignee := "Unassigned"
		if issue.Fields.Assignee != nil {
			if issue.Fields.Assignee.DisplayName != "" {
				assignee = issue.Fields.Assignee.DisplayName
			} else if issue.Fields.Assignee.Name != "" {
				assignee = issue.Fields.Assignee.Name
			}
		}

		entry, ok := breakdown[category]
		if !ok {
			entry = CategoryBreakdown{
				MarketRate: s.cfg.MarketRates[category],
				Assignees:  make(map[string]float64),
			}
		}
		entry.TotalHours += hours
		entry.Assignees[assignee] += hours
		breakdown[category] = entry
		grandTotal += hours
	}

	totalCost := 0.0
	for category, entry := range breakdown {
		entry.TotalHours = round2(entry.TotalHours)
		for assignee, hours := range entry.Assignees {
			entry.Assignees[assignee] = round2(hours)
		}
		entry.EstimatedCost = round2(entry.TotalHours * entry.MarketRate)
		totalCost += entry.EstimatedCost
		breakdown[category] = entry
	}

	return &HoursReport{
		Breakdown:       breakdown,
		GrandTotalHours: round2(grandTotal),
		GrandTotalCost:  round2(totalCost),
	}, nil
}

func spentSeconds(issue domainjira.Issue) int64 {
	if issue.Fields.TimeTracking != nil && issue.Fields.TimeTracking.TimeSpentSeconds > 0 {
		return issue.Fields.TimeTracking.TimeSpentSeconds
	}
	return issue.Fields.TimeSpent
}

// categoryOf extracts the qualified-hours category from the raw custom field.
// Jira serves option fields in a few shapes depending on configuration:
// an array of strings, a bare string, an option object, or an array of
// option objects. The first value wins.
func categoryOf(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var values []string
	if err := json.Unmarshal(raw, &values); err == nil {
		if len(values) == 0 {
			return ""
		}
		return canonicalCategory(values[0])
	}

	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		return canonicalCategory(value)
	}

	type option struct {
		Value string `json:"value"`
	}
	var opt option
	if err := json.Unmarshal(raw, &opt); err == nil && opt.Value != "" {
		return canonicalCategory(opt.Value)
	}
	var opts []option
	if err := json.Unmarshal(raw, &opts); err == nil && len(opts) > 0 {
		return canonicalCategory(opts[0].Value)
	}

	return ""
}

func canonicalCategory(value string) string {
	trimmed := strings.TrimSpace(value)
	if mapped, ok := knownCategories[trimmed]; ok {
		return mapped
	}
	return trimmed
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
