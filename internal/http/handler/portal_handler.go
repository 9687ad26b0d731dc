package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arcnid/innovation-jira/internal/config"
	"github.com/arcnid/innovation-jira/internal/service"
)

// PortalHandler serves every JSON endpoint the portal pages consume.
type PortalHandler struct {
	Auth     *service.AuthService
	Sites    *service.SiteService
	Issues   *service.IssueService
	Projects *service.ProjectService
	Reports  *service.ReportService
	Config   config.Config
	Logger   *zap.Logger
}

// NewPortalHandler creates the handler set.
func NewPortalHandler(auth *service.AuthService, sites *service.SiteService, issues *service.IssueService, projects *service.ProjectService, reports *service.ReportService, cfg config.Config, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{
		Auth:     auth,
		Sites:    sites,
		Issues:   issues,
		Projects: projects,
		Reports:  reports,
		Config:   cfg,
		Logger:   logger,
	}
}

// Login returns the Atlassian consent URL for the frontend to redirect to.
func (h *PortalHandler) Login(c *gin.Context) {
	redirect, err := h.Auth.LoginURL(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error preparing login", err)
		return
	}
	c.JSON(http.StatusOK, redirect)
}

// OAuthCallback handles the Atlassian redirect: exchanges the code, stores
// the token, and resolves the Jira base URL.
func (h *PortalHandler) OAuthCallback(c *gin.Context) {
	result, err := h.Auth.HandleCallback(
		c.Request.Context(),
		h.tenant(c),
		c.Query("code"),
		c.Query("state"),
		c.Query("error"),
	)
	if err != nil {
		h.respondError(c, "Error during token exchange", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AccessibleResources proxies the accessible-resources listing.
func (h *PortalHandler) AccessibleResources(c *gin.Context) {
	resources, err := h.Sites.AccessibleResources(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error fetching accessible resources", err)
		return
	}
	c.JSON(http.StatusOK, resources)
}

// RequestURL resolves and returns the tenant's Jira REST base URL.
func (h *PortalHandler) RequestURL(c *gin.Context) {
	jiraAPIURL, site, err := h.Sites.ResolveRequestURL(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error crafting Jira API URL", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jiraApiUrl": jiraAPIURL, "site": site})
}

// ListIdeas returns the filtered epic list for the idea dashboard.
func (h *PortalHandler) ListIdeas(c *gin.Context) {
	epics, err := h.Issues.ListEpics(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error fetching issues", err)
		return
	}
	c.JSON(http.StatusOK, epics)
}

// GetIdea returns one issue with its children appended.
func (h *PortalHandler) GetIdea(c *gin.Context) {
	key := strings.TrimSpace(c.Param("issueKey"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Issue key is required"})
		return
	}
	detail, err := h.Issues.GetIssueWithChildren(c.Request.Context(), h.tenant(c), key)
	if err != nil {
		h.respondError(c, "Error fetching issue", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// CreateIssue submits a new issue from the idea form.
func (h *PortalHandler) CreateIssue(c *gin.Context) {
	var input service.CreateIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	created, err := h.Issues.Create(c.Request.Context(), h.tenant(c), input)
	if err != nil {
		h.respondError(c, "Error creating issue", err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// TimeReport returns the reporting project's issues annotated with their
// qualified-hours category.
func (h *PortalHandler) TimeReport(c *gin.Context) {
	issues, err := h.Reports.QualifiedIssues(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error fetching issues", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "total": len(issues)})
}

// TimeBreakdown returns the per-category cost report.
func (h *PortalHandler) TimeBreakdown(c *gin.Context) {
	report, err := h.Reports.Breakdown(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error building time breakdown", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListProjects returns the project list with per-project detail and statuses.
func (h *PortalHandler) ListProjects(c *gin.Context) {
	projects, err := h.Projects.ListWithDetail(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error fetching projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// FormattedProjects returns the reduced non-private project list.
func (h *PortalHandler) FormattedProjects(c *gin.Context) {
	projects, err := h.Projects.FormattedList(c.Request.Context(), h.tenant(c))
	if err != nil {
		h.respondError(c, "Error fetching projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// Health is the liveness probe.
func (h *PortalHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PortalHandler) tenant(c *gin.Context) string {
	if tenant := strings.TrimSpace(c.GetHeader("X-Tenant-ID")); tenant != "" {
		return tenant
	}
	if tenant := strings.TrimSpace(c.Query("tenant")); tenant != "" {
		return tenant
	}
	return h.Config.DefaultTenant
}

func (h *PortalHandler) respondError(c *gin.Context, fallback string, err error) {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		body := gin.H{"error": apiErr.Message}
		if apiErr.Details != "" {
			body["details"] = apiErr.Details
		}
		c.JSON(apiErr.Status, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
}
