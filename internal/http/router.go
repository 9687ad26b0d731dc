package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/arcnid/innovation-jira/internal/config"
	"github.com/arcnid/innovation-jira/internal/http/handler"
	httpmiddleware "github.com/arcnid/innovation-jira/internal/http/middleware"
	"github.com/arcnid/innovation-jira/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, portal *handler.PortalHandler, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.GET("/login", portal.Login)
			auth.GET("/callback", portal.OAuthCallback)
		}

		api.GET("/sites", portal.AccessibleResources)
		api.GET("/url", portal.RequestURL)

		api.GET("/ideas", portal.ListIdeas)
		api.GET("/ideas/:issueKey", portal.GetIdea)
		api.POST("/issues", portal.CreateIssue)

		api.GET("/time", portal.TimeReport)
		api.GET("/time/breakdown", portal.TimeBreakdown)

		api.GET("/projects", portal.ListProjects)
		api.GET("/projects/formatted", portal.FormattedProjects)
	}

	r.GET("/healthz", portal.Health)

	// UI is served only as static files; all portal logic stays on the API
	// routes.
	attachUIRoutes(r, filepath.Join("ui", "dist"))

	return r
}

func attachUIRoutes(r *gin.Engine, distDir string) {
	indexPath := filepath.Join(distDir, "index.html")

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if isAPIPath(path) {
			c.Status(http.StatusNotFound)
			return
		}

		if filePath, ok := safeJoin(distDir, path); ok {
			if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
				c.File(filePath)
				return
			}
		}

		c.File(indexPath)
	})
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/healthz")
}

func safeJoin(baseDir, requestPath string) (string, bool) {
	trimmed := strings.TrimPrefix(requestPath, "/")
	cleaned := filepath.Clean(trimmed)
	if cleaned == "." {
		return filepath.Join(baseDir, cleaned), true
	}
	if strings.HasPrefix(cleaned, "..") {
		return "", false
	}
	return filepath.Join(baseDir, cleaned), true
}
