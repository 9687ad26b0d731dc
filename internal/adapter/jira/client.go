package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainjira "github.com/arcnid/innovation-jira/internal/domain/jira"
)

// Client performs Jira Cloud REST v3 calls against a tenant-scoped base URL
// (".../ex/jira/{siteId}/rest/api") with a bearer token.
type Client interface {
	SearchIssues(ctx context.Context, baseURL, token, jql string, startAt, maxResults int) (*domainjira.SearchResult, error)
	GetIssue(ctx context.Context, baseURL, token, key string) (*domainjira.Issue, error)
	CreateIssue(ctx context.Context, baseURL, token string, req domainjira.CreateIssueRequest) (*domainjira.CreatedIssue, error)
	ListProjects(ctx context.Context, baseURL, token string) ([]domainjira.Project, error)
	GetProject(ctx context.Context, baseURL, token, projectID string) (*domainjira.Project, error)
	ProjectStatuses(ctx context.Context, baseURL, token, projectID string) ([]domainjira.IssueTypeStatuses, error)
}

// StatusError carries a non-2xx Jira response so callers can surface the
// upstream status and body verbatim.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

// HTTPClient is the default HTTP implementation of Client.
type HTTPClient struct {
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default Client.
func NewHTTPClient(client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{httpClient: client}
}

// SearchIssues runs one page of a JQL search with all fields.
func (c *HTTPClient) SearchIssues(ctx context.Context, baseURL, token, jql string, startAt, maxResults int) (*domainjira.SearchResult, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("fields", "*all")
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", strconv.Itoa(maxResults))

	var result domainjira.SearchResult
	if err := c.getJSON(ctx, "search issues", endpoint(baseURL, "/3/search")+"?"+q.Encode(), token, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetIssue fetches a single issue by key with all fields.
func (c *HTTPClient) GetIssue(ctx context.Context, baseURL, token, key string) (*domainjira.Issue, error) {
	var issue domainjira.Issue
	if err := c.getJSON(ctx, "get issue", endpoint(baseURL, "/3/issue/"+url.PathEscape(key))+"?fields=*all", token, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue submits a new issue.
func (c *HTTPClient) CreateIssue(ctx context.Context, baseURL, token string, createReq domainjira.CreateIssueRequest) (*domainjira.CreatedIssue, error) {
	payload, err := json.Marshal(createReq)
	if err != nil {
		return nil, fmt.Errorf("encode create issue payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(baseURL, "/3/issue"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build create issue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req, "create issue")
	if err != nil {
		return nil, err
	}

	var created domainjira.CreatedIssue
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("decode create issue response: %w", err)
	}
	return &created, nil
}

// ListProjects fetches the full project list.
func (c *HTTPClient) ListProjects(ctx context.Context, baseURL, token string) ([]domainjira.Project, error) {
	var projects []domainjira.Project
	if err := c.getJSON(ctx, "list projects", endpoint(baseURL, "/3/project"), token, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches one project's detail, including the lead.
func (c *HTTPClient) GetProject(ctx context.Context, baseURL, token, projectID string) (*domainjira.Project, error) {
	var project domainjira.Project
	if err := c.getJSON(ctx, "get project", endpoint(baseURL, "/3/project/"+url.PathEscape(projectID)), token, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ProjectStatuses fetches the valid statuses per issue type of a project.
func (c *HTTPClient) ProjectStatuses(ctx context.Context, baseURL, token, projectID string) ([]domainjira.IssueTypeStatuses, error) {
	var statuses []domainjira.IssueTypeStatuses
	if err := c.getJSON(ctx, "project statuses", endpoint(baseURL, "/3/project/"+url.PathEscape(projectID)+"/statuses"), token, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, op, rawURL, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *HTTPClient) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}
