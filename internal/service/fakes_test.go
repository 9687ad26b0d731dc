package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arcnid/innovation-jira/internal/config"
	"github.com/arcnid/innovation-jira/internal/domain"
	domainatlassian "github.com/arcnid/innovation-jira/internal/domain/atlassian"
	domainjira "github.com/arcnid/innovation-jira/internal/domain/jira"
	"github.com/arcnid/innovation-jira/internal/service"
)

type memoryTokenRepo struct {
	mu          sync.Mutex
	rows        map[string][]domain.TokenRecord
	insertCalls int
	updateCalls int
}

func (m *memoryTokenRepo) Insert(ctx context.Context, token domain.TokenRecord) (domain.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.rows == nil {
		m.rows = make(map[string][]domain.TokenRecord)
	}
	token.CreatedAt = time.Now()
	token.UpdatedAt = token.CreatedAt
	m.rows[token.Tenant] = append(m.rows[token.Tenant], token)
	return token, nil
}

func (m *memoryTokenRepo) Update(ctx context.Context, token domain.TokenRecord) (domain.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for tenant, rows := range m.rows {
		for i, row := range rows {
			if row.ID == token.ID {
				token.Tenant = tenant
				token.CreatedAt = row.CreatedAt
				token.UpdatedAt = time.Now()
				m.rows[tenant][i] = token
				return token, nil
			}
		}
	}
	return domain.TokenRecord{}, pgx.ErrNoRows
}

func (m *memoryTokenRepo) Latest(ctx context.Context, tenant string) (domain.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[tenant]
	if len(rows) == 0 {
		return domain.TokenRecord{}, pgx.ErrNoRows
	}
	return rows[len(rows)-1], nil
}

func (m *memoryTokenRepo) rowCount(tenant string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[tenant])
}

type memorySiteRepo struct {
	mu          sync.Mutex
	rows        map[string]domain.SiteRecord
	upsertCalls int
}

func (m *memorySiteRepo) Get(ctx context.Context, tenant string) (domain.SiteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[tenant]
	if !ok {
		return domain.SiteRecord{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *memorySiteRepo) Upsert(ctx context.Context, site domain.SiteRecord) (domain.SiteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.rows == nil {
		m.rows = make(map[string]domain.SiteRecord)
	}
	if existing, ok := m.rows[site.Tenant]; ok {
		site.ID = existing.ID
		site.CreatedAt = existing.CreatedAt
	} else {
		site.CreatedAt = time.Now()
	}
	site.UpdatedAt = time.Now()
	m.rows[site.Tenant] = site
	return site, nil
}

type fakeAtlassianClient struct {
	mu sync.Mutex

	exchangeResp *domainatlassian.TokenResponse
	exchangeErr  error
	refreshResp  *domainatlassian.TokenResponse
	refreshErr   error
	refreshDelay time.Duration
	resources    []domainatlassian.Resource
	resourcesErr error

	exchangeCalls int
	refreshCalls  int
	resourceCalls int
}

func (f *fakeAtlassianClient) ExchangeCode(ctx context.Context, code string) (*domainatlassian.TokenResponse, error) {
	f.mu.Lock()
	f.exchangeCalls++
	resp, err := f.exchangeResp, f.exchangeErr
	f.mu.Unlock()
	return resp, err
}

func (f *fakeAtlassianClient) RefreshToken(ctx context.Context, refreshToken string) (*domainatlassian.TokenResponse, error) {
	f.mu.Lock()
	f.refreshCalls++
	resp, err, delay := f.refreshResp, f.refreshErr, f.refreshDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return resp, err
}

func (f *fakeAtlassianClient) AccessibleResources(ctx context.Context, accessToken string) ([]domainatlassian.Resource, error) {
	f.mu.Lock()
	f.resourceCalls++
	resources, err := f.resources, f.resourcesErr
	f.mu.Unlock()
	return resources, err
}

func (f *fakeAtlassianClient) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

type fakeJiraClient struct {
	mu sync.Mutex

	searchFn    func(jql string, startAt, maxResults int) (*domainjira.SearchResult, error)
	issue       *domainjira.Issue
	issueErr    error
	created     *domainjira.CreatedIssue
	createErr   error
	lastCreate  domainjira.CreateIssueRequest
	projects    []domainjira.Project
	projectsErr error
	projectFn   func(projectID string) (*domainjira.Project, error)
	statusesFn  func(projectID string) ([]domainjira.IssueTypeStatuses, error)

	searchCalls     int
	createCalls     int
	getProjectCalls int
}

func (f *fakeJiraClient) SearchIssues(ctx context.Context, baseURL, token, jql string, startAt, maxResults int) (*domainjira.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	fn := f.searchFn
	f.mu.Unlock()
	if fn == nil {
		return &domainjira.SearchResult{}, nil
	}
	return fn(jql, startAt, maxResults)
}

func (f *fakeJiraClient) GetIssue(ctx context.Context, baseURL, token, key string) (*domainjira.Issue, error) {
	return f.issue, f.issueErr
}

func (f *fakeJiraClient) CreateIssue(ctx context.Context, baseURL, token string, req domainjira.CreateIssueRequest) (*domainjira.CreatedIssue, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastCreate = req
	f.mu.Unlock()
	return f.created, f.createErr
}

func (f *fakeJiraClient) ListProjects(ctx context.Context, baseURL, token string) ([]domainjira.Project, error) {
	return f.projects, f.projectsErr
}

func (f *fakeJiraClient) GetProject(ctx context.Context, baseURL, token, projectID string) (*domainjira.Project, error) {
	f.mu.Lock()
	f.getProjectCalls++
	fn := f.projectFn
	f.mu.Unlock()
	if fn == nil {
		return &domainjira.Project{ID: projectID}, nil
	}
	return fn(projectID)
}

func (f *fakeJiraClient) ProjectStatuses(ctx context.Context, baseURL, token, projectID string) ([]domainjira.IssueTypeStatuses, error) {
	f.mu.Lock()
	fn := f.statusesFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(projectID)
}

type memoryStateStore struct {
	mu     sync.Mutex
	states map[string]domainatlassian.LoginState
}

func (m *memoryStateStore) SaveState(ctx context.Context, key string, data domainatlassian.LoginState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[string]domainatlassian.LoginState)
	}
	m.states[key] = data
	return nil
}

func (m *memoryStateStore) GetState(ctx context.Context, key string) (*domainatlassian.LoginState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[key]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *memoryStateStore) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

type harness struct {
	tokens    *memoryTokenRepo
	sites     *memorySiteRepo
	states    *memoryStateStore
	atlassian *fakeAtlassianClient
	jira      *fakeJiraClient
	cfg       config.Config

	tokenSvc   *service.TokenService
	siteSvc    *service.SiteService
	authSvc    *service.AuthService
	issueSvc   *service.IssueService
	projectSvc *service.ProjectService
	reportSvc  *service.ReportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	cfg := config.Config{
		ClientID:            "client-id",
		ClientSecret:        "client-secret",
		RedirectURI:         "https://portal.example.com/api/auth/callback",
		OAuthScopes:         []string{"read:jira-work", "write:jira-work", "offline_access"},
		AuthBaseURL:         "https://auth.atlassian.com",
		APIBaseURL:          "https://api.atlassian.com",
		DefaultTenant:       "default",
		IdeasProjectKey:     "TP",
		TimeProjectKey:      "GUARD",
		QualifiedHoursField: "customfield_10131",
		MarketRates: map[string]float64{
			"Testing":       100,
			"Development":   120,
			"Prototyping":   120,
			"Documentation": 100,
		},
		SearchPageSize: 100,
		FanoutLimit:    4,
	}

	h := &harness{
		tokens: &memoryTokenRepo{},
		sites:  &memorySiteRepo{},
		states: &memoryStateStore{},
		atlassian: &fakeAtlassianClient{
			resources: []domainatlassian.Resource{
				{ID: "site-1", Name: "Acme Jira", URL: "https://acme.atlassian.net", Scopes: []string{"read:jira-work"}},
			},
		},
		jira: &fakeJiraClient{},
		cfg:  cfg,
	}

	h.tokenSvc = service.NewTokenService(h.tokens, h.atlassian, node, logger)
	h.siteSvc = service.NewSiteService(h.sites, h.tokenSvc, h.atlassian, node, cfg, logger)
	h.authSvc = service.NewAuthService(h.tokenSvc, h.siteSvc, h.states, h.atlassian, cfg, logger)
	h.issueSvc = service.NewIssueService(h.jira, h.siteSvc, cfg, logger)
	h.projectSvc = service.NewProjectService(h.jira, h.siteSvc, cfg, logger)
	h.reportSvc = service.NewReportService(h.jira, h.siteSvc, cfg, logger)
	return h
}

// seedToken plants a token row directly so tests can skip the OAuth flow.
func (h *harness) seedToken(t *testing.T, tenant string, expiresAt time.Time) domain.TokenRecord {
	t.Helper()
	saved, err := h.tokens.Insert(context.Background(), domain.TokenRecord{
		ID:           1,
		Tenant:       tenant,
		AccessToken:  "seed-access",
		RefreshToken: "seed-refresh",
		TokenType:    "Bearer",
		Scope:        "read:jira-work offline_access",
		ExpiresIn:    3600,
		ExpiresAt:    expiresAt,
	})
	require.NoError(t, err)
	return saved
}
