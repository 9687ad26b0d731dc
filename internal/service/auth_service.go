package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	atlassianadapter "github.com/arcnid/innovation-jira/internal/adapter/atlassian"
	"github.com/arcnid/innovation-jira/internal/config"
	"github.com/arcnid/innovation-jira/internal/domain"
	domainatlassian "github.com/arcnid/innovation-jira/internal/domain/atlassian"
	"github.com/arcnid/innovation-jira/internal/repository"
)

const (
	statePrefix = "login:state:"
	stateTTL    = 5 * time.Minute
)

// AuthService orchestrates the Atlassian authorization flow: building the
// consent URL and handling the code-exchange callback.
type AuthService struct {
	tokens    *TokenService
	sites     *SiteService
	states    repository.LoginStateStore
	atlassian atlassianadapter.Client
	cfg       config.Config
	logger    *zap.Logger
}

// NewAuthService wires dependencies.
func NewAuthService(tokens *TokenService, sites *SiteService, states repository.LoginStateStore, client atlassianadapter.Client, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		tokens:    tokens,
		sites:     sites,
		states:    states,
		atlassian: client,
		cfg:       cfg,
		logger:    logger,
	}
}

// LoginRedirect is the prepared consent URL plus its state value.
type LoginRedirect struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CallbackResult bundles the stored token with the resolved Jira base URL.
type CallbackResult struct {
	Token      domain.TokenRecord `json:"token"`
	JiraAPIURL string             `json:"jiraApiUrl"`
}

// LoginURL builds the Atlassian consent URL and persists the state value.
func (s *AuthService) LoginURL(ctx context.Context, tenant string) (*LoginRedirect, error) {
	if err := s.checkOAuthConfig(); err != nil {
		return nil, err
	}

	state, err := randomState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	if err := s.states.SaveState(ctx, statePrefix+state, domainatlassian.LoginState{
		State:     state,
		Tenant:    tenant,
		CreatedAt: time.Now().Unix(),
	}, stateTTL); err != nil {
		return nil, persistenceError("Error saving login state", err)
	}

	return &LoginRedirect{
		AuthorizationURL: atlassianadapter.AuthorizationURL(atlassianadapter.Config{
			AuthBaseURL: s.cfg.AuthBaseURL,
			ClientID:    s.cfg.ClientID,
			RedirectURI: s.cfg.RedirectURI,
		}, s.cfg.OAuthScopes, state),
		State: state,
	}, nil
}

// HandleCallback exchanges the authorization code, stores the token (update
// in place when a row exists), and resolves the Jira base URL.
func (s *AuthService) HandleCallback(ctx context.Context, tenant, code, state, oauthErr string) (*CallbackResult, error) {
	if oauthErr != "" {
		return nil, newAPIError(http.StatusBadRequest, "OAuth error: "+oauthErr, "")
	}
	if code == "" {
		return nil, newAPIError(http.StatusBadRequest, "Authorization code not found", "")
	}
	if err := s.checkOAuthConfig(); err != nil {
		return nil, err
	}

	// State is only present when the redirect came through LoginURL; older
	// bookmarked consent links omit it.
	if state != "" {
		stored, err := s.states.GetState(ctx, statePrefix+state)
		if err != nil {
			return nil, persistenceError("Error loading login state", err)
		}
		if stored == nil {
			return nil, newAPIError(http.StatusBadRequest, "Login state expired or unknown", "")
		}
		_ = s.states.DeleteState(ctx, statePrefix+state)
	}

	resp, err := s.atlassian.ExchangeCode(ctx, code)
	if err != nil {
		return nil, upstreamError("Failed to fetch token", err)
	}

	token, err := s.tokens.SaveOrUpdate(ctx, tenant, resp)
	if err != nil {
		return nil, err
	}

	jiraAPIURL, _, err := s.sites.ResolveRequestURL(ctx, tenant)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token exchange successful",
		zap.String("tenant", tenant),
		zap.Int64("token_id", token.ID),
		zap.String("jira_api_url", jiraAPIURL),
	)

	return &CallbackResult{Token: token, JiraAPIURL: jiraAPIURL}, nil
}

func (s *AuthService) checkOAuthConfig() error {
	if s.cfg.ClientID == "" || s.cfg.ClientSecret == "" || s.cfg.RedirectURI == "" {
		return newAPIError(http.StatusInternalServerError, "Missing OAuth configuration", "")
	}
	return nil
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
