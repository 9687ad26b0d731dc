package repository

import (
	"context"
	"time"

	"github.com/arcnid/innovation-jira/internal/domain"
	"github.com/arcnid/innovation-jira/internal/domain/atlassian"
)

// TokenRepository handles OAuth token persistence. Rows are keyed by tenant;
// "latest" means most recently created within that tenant.
type TokenRepository interface {
	Insert(ctx context.Context, token domain.TokenRecord) (domain.TokenRecord, error)
	Update(ctx context.Context, token domain.TokenRecord) (domain.TokenRecord, error)
	Latest(ctx context.Context, tenant string) (domain.TokenRecord, error)
}

// SiteRepository maintains the single resolved site row per tenant.
type SiteRepository interface {
	Get(ctx context.Context, tenant string) (domain.SiteRecord, error)
	Upsert(ctx context.Context, site domain.SiteRecord) (domain.SiteRecord, error)
}

// LoginStateStore persists short-lived authorization state values.
type LoginStateStore interface {
	SaveState(ctx context.Context, key string, data atlassian.LoginState, ttl time.Duration) error
	GetState(ctx context.Context, key string) (*atlassian.LoginState, error)
	DeleteState(ctx context.Context, key string) error
}
