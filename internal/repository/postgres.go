package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcnid/innovation-jira/internal/domain"
)

// Compile-time interface assertions.
var (
	_ TokenRepository = (*PostgresTokenRepo)(nil)
	_ SiteRepository  = (*PostgresSiteRepo)(nil)
)

// PostgresTokenRepo implements TokenRepository over the tokens table.
type PostgresTokenRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTokenRepo(pool *pgxpool.Pool) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: pool}
}

const tokenColumns = `id, tenant, access_token, refresh_token, token_type, scope, expires_in, expires_at, created_at, updated_at`

const insertTokenSQL = `INSERT INTO tokens (id, tenant, access_token, refresh_token, token_type, scope, expires_in, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + tokenColumns

func (r *PostgresTokenRepo) Insert(ctx context.Context, token domain.TokenRecord) (domain.TokenRecord, error) {
	row := r.db.QueryRow(ctx, insertTokenSQL,
		token.ID,
		token.Tenant,
		token.AccessToken,
		nullString(token.RefreshToken),
		token.TokenType,
		token.Scope,
		token.ExpiresIn,
		token.ExpiresAt,
	)
	inserted, err := scanToken(row)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("insert token: %w", err)
	}
	return inserted, nil
}

const updateTokenSQL = `UPDATE tokens
SET access_token = $2, refresh_token = $3, token_type = $4, scope = $5, expires_in = $6, expires_at = $7, updated_at = now()
WHERE id = $1
RETURNING ` + tokenColumns

func (r *PostgresTokenRepo) Update(ctx context.Context, token domain.TokenRecord) (domain.TokenRecord, error) {
	row := r.db.QueryRow(ctx, updateTokenSQL,
		token.ID,
		token.AccessToken,
		nullString(token.RefreshToken),
		token.TokenType,
		token.Scope,
		token.ExpiresIn,
		token.ExpiresAt,
	)
	updated, err := scanToken(row)
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("update token: %w", err)
	}
	return updated, nil
}

const latestTokenSQL = `SELECT ` + tokenColumns + `
FROM tokens
WHERE tenant = $1
ORDER BY created_at DESC
LIMIT 1`

func (r *PostgresTokenRepo) Latest(ctx context.Context, tenant string) (domain.TokenRecord, error) {
	token, err := scanToken(r.db.QueryRow(ctx, latestTokenSQL, tenant))
	if err != nil {
		return domain.TokenRecord{}, fmt.Errorf("latest token: %w", err)
	}
	return token, nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanToken(row pgxRow) (domain.TokenRecord, error) {
	var (
		token   domain.TokenRecord
		refresh sql.NullString
	)
	if err := row.Scan(
		&token.ID,
		&token.Tenant,
		&token.AccessToken,
		&refresh,
		&token.TokenType,
		&token.Scope,
		&token.ExpiresIn,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		return domain.TokenRecord{}, err
	}
	token.RefreshToken = refresh.String
	return token, nil
}

// PostgresSiteRepo implements SiteRepository over the sites table.
type PostgresSiteRepo struct {
	db *pgxpool.Pool
}

func NewPostgresSiteRepo(pool *pgxpool.Pool) *PostgresSiteRepo {
	return &PostgresSiteRepo{db: pool}
}

const siteColumns = `id, tenant, site_id, name, url, jira_api_url, scopes, created_at, updated_at`

const getSiteSQL = `SELECT ` + siteColumns + `
FROM sites
WHERE tenant = $1
LIMIT 1`

func (r *PostgresSiteRepo) Get(ctx context.Context, tenant string) (domain.SiteRecord, error) {
	site, err := scanSite(r.db.QueryRow(ctx, getSiteSQL, tenant))
	if err != nil {
		return domain.SiteRecord{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

// The tenant column carries a unique constraint, so repeated resolutions
// rewrite the existing row instead of inserting duplicates.
const upsertSiteSQL = `INSERT INTO sites (id, tenant, site_id, name, url, jira_api_url, scopes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (tenant) DO UPDATE
SET site_id = EXCLUDED.site_id, name = EXCLUDED.name, url = EXCLUDED.url, jira_api_url = EXCLUDED.jira_api_url, scopes = EXCLUDED.scopes, updated_at = now()
RETURNING ` + siteColumns

func (r *PostgresSiteRepo) Upsert(ctx context.Context, site domain.SiteRecord) (domain.SiteRecord, error) {
	row := r.db.QueryRow(ctx, upsertSiteSQL,
		site.ID,
		site.Tenant,
		site.SiteID,
		site.Name,
		site.URL,
		site.JiraAPIURL,
		site.Scopes,
	)
	saved, err := scanSite(row)
	if err != nil {
		return domain.SiteRecord{}, fmt.Errorf("upsert site: %w", err)
	}
	return saved, nil
}

func scanSite(row pgxRow) (domain.SiteRecord, error) {
	var site domain.SiteRecord
	if err := row.Scan(
		&site.ID,
		&site.Tenant,
		&site.SiteID,
		&site.Name,
		&site.URL,
		&site.JiraAPIURL,
		&site.Scopes,
		&site.CreatedAt,
		&site.UpdatedAt,
	); err != nil {
		return domain.SiteRecord{}, err
	}
	return site, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
