package domain

import "time"

// SiteRecord caches the resolved Jira Cloud site for a tenant. One logical row
// per tenant; every resolution rewrites it.
type SiteRecord struct {
	ID         int64     `json:"id"`
	Tenant     string    `json:"tenant"`
	SiteID     string    `json:"site_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	JiraAPIURL string    `json:"jira_api_url"`
	Scopes     []string  `json:"scopes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
