package domain

import "time"

// TokenRecord persists the Atlassian OAuth token for a tenant.
type TokenRecord struct {
	ID           int64     `json:"id"`
	Tenant       string    `json:"tenant"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Valid reports whether the access token is usable at the given instant.
func (t TokenRecord) Valid(now time.Time) bool {
	return t.AccessToken != "" && t.ExpiresAt.After(now)
}
