package atlassian

// TokenResponse models the response from the Atlassian OAuth token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Resource is one entry of the accessible-resources listing: a Jira Cloud
// site the token is authorized against.
type Resource struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Scopes    []string `json:"scopes"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
}

// LoginState captures the state value persisted while an authorization
// redirect is in flight.
type LoginState struct {
	State     string `json:"state"`
	Tenant    string `json:"tenant"`
	CreatedAt int64  `json:"created_at"`
}
