package jira

import "encoding/json"

// Issue is a Jira issue as returned by the REST v3 API. Only the fields the
// portal consumes are typed; custom fields are kept raw so project-specific
// fields survive the round trip.
type Issue struct {
	ID     string `json:"id,omitempty"`
	Key    string `json:"key"`
	Self   string `json:"self,omitempty"`
	Fields Fields `json:"fields"`
}

// IssueDetail is an issue with its child issues appended, as served by the
// idea-detail endpoint.
type IssueDetail struct {
	Issue
	Children []Issue `json:"children"`
}

// Fields holds the typed subset of issue fields plus raw custom fields.
type Fields struct {
	Summary      string          `json:"summary"`
	Description  json.RawMessage `json:"description,omitempty"`
	IssueType    IssueType       `json:"issuetype"`
	Status       Status          `json:"status"`
	Assignee     *User           `json:"assignee,omitempty"`
	Reporter     *User           `json:"reporter,omitempty"`
	TimeTracking *TimeTracking   `json:"timetracking,omitempty"`
	TimeSpent    int64           `json:"timespent,omitempty"`
	Labels       []string        `json:"labels,omitempty"`
	Created      string          `json:"created,omitempty"`
	Updated      string          `json:"updated,omitempty"`

	// Custom carries every customfield_* entry verbatim.
	Custom map[string]json.RawMessage `json:"-"`
}

type fieldsAlias Fields

// UnmarshalJSON decodes the typed fields and captures customfield_* keys.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var typed fieldsAlias
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if len(key) > 12 && key[:12] == "customfield_" {
			if typed.Custom == nil {
				typed.Custom = make(map[string]json.RawMessage)
			}
			typed.Custom[key] = value
		}
	}

	*f = Fields(typed)
	return nil
}

// MarshalJSON re-inlines the captured custom fields next to the typed ones.
func (f Fields) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(fieldsAlias(f))
	if err != nil {
		return nil, err
	}
	if len(f.Custom) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range f.Custom {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// IssueType identifies the issue type (Epic, Task, ...).
type IssueType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask,omitempty"`
}

// Status is a workflow status.
type Status struct {
	ID             string          `json:"id,omitempty"`
	Name           string          `json:"name"`
	StatusCategory *StatusCategory `json:"statusCategory,omitempty"`
}

// StatusCategory groups statuses (To Do / In Progress / Done).
type StatusCategory struct {
	ID   int    `json:"id,omitempty"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

// User is a Jira account reference.
type User struct {
	AccountID    string `json:"accountId,omitempty"`
	Name         string `json:"name,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// TimeTracking carries logged-work figures in seconds.
type TimeTracking struct {
	OriginalEstimateSeconds  int64 `json:"originalEstimateSeconds,omitempty"`
	RemainingEstimateSeconds int64 `json:"remainingEstimateSeconds,omitempty"`
	TimeSpentSeconds         int64 `json:"timeSpentSeconds,omitempty"`
}

// SearchResult is one page of a /search response.
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// Project is a Jira project, optionally enriched with lead details.
type Project struct {
	ID             string            `json:"id"`
	Key            string            `json:"key"`
	Name           string            `json:"name"`
	Self           string            `json:"self,omitempty"`
	ProjectTypeKey string            `json:"projectTypeKey,omitempty"`
	IsPrivate      bool              `json:"isPrivate"`
	Lead           *User             `json:"lead,omitempty"`
	AvatarURLs     map[string]string `json:"avatarUrls,omitempty"`
}

// IssueTypeStatuses maps one issue type of a project to its valid statuses.
type IssueTypeStatuses struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Subtask  bool     `json:"subtask,omitempty"`
	Statuses []Status `json:"statuses"`
}

// CreatedIssue is Jira's response to a successful issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// CreateIssueRequest is the payload for POST /issue.
type CreateIssueRequest struct {
	Fields CreateIssueFields `json:"fields"`
}

// CreateIssueFields is the minimal field set the portal submits.
type CreateIssueFields struct {
	Project     ProjectRef   `json:"project"`
	Summary     string       `json:"summary"`
	Description *DocNode     `json:"description,omitempty"`
	IssueType   IssueTypeRef `json:"issuetype"`
}

// ProjectRef references a project by key.
type ProjectRef struct {
	Key string `json:"key"`
}

// IssueTypeRef references an issue type by name.
type IssueTypeRef struct {
	Name string `json:"name"`
}
