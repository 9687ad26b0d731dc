package service

import (
	"errors"
	"fmt"
	"net/http"

	atlassianadapter "github.com/arcnid/innovation-jira/internal/adapter/atlassian"
	jiraadapter "github.com/arcnid/innovation-jira/internal/adapter/jira"
)

// APIError standardizes errors surfaced at the endpoint boundary. Status is
// the HTTP status to respond with; Details carries the upstream body or a
// backend error message when one exists.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

func newAPIError(status int, message, details string) *APIError {
	return &APIError{Status: status, Message: message, Details: details}
}

// upstreamError converts an adapter failure into an APIError, preserving the
// provider's status code and body when the call reached the remote end.
func upstreamError(message string, err error) *APIError {
	var atlErr *atlassianadapter.StatusError
	if errors.As(err, &atlErr) {
		return newAPIError(atlErr.StatusCode, message, atlErr.Body)
	}
	var jiraErr *jiraadapter.StatusError
	if errors.As(err, &jiraErr) {
		return newAPIError(jiraErr.StatusCode, message, jiraErr.Body)
	}
	return newAPIError(http.StatusInternalServerError, message, err.Error())
}

func persistenceError(message string, err error) *APIError {
	return newAPIError(http.StatusInternalServerError, message, err.Error())
}
