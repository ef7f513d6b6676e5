package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HTTPError represents an HTTP error with status code and URL
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// errorResponse is the error envelope returned by the content-sources service
type errorResponse struct {
	Errors []struct {
		Status int    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// errorMessage extracts the details of an error envelope, or returns fallback
func errorMessage(body []byte, fallback string) string {
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return fallback
	}

	details := make([]string, 0, len(envelope.Errors))
	for _, e := range envelope.Errors {
		switch {
		case e.Detail != "":
			details = append(details, e.Detail)
		case e.Title != "":
			details = append(details, e.Title)
		}
	}
	if len(details) == 0 {
		return fallback
	}
	return strings.Join(details, "; ")
}
