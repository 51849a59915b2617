package fetch

import "net/http"

// Code is a stable error identifier returned across the pipeline boundary.
type Code string

const (
	CodeInvalidURL          Code = "INVALID_URL"
	CodeUnsupportedPlatform Code = "UNSUPPORTED_PLATFORM"
	CodeNetworkError        Code = "NETWORK_ERROR"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeNotFound            Code = "NOT_FOUND"
	CodePrivatePost         Code = "PRIVATE_POST"
	CodeServerError         Code = "SERVER_ERROR"
	CodeParseError          Code = "PARSE_ERROR"
)

// Error is the structured failure every fetch strategy returns. It never
// escapes the Service boundary as a panic.
type Error struct {
	Code       Code   `json:"error_code"`
	Message    string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newError(code Code, message, suggestion string) *Error {
	return &Error{Code: code, Message: message, Suggestion: suggestion}
}

// errorFromStatus maps the HTTP status codes every fetcher recognizes to the
// taxonomy. Statuses outside the mapped set come back as SERVER_ERROR.
func errorFromStatus(status int) *Error {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return newError(CodeNotFound, "Post not found", "Check that the post still exists and the URL is complete")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(CodePrivatePost, "Post is private or requires authentication", "Only public posts can be fetched")
	case status == http.StatusTooManyRequests:
		return newError(CodeRateLimited, "Rate limited by the remote instance", "Wait a moment and try again")
	default:
		return newError(CodeServerError, "Remote instance returned an unexpected response", "Try again later")
	}
}
