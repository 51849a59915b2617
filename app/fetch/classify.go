package fetch

import (
	"errors"
	"strings"
)

// Classify maps an arbitrary error to the closest taxonomy code. Typed
// errors keep their code; everything else is matched by message substrings.
// Substring sniffing is fragile but mirrors how upstream failures actually
// surface (wrapped transport errors, status text baked into messages), so it
// lives here as one testable function.
func Classify(err error) Code {
	if err == nil {
		return CodeServerError
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network"):
		return CodeNetworkError
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "429"):
		return CodeRateLimited
	case strings.Contains(msg, "not found"),
		strings.Contains(msg, "404"):
		return CodeNotFound
	case strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"):
		return CodePrivatePost
	case strings.Contains(msg, "unmarshal"),
		strings.Contains(msg, "parse"),
		strings.Contains(msg, "unexpected end of json"),
		strings.Contains(msg, "invalid character"):
		return CodeParseError
	default:
		return CodeServerError
	}
}

// classified wraps err into a typed *Error with a Classify-derived code,
// preserving an existing *Error untouched.
func classified(err error, platform string) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Platform == "" {
			fe.Platform = platform
		}
		return fe
	}

	return &Error{
		Code:     Classify(err),
		Message:  err.Error(),
		Platform: platform,
	}
}
