package slack

import (
	"errors"
	"fmt"
	"time"

	slackapi "github.com/slack-go/slack"
)

// CodeRateLimited is reported when Slack answers with HTTP 429.
const CodeRateLimited = "ratelimited"

// PlatformError is an error reported by Slack itself, as opposed to a failure to
// reach it. Code carries Slack's error string, e.g. "channel_not_found".
type PlatformError struct {
	Code       string
	RetryAfter time.Duration
	Err        error
}

func (e *PlatformError) Error() string {
	if e == nil {
		return ""
	}
	return "slack: " + e.Code
}

func (e *PlatformError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsPlatformError reports whether err carries a PlatformError.
func AsPlatformError(err error) (*PlatformError, bool) {
	var pe *PlatformError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// classify turns slack-go errors into PlatformError where Slack answered, and
// wraps everything else as a transport error.
func classify(err error) error {
	var apiErr slackapi.SlackErrorResponse
	if errors.As(err, &apiErr) {
		return &PlatformError{Code: apiErr.Err, Err: err}
	}

	var rateErr *slackapi.RateLimitedError
	if errors.As(err, &rateErr) {
		return &PlatformError{Code: CodeRateLimited, RetryAfter: rateErr.RetryAfter, Err: err}
	}

	var statusErr slackapi.StatusCodeError
	if errors.As(err, &statusErr) {
		return &PlatformError{Code: fmt.Sprintf("http_%d", statusErr.Code), Err: err}
	}

	return fmt.Errorf("slack: post message: %w", err)
}
