package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind labels a fetch failure for logs and metrics.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindConnection  ErrorKind = "connection"
	KindForbidden   ErrorKind = "forbidden"
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindServerError ErrorKind = "server_error"
	KindStatus      ErrorKind = "status"
	KindCanceled    ErrorKind = "canceled"
	KindParse       ErrorKind = "parse"
	KindOther       ErrorKind = "other"
)

// FetchError reports a listing page that could not be retrieved.
type FetchError struct {
	URL        string
	Kind       ErrorKind
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the request may succeed.
func (e *FetchError) Temporary() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindRateLimited, KindServerError:
		return true
	}
	return false
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Kind)
	}
	return string(KindOther)
}

func classifyError(rawURL string, err error, statusCode int) *FetchError {
	if err == nil && statusCode == 0 {
		return nil
	}

	kind := KindOther
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case isNetTimeout(err):
		kind = KindTimeout
	case isOpError(err):
		kind = KindConnection
	case statusCode == http.StatusForbidden:
		kind = KindForbidden
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case statusCode >= http.StatusInternalServerError:
		kind = KindServerError
	case statusCode >= http.StatusMultipleChoices:
		kind = KindStatus
	}

	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}
	return &FetchError{URL: rawURL, Kind: kind, StatusCode: statusCode, Err: err}
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isOpError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
