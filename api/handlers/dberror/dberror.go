// Package dberror classifies database errors so handlers can decide between
// retrying, reporting unavailability and failing the request.
package dberror

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorType classifies database errors for appropriate handling.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConnectivity indicates the database is unreachable.
	ErrorTypeConnectivity
	// ErrorTypeTimeout indicates the operation timed out.
	ErrorTypeTimeout
	// ErrorTypeAuth indicates authentication/authorization failure.
	ErrorTypeAuth
	// ErrorTypeQuery indicates a query/syntax error.
	ErrorTypeQuery
	// ErrorTypeConflict indicates a serialization failure or deadlock.
	ErrorTypeConflict
)

// IsTransient returns true if the error is likely transient and worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch Classify(err) {
	case ErrorTypeConnectivity, ErrorTypeTimeout, ErrorTypeConflict:
		return true
	default:
		return false
	}
}

// Classify determines the type of database error.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	if pgconn.Timeout(err) {
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeConnectivity
	}

	errStr := strings.ToLower(err.Error())
	for _, group := range patternGroups {
		for _, pattern := range group.patterns {
			if strings.Contains(errStr, pattern) {
				return group.typ
			}
		}
	}
	return ErrorTypeUnknown
}

func classifySQLState(code string) ErrorType {
	switch {
	case strings.HasPrefix(code, "08"), code == "57P01", code == "57P02", code == "57P03", code == "53300":
		return ErrorTypeConnectivity
	case code == "57014":
		return ErrorTypeTimeout
	case code == "40001", code == "40P01":
		return ErrorTypeConflict
	case strings.HasPrefix(code, "28"):
		return ErrorTypeAuth
	case strings.HasPrefix(code, "42"):
		return ErrorTypeQuery
	default:
		return ErrorTypeUnknown
	}
}

var patternGroups = []struct {
	typ      ErrorType
	patterns []string
}{
	{ErrorTypeConnectivity, []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"conn closed",
		"no such host",
		"dial tcp",
		"dial unix",
		"eof",
		"broken pipe",
		"network is unreachable",
		"no route to host",
		"closed pool",
		"pool is closed",
		"server shutdown",
	}},
	{ErrorTypeTimeout, []string{
		"timeout",
		"deadline exceeded",
		"timed out",
	}},
	{ErrorTypeAuth, []string{
		"password authentication failed",
		"permission denied",
		"authentication",
	}},
	{ErrorTypeQuery, []string{
		"syntax error",
		"does not exist",
	}},
}

// UserMessage returns a user-friendly error message based on the error type.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch Classify(err) {
	case ErrorTypeConnectivity:
		return "Database temporarily unavailable. Please try again in a moment."
	case ErrorTypeTimeout:
		return "Request timed out. Please try again."
	case ErrorTypeConflict:
		return "Request conflicted with a concurrent update. Please retry."
	case ErrorTypeAuth:
		return "Database authentication error. Please contact support."
	case ErrorTypeQuery:
		return "Invalid query. Please check your input."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns sensible defaults for database retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	}
}

// Retry executes fn with retries for transient errors.
// Returns the result and the last error if all attempts fail.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(calculateBackoff(cfg.BaseBackoff, cfg.MaxBackoff, attempt-1)):
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}
	}

	return zero, lastErr
}

// calculateBackoff returns base * 2^attempt capped at max, with up to 25%
// jitter removed.
func calculateBackoff(base, maxBackoff time.Duration, attempt int) time.Duration {
	backoff := min(base*time.Duration(1<<uint(attempt)), maxBackoff)
	return backoff - time.Duration(rand.Int64N(int64(backoff)/4+1))
}
