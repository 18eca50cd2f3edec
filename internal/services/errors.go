package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks upstream failures worth retrying (rate limits,
	// service unavailable, timeouts).
	ErrTransient = errors.New("transient upstream failure")
	// ErrPermanent marks upstream rejections that retrying cannot fix.
	ErrPermanent = errors.New("permanent upstream failure")
	// ErrResource marks filesystem or scratch-area failures.
	ErrResource = errors.New("resource error")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing entities or artifacts.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the retry policy should attempt the operation
// again. Only transient upstream failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// ErrorDetails captures classification metadata extracted from a wrapped error.
type ErrorDetails struct {
	Kind    string
	Message string
	Cause   error
}

// Details classifies a stage error for logging and persistence.
func Details(err error) ErrorDetails {
	d := ErrorDetails{Kind: "unknown"}
	if err == nil {
		return d
	}
	d.Cause = err
	d.Message = strings.TrimSpace(err.Error())
	switch {
	case errors.Is(err, ErrTransient):
		d.Kind = "transient"
	case errors.Is(err, ErrPermanent):
		d.Kind = "permanent"
	case errors.Is(err, ErrResource):
		d.Kind = "resource"
	case errors.Is(err, ErrConfiguration):
		d.Kind = "configuration"
	case errors.Is(err, ErrNotFound):
		d.Kind = "not_found"
	}
	return d
}

// MarkerForStatus maps an upstream HTTP status to the retry taxonomy.
// Rate limits, request timeouts, and server errors are transient;
// everything else in the error range is permanent.
func MarkerForStatus(status int) error {
	switch {
	case status == 408, status == 429, status >= 500:
		return ErrTransient
	default:
		return ErrPermanent
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
