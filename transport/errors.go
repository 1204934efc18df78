package transport

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(core.TextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(core.TextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// StatusError converts a non-2xx response into an upstream error. It returns
// nil for 2xx responses.
func StatusError(operation string, res core.TransportResponse) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	category := goerrors.CategoryExternal
	code := http.StatusBadGateway
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		category = goerrors.CategoryAuth
		code = http.StatusUnauthorized
	case res.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuthz
		code = http.StatusForbidden
	case res.StatusCode == http.StatusNotFound:
		category = goerrors.CategoryNotFound
		code = http.StatusNotFound
	case res.StatusCode == http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
		code = http.StatusTooManyRequests
	}
	return transportError(
		fmt.Sprintf("%s: unexpected status %d", operation, res.StatusCode),
		category,
		code,
		map[string]any{
			"operation":   operation,
			"status_code": res.StatusCode,
			"body":        truncate(string(res.Body), 512),
		},
	)
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
