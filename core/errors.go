package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput        = "FORMBRIDGE_BAD_INPUT"
	ErrorNotFound        = "FORMBRIDGE_NOT_FOUND"
	ErrorUnauthorized    = "FORMBRIDGE_UNAUTHORIZED"
	ErrorRateLimited     = "FORMBRIDGE_RATE_LIMITED"
	ErrorSweepInProgress = "FORMBRIDGE_SWEEP_IN_PROGRESS"
	ErrorUpstreamFailure = "FORMBRIDGE_UPSTREAM_FAILURE"
	ErrorOperationFailed = "FORMBRIDGE_OPERATION_FAILED"
	ErrorNotConfigured   = "FORMBRIDGE_NOT_CONFIGURED"
	ErrorInternal        = "FORMBRIDGE_INTERNAL_ERROR"
)

var ErrSweepInProgress = errors.New("core: reconciliation sweep already in progress")

// NewError builds a categorized error carrying an HTTP status and text code.
func NewError(message string, category goerrors.Category, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(HTTPStatus(category)).
		WithTextCode(TextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError wraps source keeping the category mapping used by NewError.
func WrapError(source error, category goerrors.Category, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return NewError(message, category, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(HTTPStatus(category)).
		WithTextCode(TextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func newBadInputError(message string, metadata map[string]any) *goerrors.Error {
	return NewError(message, goerrors.CategoryBadInput, metadata)
}

func SweepInProgressError(trigger SweepTrigger) *goerrors.Error {
	return goerrors.Wrap(ErrSweepInProgress, goerrors.CategoryConflict, "core: reconciliation sweep already in progress").
		WithCode(http.StatusConflict).
		WithTextCode(ErrorSweepInProgress).
		WithMetadata(map[string]any{"trigger": string(trigger)})
}

// NotConfiguredError reports a component that cannot run with the current
// configuration, such as a sweep without an API key.
func NotConfiguredError(component string, missing ...string) *goerrors.Error {
	return goerrors.New("core: "+component+" is not configured", goerrors.CategoryOperation).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(ErrorNotConfigured).
		WithMetadata(map[string]any{
			"component": component,
			"missing":   missing,
		})
}

// MapError converts any error into a go-errors envelope suitable for HTTP responses.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}
	if errors.Is(err, ErrSweepInProgress) {
		return SweepInProgressError(SweepTriggerManual)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return NewError(err.Error(), goerrors.CategoryRateLimit, nil)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return NewError(err.Error(), goerrors.CategoryBadInput, nil)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = TextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func TextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorSweepInProgress
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorUpstreamFailure
	case goerrors.CategoryOperation:
		return ErrorOperationFailed
	default:
		return ErrorInternal
	}
}

func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
