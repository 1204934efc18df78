package reconcile

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
)

func reconcileError(message string, category goerrors.Category, metadata map[string]any) error {
	return core.NewError(message, category, metadata)
}

func reconcileWrapError(source error, category goerrors.Category, message string, metadata map[string]any) error {
	return core.WrapError(source, category, message, metadata)
}
