package inbound

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-formbridge/core"
)

func inboundError(message string, category goerrors.Category, metadata map[string]any) error {
	return core.NewError(message, category, metadata)
}

func inboundWrapError(source error, category goerrors.Category, message string, metadata map[string]any) error {
	return core.WrapError(source, category, message, metadata)
}

func inboundBadInput(message string, metadata map[string]any) error {
	return inboundError(message, goerrors.CategoryBadInput, metadata)
}
