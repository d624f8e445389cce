package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/goodnews/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrEntityNotFound) {
		return huma.Error404NotFound("entity not found")
	}

	if errors.Is(err, domain.ErrStaleState) {
		return huma.Error409Conflict(err.Error())
	}

	var slugErr *domain.SlugConflictError
	if errors.As(err, &slugErr) {
		return huma.Error409Conflict(slugErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity(valErr.Error())
	}

	var allocErr *domain.AllocationError
	if errors.As(err, &allocErr) {
		slog.ErrorContext(ctx, "slug allocation failed", "family", allocErr.Family, "error", allocErr.Err)
		return huma.Error503ServiceUnavailable("slug allocation unavailable, retry later")
	}

	slog.ErrorContext(ctx, "unhandled error", "error", err)
	return huma.Error500InternalServerError("internal server error")
}
