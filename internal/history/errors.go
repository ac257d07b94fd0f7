package history

import (
	perrors "git.home.luguber.info/inful/buildplan/internal/errors"
)

func storeError(msg string, cause error) *perrors.PlanError {
	return perrors.Wrap(cause, perrors.CategoryStore, perrors.SeverityError, msg)
}

// ErrNotFound is returned when no recorded plan matches a lookup.
var ErrNotFound = perrors.New(perrors.CategoryStore, perrors.SeverityError, "plan not found in history")
