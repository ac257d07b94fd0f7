package errors

import "strings"

// Declaration errors

func ConfigNotFound(path string) *PlanError {
	return New(CategoryConfig, SeverityFatal, "declaration file not found").
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *PlanError {
	return New(CategoryConfig, SeverityFatal, "invalid declaration").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ConfigDecode(cause error) *PlanError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "declaration could not be decoded")
}

// UnknownTarget reports override keys that reference no registered target.
func UnknownTarget(ids ...string) *PlanError {
	return New(CategoryUnknownTarget, SeverityFatal, "unknown target identifier").
		WithContext("targets", strings.Join(ids, ","))
}

func IncompleteTrustEntry(cache, missing string) *PlanError {
	return New(CategoryTrust, SeverityFatal, "incomplete trust entry").
		WithContext("cache", cache).
		WithContext("missing", missing)
}

func InvalidTrustEntry(cache, field, reason string) *PlanError {
	return New(CategoryTrust, SeverityFatal, "invalid trust entry").
		WithContext("cache", cache).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Package set errors

// UnresolvedPackage reports a name that was forced but never defined.
// requestedBy names the overlay or stage that needed it.
func UnresolvedPackage(name, requestedBy string) *PlanError {
	return New(CategoryUnresolvedPackage, SeverityFatal, "unresolved package").
		WithContext("package", name).
		WithContext("requested_by", requestedBy)
}

func OverlayCycle(name, overlay string) *PlanError {
	return New(CategoryOverlay, SeverityFatal, "package definition depends on itself").
		WithContext("package", name).
		WithContext("overlay", overlay)
}

func OverlayFailed(overlay string, cause error) *PlanError {
	return Wrap(cause, CategoryOverlay, SeverityFatal, "overlay evaluation failed").
		WithContext("overlay", overlay)
}

// Boundary errors

func FileSystemError(operation, path string, cause error) *PlanError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "file system operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

func Canceled(stage string, cause error) *PlanError {
	return Wrap(cause, CategoryCanceled, SeverityFatal, "compilation canceled").
		WithContext("stage", stage)
}

func InternalError(message string, cause error) *PlanError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
