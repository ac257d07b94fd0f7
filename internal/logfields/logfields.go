package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID       = "run_id"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyDeclaration = "declaration"
	KeyPath        = "path"
	KeyTarget      = "target"
	KeyFingerprint = "fingerprint"
	KeyOverlay     = "overlay"
	KeyPackage     = "package"
	KeyCache       = "cache"
	KeyCount       = "count"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Declaration(p string) slog.Attr  { return slog.String(KeyDeclaration, p) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Target(id string) slog.Attr      { return slog.String(KeyTarget, id) }
func Fingerprint(fp string) slog.Attr { return slog.String(KeyFingerprint, fp) }
func Overlay(name string) slog.Attr   { return slog.String(KeyOverlay, name) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Cache(id string) slog.Attr       { return slog.String(KeyCache, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
