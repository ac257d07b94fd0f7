package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if pe, ok := As(err); ok {
		return a.exitCodeFromPlanError(pe)
	}

	return 1
}

func (a *CLIErrorAdapter) exitCodeFromPlanError(err *PlanError) int {
	switch err.Category {
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryUnknownTarget:
		return 3
	case CategoryTrust:
		return 5
	case CategoryOverlay, CategoryUnresolvedPackage:
		return 6
	case CategoryFileSystem:
		return 11
	case CategoryHandoff, CategoryStore:
		return 8 // External system error
	case CategoryCanceled:
		return 130
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if pe, ok := As(err); ok {
		return a.formatPlanError(pe)
	}

	return fmt.Sprintf("Error: %v", err)
}

func (a *CLIErrorAdapter) formatPlanError(err *PlanError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig:
		if field := err.Field("field"); field != "" {
			return fmt.Sprintf("%s: %s: %s", err.Message, field, err.Field("reason"))
		}
		return err.Message
	case CategoryUnknownTarget:
		return fmt.Sprintf("%s: %s", err.Message, err.Field("targets"))
	case CategoryUnresolvedPackage:
		return fmt.Sprintf("%s %q (needed by %s)", err.Message, err.Field("package"), err.Field("requested_by"))
	case CategoryTrust:
		return fmt.Sprintf("%s for cache %q", err.Message, err.Field("cache"))
	default:
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

// HandleError logs and prints err, returning the exit code the process should use.
func (a *CLIErrorAdapter) HandleError(err error) int {
	if err == nil {
		return 0
	}

	if a.shouldLog(err) {
		a.logError(err)
	}

	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if pe, ok := As(err); ok {
		return pe.Category == CategoryInternal
	}

	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	if pe, ok := As(err); ok {
		attrs := []slog.Attr{
			slog.String("category", string(pe.Category)),
		}
		for k, v := range pe.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		a.logger.LogAttrs(context.Background(), a.levelFor(pe.Severity), pe.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

func (a *CLIErrorAdapter) levelFor(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
