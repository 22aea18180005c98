// Package errors - telemetry integration (optional).
package errors

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

func init() {
	hasActiveReporting.Store(false)
}

// TelemetryReporter is an interface for reporting errors to telemetry systems.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

// shouldReportToSentry filters out operational/configuration errors that
// aren't code bugs worth telemetry traffic.
func shouldReportToSentry(ee *EnhancedError) bool {
	switch ee.Category {
	case CategoryValidation, CategoryConfiguration, CategoryNotFound, CategoryCancellation:
		return false
	default:
		return true
	}
}

// ReportError sends an enhanced error to Sentry with structured tags/context.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee == nil || ee.IsReported() {
		return
	}
	if !shouldReportToSentry(ee) {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(getErrorLevel(ee.Category))
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		if ctx := ee.GetContext(); ctx != nil {
			scope.SetContext("error_context", ctx)
		}
		sentry.CaptureException(fmt.Errorf("%s: %w", generateErrorTitle(ee), ee.Err))
	})

	ee.MarkReported()
}

func generateErrorTitle(ee *EnhancedError) string {
	component := ee.GetComponent()
	if component == "" || component == ComponentUnknown {
		return fmt.Sprintf("[%s] error", ee.Category)
	}
	return fmt.Sprintf("[%s/%s] error", component, ee.Category)
}

func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryBudgetExceeded, CategoryCacheIO, CategoryMasteringDegraded:
		return sentry.LevelWarning
	case CategorySystem, CategoryDatabase:
		return sentry.LevelError
	default:
		return sentry.LevelError
	}
}

var (
	telemetryReporter   atomic.Value // TelemetryReporter
	hasActiveReporting  atomic.Bool
	errorHooks          []ErrorHook
	hooksMu             sync.RWMutex
)

// ErrorHook is invoked synchronously whenever Build() is called while
// reporting is active. Used by tests to assert on error shape.
type ErrorHook func(*EnhancedError)

// SetTelemetryReporter installs (or clears, with nil) the active reporter.
func SetTelemetryReporter(reporter TelemetryReporter) {
	if reporter == nil {
		telemetryReporter.Store((TelemetryReporter)(nil))
		updateActiveReportingStatus()
		return
	}
	telemetryReporter.Store(reporter)
	updateActiveReportingStatus()
}

// GetTelemetryReporter returns the currently installed reporter, if any.
func GetTelemetryReporter() TelemetryReporter {
	v := telemetryReporter.Load()
	if v == nil {
		return nil
	}
	r, _ := v.(TelemetryReporter)
	return r
}

// AddErrorHook registers a hook invoked on every reported error.
func AddErrorHook(hook ErrorHook) {
	hooksMu.Lock()
	errorHooks = append(errorHooks, hook)
	hooksMu.Unlock()
	updateActiveReportingStatus()
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	hooksMu.Lock()
	errorHooks = nil
	hooksMu.Unlock()
	updateActiveReportingStatus()
}

func updateActiveReportingStatus() {
	hooksMu.RLock()
	hooksExist := len(errorHooks) > 0
	hooksMu.RUnlock()

	reporter := GetTelemetryReporter()
	telemetryActive := reporter != nil && reporter.IsEnabled()

	hasActiveReporting.Store(hooksExist || telemetryActive)
}

func reportToTelemetry(ee *EnhancedError) {
	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}

	hooksMu.RLock()
	hooks := make([]ErrorHook, len(errorHooks))
	copy(hooks, errorHooks)
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
}
