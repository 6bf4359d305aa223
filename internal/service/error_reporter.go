package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
)

// ErrorReport is the context captured for a surfaced failure.
type ErrorReport struct {
	Component string
	Action    string
	Code      string
	Err       error
	At        time.Time
}

// ErrorForwarder ships reports to an external error tracker.
type ErrorForwarder func(ctx context.Context, report ErrorReport)

// ErrorReporter logs failures before they are surfaced to callers.
type ErrorReporter struct {
	logger  *zap.Logger
	forward ErrorForwarder
	now     func() time.Time
}

// NewErrorReporter constructs a reporter. A nil forwarder disables forwarding.
func NewErrorReporter(logger *zap.Logger, forward ErrorForwarder) *ErrorReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorReporter{logger: logger, forward: forward, now: time.Now}
}

// Report logs err with its component and action and returns it unchanged.
func (r *ErrorReporter) Report(ctx context.Context, component, action string, err error) error {
	if r == nil || err == nil {
		return err
	}
	appErr := appErrors.FromError(err)
	report := ErrorReport{Component: component, Action: action, Code: appErr.Code, Err: err, At: r.now().UTC()}

	fields := []zap.Field{
		zap.String("component", component),
		zap.String("action", action),
		zap.String("code", appErr.Code),
		zap.Time("at", report.At),
		zap.Error(err),
	}
	if appErr.Status >= 500 {
		r.logger.Error("operation failed", fields...)
	} else {
		r.logger.Warn("operation rejected", fields...)
	}

	if r.forward != nil {
		r.forward(ctx, report)
	}
	return err
}
