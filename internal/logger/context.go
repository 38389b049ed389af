package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID         string    // OpenTelemetry trace ID
	SpanID          string    // OpenTelemetry span ID
	Cmd             string    // ActiveSync command name (Sync, Ping, FolderSync, ...)
	DeviceID        string    // Client device identifier
	Username        string    // Authenticated username
	ProtocolVersion string    // Negotiated MS-ASProtocolVersion
	ClientIP        string    // Client IP address (without port)
	StartTime       time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:         lc.TraceID,
		SpanID:          lc.SpanID,
		Cmd:             lc.Cmd,
		DeviceID:        lc.DeviceID,
		Username:        lc.Username,
		ProtocolVersion: lc.ProtocolVersion,
		ClientIP:        lc.ClientIP,
		StartTime:       lc.StartTime,
	}
}

// WithCommand returns a copy with the ActiveSync command set
func (lc *LogContext) WithCommand(cmd string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Cmd = cmd
	}
	return clone
}

// WithDevice returns a copy with the device identifier set
func (lc *LogContext) WithDevice(deviceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DeviceID = deviceID
	}
	return clone
}

// WithUser returns a copy with the authenticated username set
func (lc *LogContext) WithUser(username string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Username = username
	}
	return clone
}

// WithProtocolVersion returns a copy with the negotiated version set
func (lc *LogContext) WithProtocolVersion(version string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ProtocolVersion = version
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
