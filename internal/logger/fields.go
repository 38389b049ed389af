package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log
// aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Protocol & Command
	// ========================================================================
	KeyCmd             = "cmd"              // ActiveSync command: Sync, Ping, Provision, ...
	KeyProtocolVersion = "protocol_version" // Negotiated MS-ASProtocolVersion
	KeyStatus          = "status"           // WBXML Status value emitted
	KeyHTTPStatus      = "http_status"      // HTTP status code
	KeyStatusMsg       = "status_msg"       // Human-readable status message

	// ========================================================================
	// Partnership & Collection
	// ========================================================================
	KeyDeviceID     = "device_id"     // Client device identifier
	KeyDeviceType   = "device_type"   // Client device type: iPhone, Outlook, ...
	KeyCollectionID = "collection_id" // Collection (folder) identifier
	KeySyncKey      = "sync_key"      // Sync key on the wire
	KeyPolicyKey    = "policy_key"    // Provisioning policy key

	// ========================================================================
	// Sync Batches
	// ========================================================================
	KeyItemCount     = "item_count"     // Items emitted in a batch
	KeyWindowSize    = "window_size"    // Effective window size
	KeyMoreAvailable = "more_available" // MoreAvailable emitted
	KeyServerID      = "server_id"      // Item server id
	KeyBodyType      = "body_type"      // Selected body type (1, 2, 4)
	KeySize          = "size"           // Payload size in bytes
	KeyTruncated     = "truncated"      // Body truncation indicator

	// ========================================================================
	// Ping
	// ========================================================================
	KeyHeartbeat = "heartbeat" // Heartbeat interval in seconds
	KeyFolders   = "folders"   // Monitored folder ids

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP = "client_ip" // Client IP address
	KeyUsername = "username"  // Authenticated username

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeyRequestID = "request_id" // HTTP middleware request ID

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyComponent  = "component"   // Subsystem: dispatcher, sync, ping, store
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Cmd returns a slog.Attr for the ActiveSync command name
func Cmd(name string) slog.Attr {
	return slog.String(KeyCmd, name)
}

// ProtocolVersion returns a slog.Attr for the negotiated protocol version
func ProtocolVersion(v string) slog.Attr {
	return slog.String(KeyProtocolVersion, v)
}

// Status returns a slog.Attr for a WBXML status value
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// HTTPStatus returns a slog.Attr for an HTTP status code
func HTTPStatus(code int) slog.Attr {
	return slog.Int(KeyHTTPStatus, code)
}

// StatusMsg returns a slog.Attr for a human-readable status message
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// DeviceID returns a slog.Attr for the client device identifier
func DeviceID(id string) slog.Attr {
	return slog.String(KeyDeviceID, id)
}

// DeviceType returns a slog.Attr for the client device type
func DeviceType(t string) slog.Attr {
	return slog.String(KeyDeviceType, t)
}

// CollectionID returns a slog.Attr for a collection identifier
func CollectionID(id string) slog.Attr {
	return slog.String(KeyCollectionID, id)
}

// SyncKey returns a slog.Attr for a sync key
func SyncKey(key string) slog.Attr {
	return slog.String(KeySyncKey, key)
}

// PolicyKey returns a slog.Attr for a provisioning policy key
func PolicyKey(key string) slog.Attr {
	return slog.String(KeyPolicyKey, key)
}

// ItemCount returns a slog.Attr for the number of items in a batch
func ItemCount(n int) slog.Attr {
	return slog.Int(KeyItemCount, n)
}

// WindowSize returns a slog.Attr for the effective window size
func WindowSize(n int) slog.Attr {
	return slog.Int(KeyWindowSize, n)
}

// MoreAvailable returns a slog.Attr for the MoreAvailable indicator
func MoreAvailable(more bool) slog.Attr {
	return slog.Bool(KeyMoreAvailable, more)
}

// ServerID returns a slog.Attr for an item server id
func ServerID(id string) slog.Attr {
	return slog.String(KeyServerID, id)
}

// BodyType returns a slog.Attr for the selected body type
func BodyType(t int) slog.Attr {
	return slog.Int(KeyBodyType, t)
}

// Size returns a slog.Attr for a payload size in bytes
func Size(n int) slog.Attr {
	return slog.Int(KeySize, n)
}

// Truncated returns a slog.Attr for the body truncation indicator
func Truncated(truncated bool) slog.Attr {
	return slog.Bool(KeyTruncated, truncated)
}

// Heartbeat returns a slog.Attr for a Ping heartbeat in seconds
func Heartbeat(seconds int) slog.Attr {
	return slog.Int(KeyHeartbeat, seconds)
}

// Folders returns a slog.Attr for a set of monitored folder ids
func Folders(ids []string) slog.Attr {
	return slog.Any(KeyFolders, ids)
}

// ClientIP returns a slog.Attr for a client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Username returns a slog.Attr for the authenticated username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// RequestID returns a slog.Attr for the HTTP middleware request ID
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error value. A nil error yields an
// empty attr that slog drops from the output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component returns a slog.Attr for the emitting subsystem
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}
