package logger

import (
	"log/slog"
)

// Standard field keys for structured logging. Use these consistently so log
// lines from the controller, the service directory and the API can be joined.
const (
	// Tracing and request correlation
	KeyTraceID   = "trace_id"
	KeyRequestID = "request_id"
	KeyClientIP  = "client_ip"
	KeySubject   = "subject"

	// Lifecycle
	KeyOperation = "operation"  // start, stop, restart, rebuild, update
	KeyJobID     = "job_id"     // supervised job identifier
	KeyState     = "state"      // controller state after a transition
	KeyFromState = "from_state" // controller state before a transition
	KeySafeMode  = "safe_mode"
	KeyForce     = "force"
	KeyVersion   = "version"
	KeyBackup    = "backup"
	KeyImage     = "image"
	KeyPID       = "pid"

	// Services
	KeySlug     = "slug"
	KeyAddon    = "addon"
	KeyProvider = "provider"

	// Persistence
	KeyStoreType = "store_type"
	KeyPath      = "path"

	// Generic
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyCount      = "count"
)

// Operation returns a slog attribute for a lifecycle operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// JobID returns a slog attribute for a supervised job id.
func JobID(id string) slog.Attr {
	return slog.String(KeyJobID, id)
}

// State returns a slog attribute for a controller state.
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}

// Slug returns a slog attribute for a service slug.
func Slug(slug string) slog.Attr {
	return slog.String(KeySlug, slug)
}

// Addon returns a slog attribute for an add-on slug.
func Addon(addon string) slog.Attr {
	return slog.String(KeyAddon, addon)
}

// DurationMs returns a slog attribute for an elapsed time in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog attribute for an error. A nil error yields an empty
// attribute which handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
