package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRoot       = "root"
	KeyNode       = "node"
	KeyEntry      = "entry"
	KeyStrategy   = "strategy"
	KeyAttempted  = "attempted"
	KeyRemoved    = "removed"
	KeyFailed     = "failed"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Root(path string) slog.Attr      { return slog.String(KeyRoot, path) }
func Node(name string) slog.Attr      { return slog.String(KeyNode, name) }
func Entry(path string) slog.Attr     { return slog.String(KeyEntry, path) }
func Strategy(name string) slog.Attr  { return slog.String(KeyStrategy, name) }
func Attempted(n int) slog.Attr       { return slog.Int(KeyAttempted, n) }
func Removed(n int) slog.Attr         { return slog.Int(KeyRemoved, n) }
func Failed(n int) slog.Attr          { return slog.Int(KeyFailed, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
