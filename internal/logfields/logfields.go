package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyReminderID = "reminder_id"
	KeyLabel      = "label"
	KeyDeadline   = "deadline"
	KeyLeg        = "leg"
	KeyRepetition = "repetition"
	KeySession    = "session"
	KeySessionID  = "session_id"
	KeyDate       = "date"
	KeyKey        = "key"
	KeyBackend    = "backend"
	KeyPermission = "permission"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func ReminderID(id int) slog.Attr         { return slog.Int(KeyReminderID, id) }
func Label(l string) slog.Attr            { return slog.String(KeyLabel, l) }
func Deadline(t time.Time) slog.Attr      { return slog.String(KeyDeadline, t.Format(time.RFC3339)) }
func Leg(l string) slog.Attr              { return slog.String(KeyLeg, l) }
func Repetition(n int) slog.Attr          { return slog.Int(KeyRepetition, n) }
func Session(n int) slog.Attr             { return slog.Int(KeySession, n) }
func SessionID(id string) slog.Attr       { return slog.String(KeySessionID, id) }
func Date(d string) slog.Attr             { return slog.String(KeyDate, d) }
func Key(k string) slog.Attr              { return slog.String(KeyKey, k) }
func Backend(b string) slog.Attr          { return slog.String(KeyBackend, b) }
func Permission(p string) slog.Attr       { return slog.String(KeyPermission, p) }
func Path(p string) slog.Attr             { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr     { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
