package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Label", KeyLabel, "Morning", Label("Morning")},
		{"Leg", KeyLeg, "left", Leg("left")},
		{"SessionID", KeySessionID, "abc", SessionID("abc")},
		{"Date", KeyDate, "2024-01-02", Date("2024-01-02")},
		{"Key", KeyKey, "sessions", Key("sessions")},
		{"Backend", KeyBackend, "sqlite", Backend("sqlite")},
		{"Permission", KeyPermission, "granted", Permission("granted")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Deadline", KeyDeadline, "2024-01-02T08:00:00Z", Deadline(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC))},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric helpers.
func TestNumericHelpers(t *testing.T) {
	if v := ReminderID(3); v.Key != KeyReminderID || v.Value.Int64() != 3 {
		t.Fatalf("ReminderID mismatch: %v", v)
	}
	if v := Repetition(6); v.Key != KeyRepetition {
		t.Fatalf("Repetition key mismatch: %s", v.Key)
	}
	if v := Session(2); v.Key != KeySession {
		t.Fatalf("Session key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError || attr.Value.String() != "" {
		t.Fatalf("unexpected nil error attr: %v", attr)
	}
	attr = Error(errors.New("err-test"))
	if attr.Value.String() != "err-test" {
		t.Fatalf("expected 'err-test', got %s", attr.Value.String())
	}
}
