// Package reminder models daily reminders and schedules their notifications.
package reminder

import (
	"fmt"
	"slices"
	"time"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
)

// TimeOfDay is a wall-clock hour and minute. It is encoded as "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a strict two-digit "HH:MM" between 00:00 and 23:59.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil || len(raw) != len("15:04") {
		return TimeOfDay{}, ferrors.ValidationError("time must be HH:MM between 00:00 and 23:59").
			WithContext("value", raw).
			Build()
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustTimeOfDay is ParseTimeOfDay for literals.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Reminder is one daily notification.
type Reminder struct {
	ID      int       `json:"id"`
	Time    TimeOfDay `json:"time"`
	Enabled bool      `json:"enabled"`
	Label   string    `json:"label"`
}

// Defaults is the reminder set used on first run.
func Defaults() []Reminder {
	return []Reminder{
		{ID: 1, Time: TimeOfDay{8, 0}, Enabled: true, Label: "Morning"},
		{ID: 2, Time: TimeOfDay{12, 0}, Enabled: true, Label: "Lunch"},
		{ID: 3, Time: TimeOfDay{17, 0}, Enabled: true, Label: "Evening"},
		{ID: 4, Time: TimeOfDay{21, 0}, Enabled: false, Label: "Night"},
	}
}

// Message is the notification body for a reminder label.
func Message(label string) string {
	return fmt.Sprintf("Time for your %s calf stretching session!", label)
}

// NextDeadline returns the first instant strictly after now at which t occurs:
// today at t (in now's location) or, if that is not after now, one calendar
// day later.
func NextDeadline(t TimeOfDay, now time.Time) time.Time {
	deadline := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !deadline.After(now) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	return deadline
}

// Validate rejects duplicate ids.
func Validate(reminders []Reminder) error {
	seen := make(map[int]bool, len(reminders))
	for _, r := range reminders {
		if seen[r.ID] {
			return ferrors.ValidationError("duplicate reminder id").WithContext("id", r.ID).Build()
		}
		seen[r.ID] = true
	}
	return nil
}

func indexOf(reminders []Reminder, id int) int {
	return slices.IndexFunc(reminders, func(r Reminder) bool { return r.ID == id })
}
