package ledger

import (
	"slices"
	"time"
)

// Streak counts consecutive calendar days with the target met, ending at ref.
//
// Input may be unsorted and contain duplicate dates; the last record for a
// date wins. A record for ref that misses its target yields 0. Otherwise the
// count starts at the most recent qualifying day on or before ref and walks
// backward until the first day without a qualifying record. Unparseable dates
// are ignored.
func Streak(sessions []DaySession, ref string) int {
	refDay, err := time.Parse(DateLayout, ref)
	if err != nil {
		return 0
	}

	latest := make(map[string]DaySession, len(sessions))
	for _, d := range sessions {
		latest[d.Date] = d
	}
	if d, ok := latest[ref]; ok && !d.Met() {
		return 0
	}

	qualifying := make(map[string]bool, len(latest))
	days := make([]time.Time, 0, len(latest))
	for date, d := range latest {
		day, err := time.Parse(DateLayout, date)
		if err != nil || !d.Met() || day.After(refDay) {
			continue
		}
		qualifying[DateKey(day)] = true
		days = append(days, day)
	}
	if len(days) == 0 {
		return 0
	}

	anchor := slices.MaxFunc(days, func(a, b time.Time) int { return a.Compare(b) })
	streak := 0
	for day := anchor; qualifying[DateKey(day)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}
