package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/kvstore"
)

func TestRecordCompletion(t *testing.T) {
	l := New(4)

	d := l.RecordCompletion("2024-01-01")
	assert.Equal(t, DaySession{Date: "2024-01-01", Completed: 1, Target: 4}, d)

	for range 10 {
		d = l.RecordCompletion("2024-01-01")
	}
	assert.Equal(t, 4, d.Completed, "completed never exceeds target")
	assert.Len(t, l.Sessions(), 1)

	l.RecordCompletion("2024-01-02")
	assert.Len(t, l.Sessions(), 2)
}

func TestRecordCompletion_SameDayTwiceCappedAtTarget(t *testing.T) {
	l := FromSessions([]DaySession{{Date: "2024-01-01", Completed: 3, Target: 4}}, 4)
	l.RecordCompletion("2024-01-01")
	l.RecordCompletion("2024-01-01")
	completed, target := l.DailyProgress("2024-01-01")
	assert.Equal(t, 4, completed)
	assert.Equal(t, 4, target)
}

func TestDailyProgress_DefaultWhenAbsent(t *testing.T) {
	l := New(0)
	completed, target := l.DailyProgress("2024-01-01")
	assert.Equal(t, 0, completed)
	assert.Equal(t, DefaultTarget, target)
	assert.Equal(t, "0/4", FormatProgress(completed, target))
	assert.Empty(t, l.Sessions(), "the default is not stored")
}

func TestEnsureDay(t *testing.T) {
	l := New(4)
	assert.True(t, l.EnsureDay("2024-01-01"))
	assert.False(t, l.EnsureDay("2024-01-01"))
	assert.Equal(t, []DaySession{{Date: "2024-01-01", Target: 4}}, l.Sessions())
}

func TestFromSessions_MergesDuplicateDates(t *testing.T) {
	l := FromSessions([]DaySession{
		{Date: "2024-01-01", Completed: 1, Target: 4},
		{Date: "2024-01-02", Completed: 2, Target: 4},
		{Date: "2024-01-01", Completed: 3, Target: 4},
		{Date: "2024-01-03", Completed: 9, Target: 4},
		{Date: "2024-01-04", Completed: 1, Target: 0},
	}, 4)

	assert.Equal(t, []DaySession{
		{Date: "2024-01-01", Completed: 3, Target: 4},
		{Date: "2024-01-02", Completed: 2, Target: 4},
		{Date: "2024-01-03", Completed: 4, Target: 4},
		{Date: "2024-01-04", Completed: 1, Target: 4},
	}, l.Sessions())
}

func TestClear(t *testing.T) {
	l := FromSessions([]DaySession{
		{Date: "2024-01-01", Completed: 4, Target: 4},
		{Date: "2024-01-02", Completed: 2, Target: 4},
	}, 4)
	l.Clear("2024-01-02")
	assert.Equal(t, []DaySession{{Date: "2024-01-02", Completed: 0, Target: 4}}, l.Sessions())
}

func TestSetTargetAppliesToNewDays(t *testing.T) {
	l := FromSessions([]DaySession{{Date: "2024-01-01", Completed: 1, Target: 4}}, 4)
	l.SetTarget(2)
	l.SetTarget(0)
	assert.Equal(t, 2, l.Target())

	l.RecordCompletion("2024-01-02")
	_, target := l.DailyProgress("2024-01-02")
	assert.Equal(t, 2, target)
	_, target = l.DailyProgress("2024-01-01")
	assert.Equal(t, 4, target)
}

func TestSessionsReturnsCopy(t *testing.T) {
	l := New(4)
	l.RecordCompletion("2024-01-01")
	s := l.Sessions()
	s[0].Completed = 99
	completed, _ := l.DailyProgress("2024-01-01")
	assert.Equal(t, 1, completed)
}

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2024-01-02", DateKey(time.Date(2024, 1, 2, 0, 30, 0, 0, loc)))
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	sessions, err := Load(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	l := New(4)
	require.NoError(t, l.Save(ctx, store))
	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	l.RecordCompletion("2024-01-01")
	require.NoError(t, l.Save(ctx, store))
	raw, err = store.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2024-01-01","completed":1,"target":4}]`, string(raw))

	sessions, err = Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, l.Sessions(), sessions)
}

func TestLoad_StorageFailure(t *testing.T) {
	store := kvstore.NewMemoryStore()
	store.FailOn("get", errors.New("io error"))
	_, err := Load(context.Background(), store)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryStorage))
}
