package metrics

// Recorder defines observability hooks for session, reminder and storage events.
// Implementations must tolerate being called from timer goroutines.
type Recorder interface {
	IncSessionCompleted()
	IncHoldCompleted(leg string)
	IncReminderFired(label string)
	SetRemindersArmed(n int)
	IncStorageFailure(op string)
	SetStreak(days int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSessionCompleted()     {}
func (NoopRecorder) IncHoldCompleted(string)  {}
func (NoopRecorder) IncReminderFired(string)  {}
func (NoopRecorder) SetRemindersArmed(int)    {}
func (NoopRecorder) IncStorageFailure(string) {}
func (NoopRecorder) SetStreak(int)            {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
