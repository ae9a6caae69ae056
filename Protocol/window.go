package Protocol

import "time"

// Window is the permitted submission interval of a task, widened by a grace
// period on both ends. Events stamped outside it mark the task suspicious;
// they are still accepted and persisted.
type Window struct {
	Start time.Time
	End   time.Time
	Grace time.Duration
}

// Contains reports whether ts falls inside [Start-Grace, End+Grace].
func (w Window) Contains(ts time.Time) bool {
	if ts.Before(w.Start.Add(-w.Grace)) {
		return false
	}
	if ts.After(w.End.Add(w.Grace)) {
		return false
	}
	return true
}
