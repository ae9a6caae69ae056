package Protocol

// TaskStatus is the delivery lifecycle state. Transitions only move forward:
// PENDING -> IN_PROGRESS -> COMPLETED. The suspicious flag is tracked
// separately on the task and never alters the status.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

// CanAcceptEvents reports whether a task may still receive custody events.
// COMPLETED is terminal; the suspicious flag does not block submission.
func CanAcceptEvents(s TaskStatus) bool {
	return s != StatusCompleted
}

// Advance returns the status after accepting the given event. A first event
// moves PENDING to IN_PROGRESS; the final submission step is the only path to
// COMPLETED.
func Advance(current TaskStatus, accepted EventType) TaskStatus {
	if current == StatusCompleted {
		return StatusCompleted
	}
	if accepted == FinalStep() {
		return StatusCompleted
	}
	if current == StatusPending {
		return StatusInProgress
	}
	return current
}
