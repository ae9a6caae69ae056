package Notifications

import "log"

// Notifier is the seam to the external push-delivery service. The service
// itself only raises flags; delivery to operator devices happens elsewhere.
type Notifier interface {
	TaskFlagged(taskID uint, packCode, reason string)
}

// LogNotifier writes flag notifications to the application log. Used when no
// delivery backend is configured.
type LogNotifier struct{}

func (LogNotifier) TaskFlagged(taskID uint, packCode, reason string) {
	log.Printf("Task %d (%s) flagged suspicious: %s", taskID, packCode, reason)
}
