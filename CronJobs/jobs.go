package CronJobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"Kestrel/Models"
	"Kestrel/Notifications"
)

// OverdueChecker periodically flags deliveries that ran past their window
// without completing. The request path only evaluates the window when an
// event arrives; an agent who stops submitting entirely would otherwise
// never be flagged.
type OverdueChecker struct {
	cronScheduler *cron.Cron
	db            *gorm.DB
	grace         time.Duration
	notifier      Notifications.Notifier
	jobID         cron.EntryID
}

// NewOverdueChecker creates a checker with the given grace period past the
// task end time.
func NewOverdueChecker(db *gorm.DB, grace time.Duration, notifier Notifications.Notifier) *OverdueChecker {
	return &OverdueChecker{
		cronScheduler: cron.New(cron.WithSeconds()),
		db:            db,
		grace:         grace,
		notifier:      notifier,
	}
}

// Start schedules the sweep. Format includes seconds, e.g.
// "0 */10 * * * *" = every 10 minutes.
func (o *OverdueChecker) Start(schedule string) error {
	if schedule == "" {
		schedule = "0 */10 * * * *"
	}

	var err error
	o.jobID, err = o.cronScheduler.AddFunc(schedule, func() {
		if _, err := o.RunSweep(time.Now()); err != nil {
			log.Printf("Overdue sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling overdue sweep: %w", err)
	}

	o.cronScheduler.Start()
	log.Printf("Overdue sweep scheduled: %s", schedule)
	return nil
}

// Stop terminates the scheduler.
func (o *OverdueChecker) Stop() {
	if o.cronScheduler != nil {
		o.cronScheduler.Stop()
		log.Println("Overdue sweep stopped")
	}
}

// RunSweep flags every unfinished task whose window (plus grace) has passed.
// Returns the number of tasks flagged. Completed tasks and tasks already
// flagged are left alone.
func (o *OverdueChecker) RunSweep(now time.Time) (int, error) {
	deadline := now.Add(-o.grace)

	var overdue []Models.Task
	err := o.db.
		Where("status <> ?", "COMPLETED").
		Where("suspicious = ?", false).
		Where("end_time < ?", deadline).
		Find(&overdue).Error
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, task := range overdue {
		if err := o.db.Model(&task).Update("suspicious", true).Error; err != nil {
			log.Printf("Failed to flag task %d: %v", task.ID, err)
			continue
		}
		flagged++
		if o.notifier != nil {
			o.notifier.TaskFlagged(task.ID, task.PackCode, "delivery window elapsed without completion")
		}
	}

	return flagged, nil
}
