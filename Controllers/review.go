package Controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Kestrel/Models"
)

// ReviewController is the operator surface for the advisory flags: tasks
// marked suspicious and attendance recorded outside the geofence. Nothing
// here mutates state; review outcomes are handled out of band.
type ReviewController struct {
	DB *gorm.DB
}

func NewReviewController(db *gorm.DB) *ReviewController {
	return &ReviewController{DB: db}
}

// ReviewBoard renders the HTML review page.
// GET /review
func (rc *ReviewController) ReviewBoard(c *fiber.Ctx) error {
	var suspicious []Models.Task
	rc.DB.Where("suspicious = ?", true).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at ASC") }).
		Order("end_time DESC").
		Find(&suspicious)

	var outOfFence []Models.AttendanceRecord
	rc.DB.Where("within_geofence = ?", false).Order("recorded_at DESC").Find(&outOfFence)

	return c.Render("review", fiber.Map{
		"Suspicious": suspicious,
		"OutOfFence": outOfFence,
	})
}

// GetSuspiciousTasks returns flagged tasks with their events.
// GET /api/review/suspicious
func (rc *ReviewController) GetSuspiciousTasks(c *fiber.Ctx) error {
	var tasks []Models.Task
	err := rc.DB.Where("suspicious = ?", true).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at ASC") }).
		Order("end_time DESC").
		Find(&tasks).Error
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to fetch suspicious tasks")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Suspicious tasks retrieved successfully",
		"tasks":   tasks,
		"total":   len(tasks),
	})
}

// GetOutOfFenceAttendance returns check-ins recorded outside the geofence.
// GET /api/review/out-of-fence
func (rc *ReviewController) GetOutOfFenceAttendance(c *fiber.Ctx) error {
	var records []Models.AttendanceRecord
	if err := rc.DB.Where("within_geofence = ?", false).Order("recorded_at DESC").Find(&records).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to fetch attendance")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "Attendance retrieved successfully",
		"attendance": records,
		"total":      len(records),
	})
}
