package Controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Kestrel/Geo"
	"Kestrel/Models"
)

// AttendanceController records geo-fenced check-ins. Attendance is
// independent of the custody event sequence: a check-in outside the geofence
// is stored and flagged, never rejected, and a task that later turns
// suspicious keeps its records.
type AttendanceController struct {
	DB            *gorm.DB
	UploadDir     string
	DefaultRadius float64
	Now           func() time.Time

	locks *keyedMutex
}

func NewAttendanceController(db *gorm.DB, uploadDir string, defaultRadius float64) *AttendanceController {
	return &AttendanceController{
		DB:            db,
		UploadDir:     uploadDir,
		DefaultRadius: defaultRadius,
		Now:           time.Now,
		locks:         newKeyedMutex(),
	}
}

// MarkAttendance records a check-in photo for the pickup or destination side.
// POST /api/tasks/:id/attendance
func (ac *AttendanceController) MarkAttendance(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid task id")
	}

	locationType := c.FormValue("location_type")
	if locationType != Models.LocationPickup && locationType != Models.LocationDestination {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "location_type must be PICKUP or DESTINATION")
	}

	lat, latErr := strconv.ParseFloat(c.FormValue("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid coordinates")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "A check-in photo is required")
	}

	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Not logged in")
	}

	unlock := ac.locks.Lock("attendance:" + c.Params("id") + ":" + locationType)
	defer unlock()

	var task Models.Task
	if err := ac.DB.First(&task, taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, CodeTaskNotFound, "Task not found")
	}

	if user.Permission < Models.PermissionOps && task.AssignedUserID != user.ID {
		return fail(c, fiber.StatusForbidden, CodeUnauthorized, "You are not assigned to this task")
	}

	var existing Models.AttendanceRecord
	if err := ac.DB.Where("task_id = ? AND location_type = ?", task.ID, locationType).First(&existing).Error; err == nil {
		return fail(c, fiber.StatusConflict, CodeAlreadyMarked, "Attendance already marked for this location")
	}

	imageData, err := readUpload(file)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Could not read uploaded photo")
	}

	imagePath, _, err := storeUpload(ac.UploadDir, imageData, file.Filename)
	if err != nil {
		log.Printf("Failed to store attendance photo for task %d: %v", task.ID, err)
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to store photo")
	}

	record := Models.AttendanceRecord{
		TaskID:       task.ID,
		UserID:       user.ID,
		LocationType: locationType,
		ImagePath:    imagePath,
		Latitude:     lat,
		Longitude:    lng,
		RecordedAt:   ac.Now(),
	}

	// Soft-fail on the geofence: the record is always stored, the flag just
	// routes it to the review board. A task without target coordinates gets
	// neither distance nor verdict.
	if targetLat, targetLng, hasTarget := task.TargetCoordinates(locationType); hasTarget {
		distance := Geo.DistanceMeters(lat, lng, targetLat, targetLng)
		within := distance <= task.RadiusOrDefault(ac.DefaultRadius)
		record.DistanceMeters = &distance
		record.WithinGeofence = &within
	}

	if err := ac.DB.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fail(c, fiber.StatusConflict, CodeAlreadyMarked, "Attendance already marked for this location")
		}
		log.Printf("Failed to persist attendance for task %d: %v", task.ID, err)
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to save attendance")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Attendance marked successfully",
		"attendance": record,
	})
}

// GetTaskAttendance returns all check-ins for a task.
// GET /api/tasks/:id/attendance
func (ac *AttendanceController) GetTaskAttendance(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid task id")
	}

	var task Models.Task
	if err := ac.DB.First(&task, taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, CodeTaskNotFound, "Task not found")
	}

	if user, ok := c.Locals("user").(Models.User); ok {
		if user.Permission < Models.PermissionOps && task.AssignedUserID != user.ID {
			return fail(c, fiber.StatusForbidden, CodeUnauthorized, "You are not assigned to this task")
		}
	}

	var records []Models.AttendanceRecord
	if err := ac.DB.Where("task_id = ?", task.ID).Order("recorded_at ASC").Find(&records).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to fetch attendance")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "Attendance retrieved successfully",
		"attendance": records,
	})
}

