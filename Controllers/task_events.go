package Controllers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"Kestrel/Models"
	"Kestrel/Protocol"
)

// EventController accepts proof-of-custody submissions from field agents.
// Submission runs the whole read-validate-write cycle under a per-task lock,
// with the unique index on (task_id, event_type) as the storage-level
// backstop against racing duplicates.
type EventController struct {
	DB        *gorm.DB
	UploadDir string
	Grace     time.Duration
	Now       func() time.Time

	locks *keyedMutex
}

func NewEventController(db *gorm.DB, uploadDir string, grace time.Duration) *EventController {
	return &EventController{
		DB:        db,
		UploadDir: uploadDir,
		Grace:     grace,
		Now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// SubmitTaskEvent records one custody checkpoint.
// POST /api/tasks/:id/events
func (ec *EventController) SubmitTaskEvent(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid task id")
	}

	eventType, ok := Protocol.ParseEventType(c.FormValue("event_type"))
	if !ok {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Unknown event type")
	}

	lat, latErr := strconv.ParseFloat(c.FormValue("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if latErr != nil || lngErr != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid coordinates")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "A proof photo is required")
	}

	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Not logged in")
	}

	// Steps below must not interleave for the same task.
	unlock := ec.locks.Lock("events:" + c.Params("id"))
	defer unlock()

	var task Models.Task
	if err := ec.DB.First(&task, taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, CodeTaskNotFound, "Task not found")
	}

	if user.Permission < Models.PermissionOps && task.AssignedUserID != user.ID {
		return fail(c, fiber.StatusForbidden, CodeUnauthorized, "You are not assigned to this task")
	}

	if !Protocol.CanAcceptEvents(Protocol.TaskStatus(task.Status)) {
		return fail(c, fiber.StatusConflict, CodeTaskCompleted, "This delivery is already completed")
	}

	completed, err := Models.CompletedEventTypes(ec.DB, task.ID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to load recorded events")
	}

	if completed[eventType] {
		return fail(c, fiber.StatusConflict, CodeDuplicateEvent, "This step was already submitted")
	}

	if !Protocol.IsAllowed(eventType, completed, task.IsAfternoonShift()) {
		next := Protocol.NextExpected(completed, task.IsAfternoonShift())
		return fail(c, fiber.StatusBadRequest, CodeSequenceViolation,
			fmt.Sprintf("Complete the previous step first. Next expected step is %s", next))
	}

	// Validation passed; everything from here on is the write path. The
	// timestamp and content hash are server-assigned, client values are
	// never trusted.
	imageData, err := readUpload(file)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Could not read uploaded photo")
	}
	hash := sha256.Sum256(imageData)

	imagePath, thumbPath, err := storeUpload(ec.UploadDir, imageData, file.Filename)
	if err != nil {
		log.Printf("Failed to store proof photo for task %d: %v", task.ID, err)
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to store photo")
	}

	recordedAt := ec.Now()
	window := Protocol.Window{Start: task.StartTime, End: task.EndTime, Grace: ec.Grace}
	windowMiss := !window.Contains(recordedAt)

	event := Models.TaskEvent{
		TaskID:     task.ID,
		EventType:  string(eventType),
		ImagePath:  imagePath,
		ThumbPath:  thumbPath,
		ImageHash:  hex.EncodeToString(hash[:]),
		Latitude:   lat,
		Longitude:  lng,
		RecordedAt: recordedAt,
	}

	newStatus := Protocol.Advance(Protocol.TaskStatus(task.Status), eventType)

	// The flag only ever moves to true. The overdue sweep may set it between
	// our task load and this write, so never write false back.
	updates := map[string]interface{}{"status": string(newStatus)}
	if windowMiss {
		updates["suspicious"] = true
	}

	err = ec.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		return tx.Model(&task).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fail(c, fiber.StatusConflict, CodeDuplicateEvent, "This step was already submitted")
		}
		log.Printf("Failed to persist event for task %d: %v", task.ID, err)
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to save event")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Event recorded successfully",
		"event":       event,
		"task_status": string(newStatus),
		"suspicious":  task.Suspicious || windowMiss,
	})
}

// GetTaskEvents returns the recorded events in custody order.
// GET /api/tasks/:id/events
func (ec *EventController) GetTaskEvents(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid task id")
	}

	var task Models.Task
	if err := ec.DB.First(&task, taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, CodeTaskNotFound, "Task not found")
	}

	if user, ok := c.Locals("user").(Models.User); ok {
		if user.Permission < Models.PermissionOps && task.AssignedUserID != user.ID {
			return fail(c, fiber.StatusForbidden, CodeUnauthorized, "You are not assigned to this task")
		}
	}

	var events []Models.TaskEvent
	if err := ec.DB.Where("task_id = ?", task.ID).Order("recorded_at ASC").Find(&events).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to fetch events")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Events retrieved successfully",
		"task":    task,
		"events":  events,
	})
}

// GetNextStep tells the client which single step it may offer next. The
// mobile UI renders exactly this and never re-encodes the protocol order.
// GET /api/tasks/:id/next-step
func (ec *EventController) GetNextStep(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid task id")
	}

	var task Models.Task
	if err := ec.DB.First(&task, taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, CodeTaskNotFound, "Task not found")
	}

	if user, ok := c.Locals("user").(Models.User); ok {
		if user.Permission < Models.PermissionOps && task.AssignedUserID != user.ID {
			return fail(c, fiber.StatusForbidden, CodeUnauthorized, "You are not assigned to this task")
		}
	}

	completed, err := Models.CompletedEventTypes(ec.DB, task.ID)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to load recorded events")
	}

	next := Protocol.NextExpected(completed, task.IsAfternoonShift())
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"next_expected": string(next),
		"complete":      next == Protocol.SequenceComplete,
		"task_status":   task.Status,
		"suspicious":    task.Suspicious,
	})
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

// storeUpload writes the photo under a server-generated name and a
// review-board thumbnail next to it. A photo that cannot be decoded still
// gets stored; only the thumbnail is skipped.
func storeUpload(dir string, data []byte, originalName string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".jpg"
	}
	name := uuid.New().String()
	imagePath := filepath.Join(dir, name+ext)
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return "", "", err
	}

	thumbPath := ""
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
		candidate := filepath.Join(dir, name+"_thumb.jpg")
		if err := imaging.Save(thumb, candidate); err == nil {
			thumbPath = candidate
		} else {
			log.Printf("Failed to save thumbnail for %s: %v", imagePath, err)
		}
	}

	return imagePath, thumbPath, nil
}
