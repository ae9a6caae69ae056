package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Kestrel/Models"
)

// TaskController is the minimal assignment surface. The full admin console
// lives in a separate application; this service only needs enough to create
// and inspect delivery tasks.
type TaskController struct {
	DB *gorm.DB
}

func NewTaskController(db *gorm.DB) *TaskController {
	return &TaskController{DB: db}
}

type CreateTaskRequest struct {
	PackCode        string   `json:"pack_code" validate:"required"`
	SourceName      string   `json:"source_name" validate:"required"`
	SourceLat       *float64 `json:"source_lat"`
	SourceLng       *float64 `json:"source_lng"`
	DestinationName string   `json:"destination_name" validate:"required"`
	DestinationLat  *float64 `json:"destination_lat"`
	DestinationLng  *float64 `json:"destination_lng"`
	AssignedUserID  uint     `json:"assigned_user_id" validate:"required"`
	StartTime       string   `json:"start_time" validate:"required"`
	EndTime         string   `json:"end_time" validate:"required"`
	ExamType        string   `json:"exam_type"`
	DoubleShift     bool     `json:"double_shift"`
	ShiftType       string   `json:"shift_type" validate:"omitempty,oneof=MORNING AFTERNOON"`
	GeofenceRadius  *float64 `json:"geofence_radius"`
}

// CreateTask registers a sealed-pack delivery assignment.
// POST /api/tasks
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, err.Error())
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "start_time must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "end_time must be RFC3339")
	}
	if !start.Before(end) {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "start_time must be before end_time")
	}

	var agent Models.User
	if err := tc.DB.First(&agent, req.AssignedUserID).Error; err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Assigned agent does not exist")
	}

	task := Models.Task{
		PackCode:        req.PackCode,
		SourceName:      req.SourceName,
		SourceLat:       req.SourceLat,
		SourceLng:       req.SourceLng,
		DestinationName: req.DestinationName,
		DestinationLat:  req.DestinationLat,
		DestinationLng:  req.DestinationLng,
		AssignedUserID:  req.AssignedUserID,
		StartTime:       start,
		EndTime:         end,
		ExamType:        req.ExamType,
		DoubleShift:     req.DoubleShift,
		ShiftType:       req.ShiftType,
		GeofenceRadius:  req.GeofenceRadius,
		Status:          "PENDING",
	}
	if err := tc.DB.Create(&task).Error; err != nil {
		return fail(c, fiber.StatusConflict, CodeInvalidRequest, "A task with this pack code already exists")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Task created successfully",
		"task":    task,
	})
}

// GetAllTasks lists tasks, optionally filtered by status or agent.
// GET /api/tasks
func (tc *TaskController) GetAllTasks(c *fiber.Ctx) error {
	query := tc.DB.Model(&Models.Task{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if agent := c.Query("agent_id"); agent != "" {
		query = query.Where("assigned_user_id = ?", agent)
	}
	if c.Query("suspicious") == "true" {
		query = query.Where("suspicious = ?", true)
	}

	var tasks []Models.Task
	if err := query.Order("start_time ASC").Find(&tasks).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to fetch tasks")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Tasks retrieved successfully",
		"tasks":   tasks,
		"total":   len(tasks),
	})
}

// GetTask returns one task with its events and attendance preloaded.
// GET /api/tasks/:id
func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid task id")
	}

	var task Models.Task
	err = tc.DB.
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at ASC") }).
		Preload("Attendance").
		First(&task, taskID).Error
	if err != nil {
		return fail(c, fiber.StatusNotFound, CodeTaskNotFound, "Task not found")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Task retrieved successfully",
		"task":    task,
	})
}

// GetMyTasks lists the caller's assignments for today's duty screen.
// GET /api/tasks/mine
func (tc *TaskController) GetMyTasks(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Not logged in")
	}

	var tasks []Models.Task
	if err := tc.DB.Where("assigned_user_id = ?", user.ID).Order("start_time ASC").Find(&tasks).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Failed to fetch tasks")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Tasks retrieved successfully",
		"tasks":   tasks,
		"total":   len(tasks),
	})
}
