package FiberConfig

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"gorm.io/gorm"

	"Kestrel/Controllers"
	"Kestrel/Models"
	"Kestrel/middleware"
)

// GeofenceRadius returns the default attendance radius in meters.
func GeofenceRadius() float64 {
	if v, err := strconv.ParseFloat(os.Getenv("GEOFENCE_RADIUS_METERS"), 64); err == nil && v > 0 {
		return v
	}
	return 100
}

// GraceDuration returns the tolerance applied on both ends of a task's
// delivery window before an event timestamp counts as suspicious.
func GraceDuration() time.Duration {
	if v, err := strconv.Atoi(os.Getenv("SUSPICIOUS_GRACE_MINUTES")); err == nil && v >= 0 {
		return time.Duration(v) * time.Minute
	}
	return 15 * time.Minute
}

// UploadDir returns where proof photos are stored.
func UploadDir() string {
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		return dir
	}
	return "uploads"
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	taskController := Controllers.NewTaskController(db)
	eventController := Controllers.NewEventController(db, UploadDir(), GraceDuration())
	attendanceController := Controllers.NewAttendanceController(db, UploadDir(), GeofenceRadius())
	reviewController := Controllers.NewReviewController(db)

	api := app.Group("/api")

	// Auth and device plumbing
	api.Post("/Login", Controllers.Login)
	api.Post("/Logout", Controllers.Logout)
	api.Get("/User", middleware.Verify(1), Controllers.User)
	api.Post("/RegisterUser", middleware.Verify(Models.PermissionAdmin), Controllers.RegisterUser)
	api.Post("/UpdateToken", middleware.Verify(1), Models.UpdateToken)

	// Task routes. "/mine" must come before the ":id" routes.
	tasks := api.Group("/tasks", middleware.Verify(1))
	tasks.Get("/mine", taskController.GetMyTasks)
	tasks.Get("/", middleware.Verify(Models.PermissionOps), taskController.GetAllTasks)
	tasks.Post("/", middleware.Verify(Models.PermissionOps), taskController.CreateTask)
	tasks.Get("/:id", middleware.Verify(Models.PermissionOps), taskController.GetTask)

	// Custody events and attendance
	tasks.Post("/:id/events", eventController.SubmitTaskEvent)
	tasks.Get("/:id/events", eventController.GetTaskEvents)
	tasks.Get("/:id/next-step", eventController.GetNextStep)
	tasks.Post("/:id/attendance", attendanceController.MarkAttendance)
	tasks.Get("/:id/attendance", attendanceController.GetTaskAttendance)

	// Operator review surface
	review := api.Group("/review", middleware.Verify(Models.PermissionOps))
	review.Get("/suspicious", reviewController.GetSuspiciousTasks)
	review.Get("/out-of-fence", reviewController.GetOutOfFenceAttendance)
	app.Get("/review", middleware.Verify(Models.PermissionOps), reviewController.ReviewBoard)
}

func FiberConfig() {
	fmt.Println("Server Up...")
	engine := html.New("./Templates", ".html")
	app := fiber.New(fiber.Config{
		Views:     engine,
		BodyLimit: 20 * 1024 * 1024, // proof photos
	})
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB)
	app.Static("/uploads", UploadDir())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Fatal(app.Listen(":" + port))
}
