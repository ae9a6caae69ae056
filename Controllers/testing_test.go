package Controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"Kestrel/Models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Models.Migrate(db))
	return db
}

// testApp wires the custody routes with a fixed authenticated user, the way
// middleware.Verify would after a successful login.
func testApp(t *testing.T, db *gorm.DB, user Models.User) (*fiber.App, *EventController, *AttendanceController) {
	t.Helper()

	ec := NewEventController(db, t.TempDir(), 15*time.Minute)
	ac := NewAttendanceController(db, t.TempDir(), 100)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return c.Next()
	})
	app.Post("/api/tasks/:id/events", ec.SubmitTaskEvent)
	app.Get("/api/tasks/:id/events", ec.GetTaskEvents)
	app.Get("/api/tasks/:id/next-step", ec.GetNextStep)
	app.Post("/api/tasks/:id/attendance", ac.MarkAttendance)
	app.Get("/api/tasks/:id/attendance", ac.GetTaskAttendance)

	return app, ec, ac
}

func f64(v float64) *float64 { return &v }

// newTask inserts a full-shift task assigned to agent 7 with a window around
// the current time unless the caller overrides it.
func newTask(t *testing.T, db *gorm.DB, mutate func(*Models.Task)) Models.Task {
	t.Helper()
	task := Models.Task{
		PackCode:        fmt.Sprintf("PACK-%d", time.Now().UnixNano()),
		SourceName:      "Qena Police Station",
		SourceLat:       f64(26.1551),
		SourceLng:       f64(32.7160),
		DestinationName: "Qena Secondary School",
		DestinationLat:  f64(26.1642),
		DestinationLng:  f64(32.7267),
		AssignedUserID:  7,
		StartTime:       time.Now().Add(-time.Hour),
		EndTime:         time.Now().Add(3 * time.Hour),
		ExamType:        "THANAWEYA",
		Status:          "PENDING",
	}
	if mutate != nil {
		mutate(&task)
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func agent(id uint) Models.User {
	u := Models.User{Name: "Agent", Email: fmt.Sprintf("agent%d@example.com", id), Permission: Models.PermissionAgent}
	u.ID = id
	return u
}

func multipartRequest(t *testing.T, path string, fields map[string]string, imageBody []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if imageBody != nil {
		fw, err := w.CreateFormFile("image", "proof.jpg")
		require.NoError(t, err)
		_, err = fw.Write(imageBody)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func eventRequest(t *testing.T, taskID uint, eventType string) *http.Request {
	return multipartRequest(t, fmt.Sprintf("/api/tasks/%d/events", taskID), map[string]string{
		"event_type": eventType,
		"latitude":   "26.1600",
		"longitude":  "32.7200",
	}, []byte("proof-photo-"+eventType))
}

func attendanceRequest(t *testing.T, taskID uint, locationType, lat, lng string) *http.Request {
	return multipartRequest(t, fmt.Sprintf("/api/tasks/%d/attendance", taskID), map[string]string{
		"location_type": locationType,
		"latitude":      lat,
		"longitude":     lng,
	}, []byte("checkin-photo-"+locationType))
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
