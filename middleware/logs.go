package middleware

import (
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"Kestrel/Models"
)

// LogData is one request log line.
type LogData struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"latency"`
	IP        string        `json:"ip"`
	UserID    interface{}   `json:"user_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RequestLogger logs every request to the console and, when LOG_FILE is set,
// appends JSON lines to that file.
func RequestLogger() fiber.Handler {
	logPath := os.Getenv("LOG_FILE")
	var file *os.File
	if logPath != "" {
		var err error
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Printf("Error opening log file: %v\n", err)
			file = nil
		}
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		data := LogData{
			Timestamp: start,
			Method:    c.Method(),
			Path:      c.Path(),
			Status:    c.Response().StatusCode(),
			Latency:   time.Since(start),
			IP:        c.IP(),
		}
		if err != nil {
			data.Error = err.Error()
		}
		if u, ok := c.Locals("user").(Models.User); ok {
			data.UserID = u.ID
		}

		log.Printf("%s %s %d %v", data.Method, data.Path, data.Status, data.Latency)

		if file != nil {
			if line, jsonErr := json.Marshal(data); jsonErr == nil {
				file.Write(append(line, '\n'))
			}
		}

		return err
	}
}
