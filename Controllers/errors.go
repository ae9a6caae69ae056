package Controllers

import "github.com/gofiber/fiber/v2"

// Stable error codes returned alongside every rejection. The mobile client
// switches on the code, never on the message text.
const (
	CodeTaskNotFound      = "TASK_NOT_FOUND"
	CodeTaskCompleted     = "TASK_COMPLETED"
	CodeDuplicateEvent    = "DUPLICATE_EVENT"
	CodeSequenceViolation = "SEQUENCE_VIOLATION"
	CodeAlreadyMarked     = "ALREADY_MARKED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInternalError     = "INTERNAL_ERROR"
)

func fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message":   message,
		"errorCode": code,
	})
}
