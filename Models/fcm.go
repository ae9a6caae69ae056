package Models

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DeviceToken is the push-registration handle of an agent's phone. Actual
// push delivery is handled by an external service; this service only keeps
// the registration current.
type DeviceToken struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"uniqueIndex"`
	Value  string `json:"value" gorm:"not null"`
}

type UpdateTokenRequest struct {
	Value string `json:"value" validate:"required"`
}

func UpdateToken(c *fiber.Ctx) error {
	var req UpdateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if req.Value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Token value is required",
		})
	}

	user, ok := c.Locals("user").(User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not logged in",
		})
	}

	var token DeviceToken
	err := DB.Where("user_id = ?", user.ID).FirstOrCreate(&token, DeviceToken{
		UserID: user.ID,
		Value:  req.Value,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to save token",
		})
	}

	if token.Value != req.Value {
		token.Value = req.Value
		if err := DB.Save(&token).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to update token",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Token updated successfully",
	})
}
