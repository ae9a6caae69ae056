package Controllers

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"Kestrel/Models"
	"Kestrel/middleware"
)

var validate = validator.New()

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterUserRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Permission int    `json:"permission" validate:"min=1,max=4"`
	Phone      string `json:"phone"`
}

// Login authenticates an agent and sets the jwt cookie the mobile app sends
// with every subsequent request.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Email and password are required")
	}

	var user Models.User
	if err := Models.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Incorrect email or password")
	}

	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(req.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Incorrect email or password")
	}

	claims := jwt.RegisteredClaims{
		Issuer:    strconv.Itoa(int(user.ID)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.SecretKey())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Could not log in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged in successfully",
		"user":    user,
	})
}

func Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// User returns the authenticated caller resolved by middleware.Verify.
func User(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Not logged in")
	}
	return c.Status(fiber.StatusOK).JSON(user)
}

// RegisterUser creates an account. Admin only.
func RegisterUser(c *fiber.Ctx) error {
	var req RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fail(c, fiber.StatusBadRequest, CodeInvalidRequest, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, CodeInternalError, "Could not hash password")
	}

	permission := req.Permission
	if permission == 0 {
		permission = Models.PermissionAgent
	}

	user := Models.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   hash,
		Permission: permission,
		Phone:      req.Phone,
	}
	if err := Models.DB.Create(&user).Error; err != nil {
		return fail(c, fiber.StatusConflict, CodeInvalidRequest, "A user with this email already exists")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}
