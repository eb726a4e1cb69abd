package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/dars-api/model"
	authutil "github.com/sahilchouksey/dars-api/utils/auth"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Username = validation.SanitizeString(req.Username)

	// Validate request
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	// Find user by username
	var user model.User
	if err := h.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		// Record failed attempt even if user not found
		h.bruteForceProtection.RecordFailedAttempt(c, req.Username)
		return response.Unauthorized(c, "Invalid username or password")
	}

	// Verify password
	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.bruteForceProtection.RecordFailedAttempt(c, req.Username)
		return response.Unauthorized(c, "Invalid username or password")
	}

	// Clear failed attempts on successful login
	h.bruteForceProtection.RecordSuccessfulAttempt(c)

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Username, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Success(c, AuthResponse{User: &user, TokenPair: tokens})
}
