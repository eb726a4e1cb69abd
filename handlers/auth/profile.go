package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitnil,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string `json:"last_name" validate:"omitnil,max=150"`
}

// GetProfile handles GET /api/v1/profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}
	return response.Success(c, user)
}

// UpdateProfile handles PATCH /api/v1/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email != nil {
		email := strings.ToLower(validation.SanitizeString(*req.Email))
		req.Email = &email
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	// Update fields if provided
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = validation.SanitizeString(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = validation.SanitizeString(*req.LastName)
	}

	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.SuccessWithMessage(c, "Profile updated successfully", user)
}

// DeleteProfile handles DELETE /api/v1/profile. Everything the account owns
// is deleted with it.
func (h *AuthHandler) DeleteProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteUser(tx, user)
	})
	if err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to delete account")
		return response.InternalServerError(c, "Failed to delete account")
	}

	log.Info().Uint("user_id", user.ID).Msg("account deleted")
	return response.Deleted(c, "Account deleted successfully")
}
