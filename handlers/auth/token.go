package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/model"
	authutil "github.com/sahilchouksey/dars-api/utils/auth"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	"github.com/sahilchouksey/dars-api/utils/response"
	"gorm.io/gorm"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshToken handles POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	// Validate refresh token
	claims, err := h.jwtManager.ValidateTokenOfType(req.RefreshToken, authutil.TokenTypeRefresh)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	// Check if token is blacklisted
	isRevoked, err := h.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	// Load user to get current token version
	var user model.User
	if err := h.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.Unauthorized(c, "Invalid or expired refresh token")
		}
		return response.InternalServerError(c, "Failed to load user")
	}

	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	// Blacklist old refresh token before issuing a new pair
	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, authutil.TokenExpiry(claims), authutil.RevokeReasonRefresh); err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("failed to revoke refresh token")
		return response.InternalServerError(c, "Failed to rotate refresh token")
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Username, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Success(c, AuthResponse{TokenPair: tokens})
}

// Logout handles POST /api/v1/auth/logout by blacklisting the access token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, _ := middleware.GetUser(c)
	claims, ok := middleware.GetClaims(c)
	if !ok || user == nil {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, authutil.TokenExpiry(claims), authutil.RevokeReasonLogout); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}
