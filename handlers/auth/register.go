package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/model"
	authutil "github.com/sahilchouksey/dars-api/utils/auth"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

const usernameTakenMessage = "A user with that username already exists."

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	validator            *validation.Validator
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil.
func NewAuthHandler(db *gorm.DB, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		validator:            validation.NewValidator(),
		jwtManager:           jwtManager,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// AuthResponse is returned by registration, login and refresh
type AuthResponse struct {
	User *model.User `json:"user,omitempty"`
	*authutil.TokenPair
}

// Register handles POST /api/v1/register and POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Sanitize inputs
	req.Username = validation.SanitizeString(req.Username)
	req.Email = strings.ToLower(validation.SanitizeString(req.Email))
	req.FirstName = validation.SanitizeString(req.FirstName)
	req.LastName = validation.SanitizeString(req.LastName)

	// Validate request
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	// Check if username is taken
	var count int64
	if err := h.db.Model(&model.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return response.InternalServerError(c, "Failed to verify username")
	}
	if count > 0 {
		return response.FieldError(c, "username", usernameTakenMessage)
	}

	// Hash password
	hashedPassword, err := authutil.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	user := model.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hashedPassword,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "username", usernameTakenMessage)
		}
		log.Error().Err(err).Msg("failed to create user")
		return response.InternalServerError(c, "Failed to create user")
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Username, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	log.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("user registered")

	return response.Created(c, AuthResponse{User: &user, TokenPair: tokens})
}
