package teacher

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/services"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	queryHelper "github.com/sahilchouksey/dars-api/utils/query"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

const userLinkedMessage = "teacher with this user already exists."

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{"name", "email"},
	OrderingFields: map[string]string{
		"name":       "name",
		"experience": "experience",
		"id":         "id",
	},
	Filters: map[string]queryHelper.Filter{
		"is_working": {Expr: "is_working", Kind: queryHelper.FilterBool},
		"user_id":    {Expr: "user_id", Kind: queryHelper.FilterInt},
	},
	DefaultOrder: "id ASC",
}

// TeacherHandler handles teacher requests
type TeacherHandler struct {
	db            *gorm.DB
	validator     *validation.Validator
	notifications *services.NotificationService
}

// NewTeacherHandler creates a new teacher handler
func NewTeacherHandler(db *gorm.DB, notifications *services.NotificationService) *TeacherHandler {
	return &TeacherHandler{
		db:            db,
		validator:     validation.NewValidator(),
		notifications: notifications,
	}
}

// TeacherRequest represents a create or full update request
type TeacherRequest struct {
	UserID      *uint   `json:"user_id" validate:"omitnil,min=1"`
	Name        string  `json:"name" validate:"required,max=50,singleline"`
	Email       string  `json:"email" validate:"required,email,max=254"`
	PhoneNumber *string `json:"phone_number" validate:"omitnil,max=15"`
	Biography   *string `json:"biography"`
	Experience  *int    `json:"experience" validate:"omitnil,min=0,max=35"`
	IsWorking   *bool   `json:"is_working"`
}

// PatchTeacherRequest represents a partial update request
type PatchTeacherRequest struct {
	UserID      *uint   `json:"user_id" validate:"omitnil,min=1"`
	Name        *string `json:"name" validate:"omitnil,min=1,max=50,singleline"`
	Email       *string `json:"email" validate:"omitnil,email,max=254"`
	PhoneNumber *string `json:"phone_number" validate:"omitnil,max=15"`
	Biography   *string `json:"biography"`
	Experience  *int    `json:"experience" validate:"omitnil,min=0,max=35"`
	IsWorking   *bool   `json:"is_working"`
}

func sanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := validation.SanitizeString(*s)
	return &v
}

// ListTeachers handles GET /api/v1/teachers
func (h *TeacherHandler) ListTeachers(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var teachers []model.Teacher
	pagination, err := queryHelper.List(h.db, listSpec, opts, &teachers)
	if err != nil {
		return queryHelper.RespondListError(c, err, "teachers")
	}

	return response.Paginated(c, teachers, pagination)
}

// find loads the teacher named by :id, writing a 404 when it does not exist
func (h *TeacherHandler) find(c *fiber.Ctx) (*model.Teacher, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Teacher not found")
	}

	var teacher model.Teacher
	if err := h.db.First(&teacher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Teacher not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch teacher")
	}
	return &teacher, nil
}

// GetTeacher handles GET /api/v1/teachers/:id
func (h *TeacherHandler) GetTeacher(c *fiber.Ctx) error {
	teacher, err := h.find(c)
	if teacher == nil {
		return err
	}
	return response.Success(c, teacher)
}

// checkUser validates the optional account link. It returns the field
// error message, or "" when the link is acceptable.
func (h *TeacherHandler) checkUser(userID *uint, excludeTeacherID uint) (string, error) {
	if userID == nil {
		return "", nil
	}

	var count int64
	if err := h.db.Model(&model.User{}).Where("id = ?", *userID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *userID), nil
	}

	query := h.db.Model(&model.Teacher{}).Where("user_id = ?", *userID)
	if excludeTeacherID != 0 {
		query = query.Where("id <> ?", excludeTeacherID)
	}
	if err := query.Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return userLinkedMessage, nil
	}
	return "", nil
}

// CreateTeacher handles POST /api/v1/teachers
func (h *TeacherHandler) CreateTeacher(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	var req TeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Sanitize inputs
	req.Name = validation.SanitizeString(req.Name)
	req.Email = validation.SanitizeString(req.Email)
	req.PhoneNumber = sanitizeOptional(req.PhoneNumber)
	req.Biography = sanitizeOptional(req.Biography)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	msg, err := h.checkUser(req.UserID, 0)
	if err != nil {
		return response.InternalServerError(c, "Failed to verify user")
	}
	if msg != "" {
		return response.FieldError(c, "user_id", msg)
	}

	teacher := model.Teacher{
		UserID:      req.UserID,
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Biography:   req.Biography,
		IsWorking:   true,
	}
	if req.Experience != nil {
		teacher.Experience = *req.Experience
	}
	if req.IsWorking != nil {
		teacher.IsWorking = *req.IsWorking
	}

	if err := h.db.Create(&teacher).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "user_id", userLinkedMessage)
		}
		log.Error().Err(err).Msg("failed to create teacher")
		return response.InternalServerError(c, "Failed to create teacher")
	}

	// The teacher stays committed even when the email cannot be sent
	if err := h.notifications.NotifyTeacherCreated(c.UserContext(), user, &teacher); err != nil {
		return response.NotificationFailed(c, "Teacher created but the notification email could not be sent")
	}

	return response.Created(c, teacher)
}

// UpdateTeacher handles PUT /api/v1/teachers/:id
func (h *TeacherHandler) UpdateTeacher(c *fiber.Ctx) error {
	teacher, err := h.find(c)
	if teacher == nil {
		return err
	}

	var req TeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Email = validation.SanitizeString(req.Email)
	req.PhoneNumber = sanitizeOptional(req.PhoneNumber)
	req.Biography = sanitizeOptional(req.Biography)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	msg, err := h.checkUser(req.UserID, teacher.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to verify user")
	}
	if msg != "" {
		return response.FieldError(c, "user_id", msg)
	}

	teacher.UserID = req.UserID
	teacher.Name = req.Name
	teacher.Email = req.Email
	teacher.PhoneNumber = req.PhoneNumber
	teacher.Biography = req.Biography
	// Omitted experience and is_working keep their stored values
	if req.Experience != nil {
		teacher.Experience = *req.Experience
	}
	if req.IsWorking != nil {
		teacher.IsWorking = *req.IsWorking
	}

	return h.save(c, teacher)
}

// PatchTeacher handles PATCH /api/v1/teachers/:id
func (h *TeacherHandler) PatchTeacher(c *fiber.Ctx) error {
	teacher, err := h.find(c)
	if teacher == nil {
		return err
	}

	var req PatchTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Name = sanitizeOptional(req.Name)
	req.Email = sanitizeOptional(req.Email)
	req.PhoneNumber = sanitizeOptional(req.PhoneNumber)
	req.Biography = sanitizeOptional(req.Biography)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	if req.UserID != nil {
		msg, err := h.checkUser(req.UserID, teacher.ID)
		if err != nil {
			return response.InternalServerError(c, "Failed to verify user")
		}
		if msg != "" {
			return response.FieldError(c, "user_id", msg)
		}
		teacher.UserID = req.UserID
	}

	// Update fields if provided
	if req.Name != nil {
		teacher.Name = *req.Name
	}
	if req.Email != nil {
		teacher.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		teacher.PhoneNumber = req.PhoneNumber
	}
	if req.Biography != nil {
		teacher.Biography = req.Biography
	}
	if req.Experience != nil {
		teacher.Experience = *req.Experience
	}
	if req.IsWorking != nil {
		teacher.IsWorking = *req.IsWorking
	}

	return h.save(c, teacher)
}

func (h *TeacherHandler) save(c *fiber.Ctx, teacher *model.Teacher) error {
	if err := h.db.Save(teacher).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "user_id", userLinkedMessage)
		}
		return response.InternalServerError(c, "Failed to update teacher")
	}
	return response.SuccessWithMessage(c, "Teacher updated successfully", teacher)
}

// DeleteTeacher handles DELETE /api/v1/teachers/:id
func (h *TeacherHandler) DeleteTeacher(c *fiber.Ctx) error {
	teacher, err := h.find(c)
	if teacher == nil {
		return err
	}

	if err := h.db.Delete(&model.Teacher{}, teacher.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete teacher")
	}

	return response.Deleted(c, "Teacher deleted successfully")
}
