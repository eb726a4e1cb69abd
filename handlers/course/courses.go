package course

import (
	"errors"

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

const titleTakenMessage = "course with this title already exists."

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{"title", "description", "id"},
	OrderingFields: map[string]string{
		"title":      "title",
		"created_at": "created_at",
	},
	Filters: map[string]queryHelper.Filter{
		"author_id": {Expr: "author_id", Kind: queryHelper.FilterInt},
	},
	DefaultOrder: "id ASC",
	Preloads:     []string{"Author"},
}

// CourseHandler handles course-related requests
type CourseHandler struct {
	db            *gorm.DB
	validator     *validation.Validator
	notifications *services.NotificationService
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, notifications *services.NotificationService) *CourseHandler {
	return &CourseHandler{
		db:            db,
		validator:     validation.NewValidator(),
		notifications: notifications,
	}
}

// CourseRequest represents a create or full update request
type CourseRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
}

// PatchCourseRequest represents a partial update request
type PatchCourseRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=255"`
	Description *string `json:"description" validate:"omitnil,min=1"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var courses []model.Course
	pagination, err := queryHelper.List(h.db, listSpec, opts, &courses)
	if err != nil {
		return queryHelper.RespondListError(c, err, "courses")
	}

	return response.Paginated(c, courses, pagination)
}

// find loads the course named by :id. On failure it writes the error
// response and returns a nil course.
func (h *CourseHandler) find(c *fiber.Ctx) (*model.Course, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Course not found")
	}

	var course model.Course
	if err := h.db.Preload("Author").First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Course not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch course")
	}
	return &course, nil
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.find(c)
	if course == nil {
		return err
	}
	return response.Success(c, course)
}

// titleTaken reports whether another course already uses title
func (h *CourseHandler) titleTaken(title string, excludeID uint) (bool, error) {
	var count int64
	query := h.db.Model(&model.Course{}).Where("title = ?", title)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	// Get user from context
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	// Parse request body
	var req CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Sanitize inputs
	req.Title = validation.SanitizeString(req.Title)
	req.Description = validation.SanitizeString(req.Description)

	// Validate request
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	// Check if course with same title already exists
	taken, err := h.titleTaken(req.Title, 0)
	if err != nil {
		return response.InternalServerError(c, "Failed to verify title")
	}
	if taken {
		return response.FieldError(c, "title", titleTakenMessage)
	}

	course := model.Course{
		Title:       req.Title,
		Description: req.Description,
		AuthorID:    user.ID,
	}

	if err := h.db.Create(&course).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "title", titleTakenMessage)
		}
		log.Error().Err(err).Msg("failed to create course")
		return response.InternalServerError(c, "Failed to create course")
	}
	course.Author = user

	// The course stays committed even when the email cannot be sent
	if err := h.notifications.NotifyCourseCreated(c.UserContext(), user, &course); err != nil {
		return response.NotificationFailed(c, "Course created but the notification email could not be sent")
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	course, err := h.find(c)
	if course == nil {
		return err
	}

	var req CourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Title = validation.SanitizeString(req.Title)
	req.Description = validation.SanitizeString(req.Description)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.save(c, course, req.Title, req.Description)
}

// PatchCourse handles PATCH /api/v1/courses/:id
func (h *CourseHandler) PatchCourse(c *fiber.Ctx) error {
	course, err := h.find(c)
	if course == nil {
		return err
	}

	var req PatchCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	title, description := course.Title, course.Description
	if req.Title != nil {
		title = validation.SanitizeString(*req.Title)
		req.Title = &title
	}
	if req.Description != nil {
		description = validation.SanitizeString(*req.Description)
		req.Description = &description
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.save(c, course, title, description)
}

// save applies title and description; author and created_at never change
func (h *CourseHandler) save(c *fiber.Ctx, course *model.Course, title, description string) error {
	if title != course.Title {
		taken, err := h.titleTaken(title, course.ID)
		if err != nil {
			return response.InternalServerError(c, "Failed to verify title")
		}
		if taken {
			return response.FieldError(c, "title", titleTakenMessage)
		}
	}

	err := h.db.Model(course).Updates(map[string]interface{}{
		"title":       title,
		"description": description,
	}).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "title", titleTakenMessage)
		}
		return response.InternalServerError(c, "Failed to update course")
	}

	course.Title = title
	course.Description = description
	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	course, err := h.find(c)
	if course == nil {
		return err
	}

	if err := h.db.Delete(&model.Course{}, course.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete course")
	}

	return response.Deleted(c, "Course deleted successfully")
}

// SendUpdate handles POST /api/v1/courses/:id/send-update. The course itself
// is not modified.
func (h *CourseHandler) SendUpdate(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	course, err := h.find(c)
	if course == nil {
		return err
	}

	if err := h.notifications.NotifyCourseUpdated(c.UserContext(), user, course); err != nil {
		return response.NotificationFailed(c, "")
	}

	return response.SuccessWithMessage(c, "Email sent successfully", fiber.Map{"detail": "Email sent successfully"})
}
