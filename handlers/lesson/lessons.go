package lesson

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/services/storage"
	queryHelper "github.com/sahilchouksey/dars-api/utils/query"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{"title"},
	OrderingFields: map[string]string{
		"start_time": "start_time",
		"title":      "title",
		"id":         "id",
	},
	Filters: map[string]queryHelper.Filter{
		"course_group_id": {Expr: "course_group_id", Kind: queryHelper.FilterInt},
	},
	DefaultOrder: "id ASC",
}

// LessonHandler handles lesson requests
type LessonHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	files     storage.FileStorage
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(db *gorm.DB, files storage.FileStorage) *LessonHandler {
	return &LessonHandler{
		db:        db,
		validator: validation.NewValidator(),
		files:     files,
	}
}

// LessonRequest represents a create or full update request. start_time is
// set by the server and cannot be written.
type LessonRequest struct {
	CourseGroupID uint   `json:"course_group_id" validate:"required,min=1"`
	Title         string `json:"title" validate:"required,max=250"`
	Likes         *int   `json:"likes" validate:"omitnil,min=0"`
	Dislikes      *int   `json:"dislikes" validate:"omitnil,min=0"`
}

// PatchLessonRequest represents a partial update request
type PatchLessonRequest struct {
	CourseGroupID *uint   `json:"course_group_id" validate:"omitnil,min=1"`
	Title         *string `json:"title" validate:"omitnil,min=1,max=250"`
	Likes         *int    `json:"likes" validate:"omitnil,min=0"`
	Dislikes      *int    `json:"dislikes" validate:"omitnil,min=0"`
}

// ListLessons handles GET /api/v1/lessons
func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var lessons []model.Lesson
	pagination, err := queryHelper.List(h.db, listSpec, opts, &lessons)
	if err != nil {
		return queryHelper.RespondListError(c, err, "lessons")
	}

	return response.Paginated(c, lessons, pagination)
}

// find loads the lesson named by :id, writing a 404 when it does not exist
func (h *LessonHandler) find(c *fiber.Ctx) (*model.Lesson, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Lesson not found")
	}

	var lesson model.Lesson
	if err := h.db.First(&lesson, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Lesson not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch lesson")
	}
	return &lesson, nil
}

// GetLesson handles GET /api/v1/lessons/:id
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	lesson, err := h.find(c)
	if lesson == nil {
		return err
	}
	return response.Success(c, lesson)
}

// groupExists returns the field error message for a missing course group
func (h *LessonHandler) groupExists(id uint) (string, error) {
	var count int64
	if err := h.db.Model(&model.CourseGroup{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id), nil
	}
	return "", nil
}

// CreateLesson handles POST /api/v1/lessons
func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	var req LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Title = validation.SanitizeString(req.Title)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	msg, err := h.groupExists(req.CourseGroupID)
	if err != nil {
		return response.InternalServerError(c, "Failed to verify course group")
	}
	if msg != "" {
		return response.FieldError(c, "course_group_id", msg)
	}

	lesson := model.Lesson{
		CourseGroupID: req.CourseGroupID,
		Title:         req.Title,
	}
	if req.Likes != nil {
		lesson.Likes = *req.Likes
	}
	if req.Dislikes != nil {
		lesson.Dislikes = *req.Dislikes
	}

	if err := h.db.Create(&lesson).Error; err != nil {
		log.Error().Err(err).Msg("failed to create lesson")
		return response.InternalServerError(c, "Failed to create lesson")
	}

	return response.Created(c, lesson)
}

// UpdateLesson handles PUT /api/v1/lessons/:id
func (h *LessonHandler) UpdateLesson(c *fiber.Ctx) error {
	lesson, err := h.find(c)
	if lesson == nil {
		return err
	}

	var req LessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Title = validation.SanitizeString(req.Title)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	// Omitted counters keep their stored values
	return h.apply(c, lesson, &req.CourseGroupID, &req.Title, req.Likes, req.Dislikes)
}

// PatchLesson handles PATCH /api/v1/lessons/:id
func (h *LessonHandler) PatchLesson(c *fiber.Ctx) error {
	lesson, err := h.find(c)
	if lesson == nil {
		return err
	}

	var req PatchLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Title != nil {
		title := validation.SanitizeString(*req.Title)
		req.Title = &title
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.apply(c, lesson, req.CourseGroupID, req.Title, req.Likes, req.Dislikes)
}

func (h *LessonHandler) apply(c *fiber.Ctx, lesson *model.Lesson, groupID *uint, title *string, likes, dislikes *int) error {
	updates := map[string]interface{}{}

	if groupID != nil {
		if *groupID != lesson.CourseGroupID {
			msg, err := h.groupExists(*groupID)
			if err != nil {
				return response.InternalServerError(c, "Failed to verify course group")
			}
			if msg != "" {
				return response.FieldError(c, "course_group_id", msg)
			}
		}
		updates["course_group_id"] = *groupID
		lesson.CourseGroupID = *groupID
	}
	if title != nil {
		updates["title"] = *title
		lesson.Title = *title
	}
	if likes != nil {
		updates["likes"] = *likes
		lesson.Likes = *likes
	}
	if dislikes != nil {
		updates["dislikes"] = *dislikes
		lesson.Dislikes = *dislikes
	}

	if len(updates) > 0 {
		if err := h.db.Model(&model.Lesson{ID: lesson.ID}).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update lesson")
		}
	}

	return response.SuccessWithMessage(c, "Lesson updated successfully", lesson)
}

// DeleteLesson handles DELETE /api/v1/lessons/:id. Videos and comments go
// with the lesson and the confirmation message travels in the X-Message header.
func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	lesson, err := h.find(c)
	if lesson == nil {
		return err
	}

	var videoKeys []string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		keys, err := database.DeleteLessons(tx, []uint{lesson.ID})
		videoKeys = keys
		return err
	})
	if err != nil {
		log.Error().Err(err).Uint("lesson_id", lesson.ID).Msg("failed to delete lesson")
		return response.InternalServerError(c, "Failed to delete lesson")
	}

	storage.RemoveAll(c.UserContext(), h.files, videoKeys)

	return response.Deleted(c, "Lesson deleted successfully")
}
