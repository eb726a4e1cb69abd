package comment

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	queryHelper "github.com/sahilchouksey/dars-api/utils/query"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{"content"},
	OrderingFields: map[string]string{
		"created_at": "created_at",
		"id":         "id",
	},
	Filters: map[string]queryHelper.Filter{
		"lesson_id": {Expr: "lesson_id", Kind: queryHelper.FilterInt},
		"author_id": {Expr: "author_id", Kind: queryHelper.FilterInt},
		"liked":     {Expr: "liked", Kind: queryHelper.FilterString},
	},
	DefaultOrder: "id ASC",
	Preloads:     []string{"Author"},
}

// CommentHandler handles lesson comments
type CommentHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// CommentRequest represents a create or full update request. The author is
// always the caller.
type CommentRequest struct {
	LessonID uint    `json:"lesson_id" validate:"required,min=1"`
	Content  string  `json:"content" validate:"required"`
	Liked    *string `json:"liked" validate:"omitnil,oneof=like dislike"`
}

// PatchCommentRequest represents a partial update request
type PatchCommentRequest struct {
	LessonID *uint   `json:"lesson_id" validate:"omitnil,min=1"`
	Content  *string `json:"content" validate:"omitnil,min=1"`
	Liked    *string `json:"liked" validate:"omitnil,oneof=like dislike"`
}

// normalizeLiked maps an empty reaction to "no reaction"
func normalizeLiked(liked *string) *string {
	if liked == nil || *liked == "" {
		return nil
	}
	return liked
}

// ListComments handles GET /api/v1/comments
func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var comments []model.Comment
	pagination, err := queryHelper.List(h.db, listSpec, opts, &comments)
	if err != nil {
		return queryHelper.RespondListError(c, err, "comments")
	}

	return response.Paginated(c, comments, pagination)
}

// find loads the comment named by :id, writing a 404 when it does not exist
func (h *CommentHandler) find(c *fiber.Ctx) (*model.Comment, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Comment not found")
	}

	var comment model.Comment
	if err := h.db.Preload("Author").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Comment not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch comment")
	}
	return &comment, nil
}

// GetComment handles GET /api/v1/comments/:id
func (h *CommentHandler) GetComment(c *fiber.Ctx) error {
	comment, err := h.find(c)
	if comment == nil {
		return err
	}
	return response.Success(c, comment)
}

// lessonExists returns the field error message for a missing lesson
func (h *CommentHandler) lessonExists(id uint) (string, error) {
	var count int64
	if err := h.db.Model(&model.Lesson{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id), nil
	}
	return "", nil
}

// CreateComment handles POST /api/v1/comments
func (h *CommentHandler) CreateComment(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Content = validation.SanitizeString(req.Content)
	req.Liked = normalizeLiked(req.Liked)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	msg, err := h.lessonExists(req.LessonID)
	if err != nil {
		return response.InternalServerError(c, "Failed to verify lesson")
	}
	if msg != "" {
		return response.FieldError(c, "lesson_id", msg)
	}

	comment := model.Comment{
		LessonID: req.LessonID,
		AuthorID: user.ID,
		Content:  req.Content,
		Liked:    req.Liked,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		log.Error().Err(err).Msg("failed to create comment")
		return response.InternalServerError(c, "Failed to create comment")
	}
	comment.Author = user

	return response.Created(c, comment)
}

// UpdateComment handles PUT /api/v1/comments/:id
func (h *CommentHandler) UpdateComment(c *fiber.Ctx) error {
	comment, err := h.find(c)
	if comment == nil {
		return err
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Content = validation.SanitizeString(req.Content)
	req.Liked = normalizeLiked(req.Liked)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.apply(c, comment, &req.LessonID, &req.Content, req.Liked, true)
}

// PatchComment handles PATCH /api/v1/comments/:id
func (h *CommentHandler) PatchComment(c *fiber.Ctx) error {
	comment, err := h.find(c)
	if comment == nil {
		return err
	}

	// Distinguish an absent "liked" from an explicit null
	var raw map[string]interface{}
	if err := c.BodyParser(&raw); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	_, likedSent := raw["liked"]

	var req PatchCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Content != nil {
		content := validation.SanitizeString(*req.Content)
		req.Content = &content
	}
	req.Liked = normalizeLiked(req.Liked)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.apply(c, comment, req.LessonID, req.Content, req.Liked, likedSent)
}

// apply writes the provided fields. Author and created_at never change.
func (h *CommentHandler) apply(c *fiber.Ctx, comment *model.Comment, lessonID *uint, content, liked *string, setLiked bool) error {
	updates := map[string]interface{}{}

	if lessonID != nil {
		if *lessonID != comment.LessonID {
			msg, err := h.lessonExists(*lessonID)
			if err != nil {
				return response.InternalServerError(c, "Failed to verify lesson")
			}
			if msg != "" {
				return response.FieldError(c, "lesson_id", msg)
			}
		}
		updates["lesson_id"] = *lessonID
		comment.LessonID = *lessonID
	}
	if content != nil {
		updates["content"] = *content
		comment.Content = *content
	}
	if setLiked {
		updates["liked"] = liked
		comment.Liked = liked
	}

	if len(updates) > 0 {
		if err := h.db.Model(&model.Comment{ID: comment.ID}).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update comment")
		}
	}

	return response.SuccessWithMessage(c, "Comment updated successfully", comment)
}

// DeleteComment handles DELETE /api/v1/comments/:id
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	comment, err := h.find(c)
	if comment == nil {
		return err
	}

	if err := h.db.Delete(&model.Comment{}, comment.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete comment")
	}

	return response.Deleted(c, "Comment deleted successfully")
}
