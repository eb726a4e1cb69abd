package coursegroup

import (
	"errors"

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
	SearchFields: []string{"name", "description"},
	OrderingFields: map[string]string{
		"name": "name",
		"id":   "id",
	},
	DefaultOrder: "id ASC",
}

// CourseGroupHandler handles course group requests
type CourseGroupHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	files     storage.FileStorage
}

// NewCourseGroupHandler creates a new course group handler
func NewCourseGroupHandler(db *gorm.DB, files storage.FileStorage) *CourseGroupHandler {
	return &CourseGroupHandler{
		db:        db,
		validator: validation.NewValidator(),
		files:     files,
	}
}

// CourseGroupRequest represents a create or full update request
type CourseGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
}

// PatchCourseGroupRequest represents a partial update request
type PatchCourseGroupRequest struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=255"`
	Description *string `json:"description"`
}

// ListGroups handles GET /api/v1/groups
func (h *CourseGroupHandler) ListGroups(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var groups []model.CourseGroup
	pagination, err := queryHelper.List(h.db, listSpec, opts, &groups)
	if err != nil {
		return queryHelper.RespondListError(c, err, "groups")
	}

	return response.Paginated(c, groups, pagination)
}

// find loads the group named by :id, writing a 404 when it does not exist
func (h *CourseGroupHandler) find(c *fiber.Ctx) (*model.CourseGroup, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Course group not found")
	}

	var group model.CourseGroup
	if err := h.db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Course group not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch course group")
	}
	return &group, nil
}

// GetGroup handles GET /api/v1/groups/:id
func (h *CourseGroupHandler) GetGroup(c *fiber.Ctx) error {
	group, err := h.find(c)
	if group == nil {
		return err
	}
	return response.Success(c, group)
}

func sanitizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	d := validation.SanitizeString(*description)
	return &d
}

// CreateGroup handles POST /api/v1/groups
func (h *CourseGroupHandler) CreateGroup(c *fiber.Ctx) error {
	var req CourseGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Description = sanitizeDescription(req.Description)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	group := model.CourseGroup{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.db.Create(&group).Error; err != nil {
		return response.InternalServerError(c, "Failed to create course group")
	}

	return response.Created(c, group)
}

// UpdateGroup handles PUT /api/v1/groups/:id
func (h *CourseGroupHandler) UpdateGroup(c *fiber.Ctx) error {
	group, err := h.find(c)
	if group == nil {
		return err
	}

	var req CourseGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Name = validation.SanitizeString(req.Name)
	req.Description = sanitizeDescription(req.Description)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	group.Name = req.Name
	group.Description = req.Description

	if err := h.db.Save(group).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course group")
	}

	return response.SuccessWithMessage(c, "Course group updated successfully", group)
}

// PatchGroup handles PATCH /api/v1/groups/:id
func (h *CourseGroupHandler) PatchGroup(c *fiber.Ctx) error {
	group, err := h.find(c)
	if group == nil {
		return err
	}

	var req PatchCourseGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		req.Name = &name
	}
	req.Description = sanitizeDescription(req.Description)

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = req.Description
	}

	if err := h.db.Save(group).Error; err != nil {
		return response.InternalServerError(c, "Failed to update course group")
	}

	return response.SuccessWithMessage(c, "Course group updated successfully", group)
}

// DeleteGroup handles DELETE /api/v1/groups/:id. Memberships and lessons
// (with their videos and comments) go with the group.
func (h *CourseGroupHandler) DeleteGroup(c *fiber.Ctx) error {
	group, err := h.find(c)
	if group == nil {
		return err
	}

	var videoKeys []string
	err = h.db.Transaction(func(tx *gorm.DB) error {
		keys, err := database.DeleteCourseGroup(tx, group)
		videoKeys = keys
		return err
	})
	if err != nil {
		log.Error().Err(err).Uint("group_id", group.ID).Msg("failed to delete course group")
		return response.InternalServerError(c, "Failed to delete course group")
	}

	storage.RemoveAll(c.UserContext(), h.files, videoKeys)

	return response.Deleted(c, "Course group deleted successfully")
}
