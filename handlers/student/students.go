package student

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/model"
	queryHelper "github.com/sahilchouksey/dars-api/utils/query"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

const userTakenMessage = "student with this user already exists."

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{
		"user_id IN (SELECT id FROM users WHERE LOWER(username) LIKE ?)",
		"user_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)",
	},
	OrderingFields: map[string]string{
		"id": "id",
	},
	Filters: map[string]queryHelper.Filter{
		"is_studying": {Expr: "is_studying", Kind: queryHelper.FilterBool},
		"user_id":     {Expr: "user_id", Kind: queryHelper.FilterInt},
		"group_id": {
			Expr: "id IN (SELECT student_id FROM student_groups WHERE course_group_id = ?)",
			Kind: queryHelper.FilterInt,
		},
	},
	DefaultOrder: "id ASC",
	Preloads:     []string{"User", "Groups"},
}

// StudentHandler handles student requests
type StudentHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(db *gorm.DB) *StudentHandler {
	return &StudentHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// StudentRequest represents a create or full update request
type StudentRequest struct {
	UserID     uint   `json:"user_id" validate:"required,min=1"`
	IsStudying *bool  `json:"is_studying"`
	GroupIDs   []uint `json:"group_ids" validate:"omitempty,dive,min=1"`
}

// PatchStudentRequest represents a partial update request
type PatchStudentRequest struct {
	UserID     *uint   `json:"user_id" validate:"omitnil,min=1"`
	IsStudying *bool   `json:"is_studying"`
	GroupIDs   *[]uint `json:"group_ids" validate:"omitnil,dive,min=1"`
}

// ListStudents handles GET /api/v1/students
func (h *StudentHandler) ListStudents(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var students []model.Student
	pagination, err := queryHelper.List(h.db, listSpec, opts, &students)
	if err != nil {
		return queryHelper.RespondListError(c, err, "students")
	}

	return response.Paginated(c, students, pagination)
}

// find loads the student named by :id, writing a 404 when it does not exist
func (h *StudentHandler) find(c *fiber.Ctx) (*model.Student, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Student not found")
	}

	var student model.Student
	if err := h.db.Preload("User").Preload("Groups").First(&student, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Student not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch student")
	}
	return &student, nil
}

// GetStudent handles GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *fiber.Ctx) error {
	student, err := h.find(c)
	if student == nil {
		return err
	}
	return response.Success(c, student)
}

// checkUser returns a field error message when userID cannot back a student
func (h *StudentHandler) checkUser(userID uint, excludeStudentID uint) (string, error) {
	var count int64
	if err := h.db.Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", userID), nil
	}

	query := h.db.Model(&model.Student{}).Where("user_id = ?", userID)
	if excludeStudentID != 0 {
		query = query.Where("id <> ?", excludeStudentID)
	}
	if err := query.Count(&count).Error; err != nil {
		return "", err
	}
	if count > 0 {
		return userTakenMessage, nil
	}
	return "", nil
}

// loadGroups resolves group ids, returning a field error message for the
// first id that does not exist
func (h *StudentHandler) loadGroups(ids []uint) ([]model.CourseGroup, string, error) {
	groups := make([]model.CourseGroup, 0, len(ids))
	if len(ids) == 0 {
		return groups, "", nil
	}

	if err := h.db.Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, "", err
	}

	found := make(map[uint]bool, len(groups))
	for _, g := range groups {
		found[g.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id), nil
		}
	}
	return groups, "", nil
}

// CreateStudent handles POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *fiber.Ctx) error {
	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

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

	groups, msg, err := h.loadGroups(req.GroupIDs)
	if err != nil {
		return response.InternalServerError(c, "Failed to verify groups")
	}
	if msg != "" {
		return response.FieldError(c, "group_ids", msg)
	}

	student := model.Student{
		UserID: req.UserID,
		Groups: groups,
	}
	if req.IsStudying != nil {
		student.IsStudying = *req.IsStudying
	}

	if err := h.db.Create(&student).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "user_id", userTakenMessage)
		}
		log.Error().Err(err).Msg("failed to create student")
		return response.InternalServerError(c, "Failed to create student")
	}

	var created model.Student
	if err := h.db.Preload("User").Preload("Groups").First(&created, student.ID).Error; err != nil {
		log.Error().Err(err).Uint("student_id", student.ID).Msg("failed to reload student")
		return response.InternalServerError(c, "Failed to fetch student")
	}

	return response.Created(c, created)
}

// UpdateStudent handles PUT /api/v1/students/:id
func (h *StudentHandler) UpdateStudent(c *fiber.Ctx) error {
	student, err := h.find(c)
	if student == nil {
		return err
	}

	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	isStudying := false
	if req.IsStudying != nil {
		isStudying = *req.IsStudying
	}
	groupIDs := req.GroupIDs
	if groupIDs == nil {
		groupIDs = []uint{}
	}

	return h.apply(c, student, &req.UserID, &isStudying, &groupIDs)
}

// PatchStudent handles PATCH /api/v1/students/:id
func (h *StudentHandler) PatchStudent(c *fiber.Ctx) error {
	student, err := h.find(c)
	if student == nil {
		return err
	}

	var req PatchStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.apply(c, student, req.UserID, req.IsStudying, req.GroupIDs)
}

// apply updates the provided fields and, when groupIDs is non-nil, replaces
// the memberships
func (h *StudentHandler) apply(c *fiber.Ctx, student *model.Student, userID *uint, isStudying *bool, groupIDs *[]uint) error {
	if userID != nil && *userID != student.UserID {
		msg, err := h.checkUser(*userID, student.ID)
		if err != nil {
			return response.InternalServerError(c, "Failed to verify user")
		}
		if msg != "" {
			return response.FieldError(c, "user_id", msg)
		}
	}

	var groups []model.CourseGroup
	if groupIDs != nil {
		var msg string
		var err error
		groups, msg, err = h.loadGroups(*groupIDs)
		if err != nil {
			return response.InternalServerError(c, "Failed to verify groups")
		}
		if msg != "" {
			return response.FieldError(c, "group_ids", msg)
		}
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if userID != nil {
			updates["user_id"] = *userID
		}
		if isStudying != nil {
			updates["is_studying"] = *isStudying
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.Student{ID: student.ID}).Updates(updates).Error; err != nil {
				return err
			}
		}
		if groupIDs != nil {
			memberships := tx.Model(&model.Student{ID: student.ID}).Association("Groups")
			if len(groups) == 0 {
				return memberships.Clear()
			}
			return memberships.Replace(groups)
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return response.FieldError(c, "user_id", userTakenMessage)
		}
		log.Error().Err(err).Uint("student_id", student.ID).Msg("failed to update student")
		return response.InternalServerError(c, "Failed to update student")
	}

	var updated model.Student
	if err := h.db.Preload("User").Preload("Groups").First(&updated, student.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch student")
	}

	return response.SuccessWithMessage(c, "Student updated successfully", updated)
}

// DeleteStudent handles DELETE /api/v1/students/:id. The confirmation message
// travels in the X-Message header since a 204 has no body.
func (h *StudentHandler) DeleteStudent(c *fiber.Ctx) error {
	student, err := h.find(c)
	if student == nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		return database.DeleteStudent(tx, student)
	})
	if err != nil {
		log.Error().Err(err).Uint("student_id", student.ID).Msg("failed to delete student")
		return response.InternalServerError(c, "Failed to delete student")
	}

	return response.Deleted(c, "Student deleted successfully")
}
