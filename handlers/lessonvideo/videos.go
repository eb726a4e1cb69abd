package lessonvideo

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/services/storage"
	queryHelper "github.com/sahilchouksey/dars-api/utils/query"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/sahilchouksey/dars-api/utils/validation"
	"gorm.io/gorm"
)

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{"name"},
	OrderingFields: map[string]string{
		"name": "name",
		"id":   "id",
	},
	Filters: map[string]queryHelper.Filter{
		"lesson_id": {Expr: "lesson_id", Kind: queryHelper.FilterInt},
	},
	DefaultOrder: "id ASC",
}

// LessonVideoHandler handles lesson video uploads
type LessonVideoHandler struct {
	db        *gorm.DB
	validator *validation.Validator
	files     storage.FileStorage
}

// NewLessonVideoHandler creates a new lesson video handler
func NewLessonVideoHandler(db *gorm.DB, files storage.FileStorage) *LessonVideoHandler {
	return &LessonVideoHandler{
		db:        db,
		validator: validation.NewValidator(),
		files:     files,
	}
}

// LessonVideoRequest is validated on create and full update. VideoFile holds
// the uploaded file name.
type LessonVideoRequest struct {
	Name      string `json:"name" validate:"required,max=155"`
	LessonID  uint   `json:"lesson_id" validate:"required,min=1"`
	VideoFile string `json:"video_file" validate:"required,videoext"`
}

// PatchLessonVideoRequest is validated on partial update
type PatchLessonVideoRequest struct {
	Name      *string `json:"name" validate:"omitnil,min=1,max=155"`
	LessonID  *uint   `json:"lesson_id" validate:"omitnil,min=1"`
	VideoFile *string `json:"video_file" validate:"omitnil,videoext"`
}

// videoInput is what a multipart or JSON request carried
type videoInput struct {
	Name     *string `json:"name"`
	LessonID *uint   `json:"lesson_id"`
	file     *multipart.FileHeader
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// parseInput reads name, lesson_id and video_file from a multipart form, or
// name and lesson_id from a JSON body. It returns false after writing an
// error response.
func (h *LessonVideoHandler) parseInput(c *fiber.Ctx) (*videoInput, bool) {
	in := &videoInput{}

	if !isMultipart(c) {
		if err := c.BodyParser(in); err != nil {
			_ = response.BadRequest(c, "Invalid request body")
			return nil, false
		}
		if in.Name != nil {
			name := validation.SanitizeString(*in.Name)
			in.Name = &name
		}
		return in, true
	}

	form, err := c.MultipartForm()
	if err != nil {
		_ = response.BadRequest(c, "Invalid multipart form")
		return nil, false
	}

	if values, ok := form.Value["name"]; ok && len(values) > 0 {
		name := validation.SanitizeString(values[0])
		in.Name = &name
	}
	if values, ok := form.Value["lesson_id"]; ok && len(values) > 0 && values[0] != "" {
		id, err := strconv.ParseUint(strings.TrimSpace(values[0]), 10, 64)
		if err != nil {
			_ = response.FieldError(c, "lesson_id", "A valid integer is required.")
			return nil, false
		}
		lessonID := uint(id)
		in.LessonID = &lessonID
	}
	if files, ok := form.File["video_file"]; ok && len(files) > 0 {
		in.file = files[0]
	}

	return in, true
}

func (in *videoInput) fileName() *string {
	if in.file == nil {
		return nil
	}
	return &in.file.Filename
}

// ListLessonVideos handles GET /api/v1/lesson-videos
func (h *LessonVideoHandler) ListLessonVideos(c *fiber.Ctx) error {
	opts := queryHelper.ParseListOptions(c)

	var videos []model.LessonVideo
	pagination, err := queryHelper.List(h.db, listSpec, opts, &videos)
	if err != nil {
		return queryHelper.RespondListError(c, err, "lesson videos")
	}

	for i := range videos {
		h.withURL(&videos[i])
	}

	return response.Paginated(c, videos, pagination)
}

func (h *LessonVideoHandler) withURL(video *model.LessonVideo) *model.LessonVideo {
	if h.files != nil && video.VideoFile != "" {
		video.VideoURL = h.files.URL(video.VideoFile)
	}
	return video
}

// find loads the video named by :id, writing a 404 when it does not exist
func (h *LessonVideoHandler) find(c *fiber.Ctx) (*model.LessonVideo, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, response.NotFound(c, "Lesson video not found")
	}

	var video model.LessonVideo
	if err := h.db.First(&video, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Lesson video not found")
		}
		return nil, response.InternalServerError(c, "Failed to fetch lesson video")
	}
	return &video, nil
}

// GetLessonVideo handles GET /api/v1/lesson-videos/:id
func (h *LessonVideoHandler) GetLessonVideo(c *fiber.Ctx) error {
	video, err := h.find(c)
	if video == nil {
		return err
	}
	return response.Success(c, h.withURL(video))
}

// lessonExists returns the field error message for a missing lesson
func (h *LessonVideoHandler) lessonExists(id uint) (string, error) {
	var count int64
	if err := h.db.Model(&model.Lesson{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id), nil
	}
	return "", nil
}

// store saves the uploaded file under lesson/videos/ and returns its key
func (h *LessonVideoHandler) store(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	contentType, body, err := storage.DetectContentType(f)
	if err != nil {
		return "", err
	}

	key := storage.GenerateKey(storage.LessonVideoPrefix, fh.Filename)
	if err := h.files.Save(c.UserContext(), key, body, contentType); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Str("content_type", contentType).Int64("size", fh.Size).Msg("lesson video stored")
	return key, nil
}

// CreateLessonVideo handles POST /api/v1/lesson-videos (multipart/form-data)
func (h *LessonVideoHandler) CreateLessonVideo(c *fiber.Ctx) error {
	in, ok := h.parseInput(c)
	if !ok {
		return nil
	}

	req := LessonVideoRequest{}
	if in.Name != nil {
		req.Name = *in.Name
	}
	if in.LessonID != nil {
		req.LessonID = *in.LessonID
	}
	if in.file != nil {
		req.VideoFile = in.file.Filename
	}

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

	key, err := h.store(c, in.file)
	if err != nil {
		log.Error().Err(err).Msg("failed to store lesson video")
		return response.InternalServerError(c, "Failed to store video file")
	}

	video := model.LessonVideo{
		Name:      req.Name,
		LessonID:  req.LessonID,
		VideoFile: key,
	}

	if err := h.db.Create(&video).Error; err != nil {
		storage.RemoveAll(c.UserContext(), h.files, []string{key})
		log.Error().Err(err).Msg("failed to create lesson video")
		return response.InternalServerError(c, "Failed to create lesson video")
	}

	return response.Created(c, h.withURL(&video))
}

// UpdateLessonVideo handles PUT /api/v1/lesson-videos/:id. The stored file
// is kept when no new file is uploaded.
func (h *LessonVideoHandler) UpdateLessonVideo(c *fiber.Ctx) error {
	video, err := h.find(c)
	if video == nil {
		return err
	}

	in, ok := h.parseInput(c)
	if !ok {
		return nil
	}

	req := LessonVideoRequest{VideoFile: video.VideoFile}
	if in.Name != nil {
		req.Name = *in.Name
	}
	if in.LessonID != nil {
		req.LessonID = *in.LessonID
	}
	if in.file != nil {
		req.VideoFile = in.file.Filename
	}

	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.apply(c, video, &req.Name, &req.LessonID, in.file)
}

// PatchLessonVideo handles PATCH /api/v1/lesson-videos/:id
func (h *LessonVideoHandler) PatchLessonVideo(c *fiber.Ctx) error {
	video, err := h.find(c)
	if video == nil {
		return err
	}

	in, ok := h.parseInput(c)
	if !ok {
		return nil
	}

	req := PatchLessonVideoRequest{
		Name:      in.Name,
		LessonID:  in.LessonID,
		VideoFile: in.fileName(),
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	return h.apply(c, video, in.Name, in.LessonID, in.file)
}

func (h *LessonVideoHandler) apply(c *fiber.Ctx, video *model.LessonVideo, name *string, lessonID *uint, file *multipart.FileHeader) error {
	updates := map[string]interface{}{}

	if lessonID != nil {
		if *lessonID != video.LessonID {
			msg, err := h.lessonExists(*lessonID)
			if err != nil {
				return response.InternalServerError(c, "Failed to verify lesson")
			}
			if msg != "" {
				return response.FieldError(c, "lesson_id", msg)
			}
		}
		updates["lesson_id"] = *lessonID
	}
	if name != nil {
		updates["name"] = *name
	}

	oldKey := ""
	if file != nil {
		key, err := h.store(c, file)
		if err != nil {
			log.Error().Err(err).Msg("failed to store lesson video")
			return response.InternalServerError(c, "Failed to store video file")
		}
		oldKey = video.VideoFile
		updates["video_file"] = key
	}

	if len(updates) > 0 {
		if err := h.db.Model(&model.LessonVideo{ID: video.ID}).Updates(updates).Error; err != nil {
			if key, ok := updates["video_file"].(string); ok {
				storage.RemoveAll(c.UserContext(), h.files, []string{key})
			}
			return response.InternalServerError(c, "Failed to update lesson video")
		}
	}

	// Replaced files are removed only after the row points at the new one
	if oldKey != "" {
		storage.RemoveAll(c.UserContext(), h.files, []string{oldKey})
	}

	var updated model.LessonVideo
	if err := h.db.First(&updated, video.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch lesson video")
	}

	return response.SuccessWithMessage(c, "Lesson video updated successfully", h.withURL(&updated))
}

// DeleteLessonVideo handles DELETE /api/v1/lesson-videos/:id. The row goes
// first, the stored file is removed best-effort afterwards.
func (h *LessonVideoHandler) DeleteLessonVideo(c *fiber.Ctx) error {
	video, err := h.find(c)
	if video == nil {
		return err
	}

	if err := h.db.Delete(&model.LessonVideo{}, video.ID).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete lesson video")
	}

	storage.RemoveAll(c.UserContext(), h.files, []string{video.VideoFile})

	return response.Deleted(c, "Lesson video deleted successfully")
}
