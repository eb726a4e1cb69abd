package notification

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	queryHelper "github.com/sahilchouksey/dars-api/utils/query"
	"github.com/sahilchouksey/dars-api/utils/response"
	"gorm.io/gorm"
)

var listSpec = queryHelper.ListSpec{
	SearchFields: []string{"subject"},
	OrderingFields: map[string]string{
		"created_at": "created_at",
		"id":         "id",
	},
	Filters: map[string]queryHelper.Filter{
		"status":  {Expr: "status", Kind: queryHelper.FilterString},
		"backend": {Expr: "backend", Kind: queryHelper.FilterString},
	},
	DefaultOrder: "id DESC",
}

// NotificationHandler exposes the emails sent to the authenticated user
type NotificationHandler struct {
	db *gorm.DB
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// addressedTo scopes the email log to messages sent to the given account.
// Addresses are neither unique nor verified, so ownership goes by user id.
func (h *NotificationHandler) addressedTo(userID uint) *gorm.DB {
	linked := h.db.Model(&model.EmailLogRecipient{}).Select("email_log_id").Where("user_id = ?", userID)
	return h.db.Where("id IN (?)", linked)
}

// GetNotifications handles GET /api/v1/notifications
// Returns the emails sent to the authenticated user, newest first
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	opts := queryHelper.ParseListOptions(c)

	logs := []model.EmailLog{}
	pagination, err := queryHelper.List(h.addressedTo(user.ID), listSpec, opts, &logs)
	if err != nil {
		return queryHelper.RespondListError(c, err, "notifications")
	}

	return response.Paginated(c, logs, pagination)
}

// GetNotification handles GET /api/v1/notifications/:id
func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, middleware.UnauthenticatedMessage)
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.NotFound(c, "Notification not found")
	}

	var entry model.EmailLog
	if err := h.addressedTo(user.ID).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to fetch notification")
	}

	return response.Success(c, entry)
}
