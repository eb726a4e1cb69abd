package router

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/config"
	"github.com/sahilchouksey/dars-api/database"
	"github.com/sahilchouksey/dars-api/handlers"
	auth_handlers "github.com/sahilchouksey/dars-api/handlers/auth"
	comment_handlers "github.com/sahilchouksey/dars-api/handlers/comment"
	course_handlers "github.com/sahilchouksey/dars-api/handlers/course"
	coursegroup_handlers "github.com/sahilchouksey/dars-api/handlers/coursegroup"
	lesson_handlers "github.com/sahilchouksey/dars-api/handlers/lesson"
	lessonvideo_handlers "github.com/sahilchouksey/dars-api/handlers/lessonvideo"
	notification_handlers "github.com/sahilchouksey/dars-api/handlers/notification"
	student_handlers "github.com/sahilchouksey/dars-api/handlers/student"
	teacher_handlers "github.com/sahilchouksey/dars-api/handlers/teacher"
	"github.com/sahilchouksey/dars-api/services"
	"github.com/sahilchouksey/dars-api/services/mailer"
	"github.com/sahilchouksey/dars-api/services/storage"
	"github.com/sahilchouksey/dars-api/utils"
	"github.com/sahilchouksey/dars-api/utils/auth"
	"github.com/sahilchouksey/dars-api/utils/cache"
	"github.com/sahilchouksey/dars-api/utils/middleware"
)

// Dependencies are the collaborators the routes are wired to
type Dependencies struct {
	Config *config.EnviornmentVariable
	Mailer mailer.Mailer
	Files  storage.FileStorage
	// Redis is optional; without it login brute force protection is off
	Redis *cache.RedisCache
	// Security is applied before any route when non-nil
	Security *middleware.SecurityConfig
}

// ErrMissingJWTSecret is returned when JWT_SECRET is not configured
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is not set")

func SetupRoutes(app *fiber.App, store database.Storage, deps Dependencies) error {
	cfg := deps.Config
	if cfg == nil || cfg.JWT_SECRET == "" {
		return ErrMissingJWTSecret
	}

	// Initialize JWT manager with config
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        cfg.JWT_SECRET,
		Expiry:        cfg.JWT_ACCESS_TTL,
		RefreshExpiry: cfg.JWT_REFRESH_TTL,
		Issuer:        cfg.JWT_ISSUER,
	})

	db := store.GetDB()

	// Initialize brute force protection
	var bruteForceProtection *middleware.BruteForceProtection
	if deps.Redis != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Redis)
	} else {
		log.Warn().Msg("Redis not configured, brute force protection is disabled")
	}

	// Initialize auth middleware with DB for blacklist checking
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	notificationService := services.NewNotificationService(deps.Mailer)

	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(db, notificationService)
	groupHandler := coursegroup_handlers.NewCourseGroupHandler(db, deps.Files)
	teacherHandler := teacher_handlers.NewTeacherHandler(db, notificationService)
	studentHandler := student_handlers.NewStudentHandler(db)
	lessonHandler := lesson_handlers.NewLessonHandler(db, deps.Files)
	videoHandler := lessonvideo_handlers.NewLessonVideoHandler(db, deps.Files)
	commentHandler := comment_handlers.NewCommentHandler(db)
	notificationHandler := notification_handlers.NewNotificationHandler(db)

	// Apply security middleware
	if deps.Security != nil {
		middleware.SetupSecurity(app, *deps.Security)
	}

	// Health check endpoint (public)
	health := utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store)
	app.Get("/ping", health)

	// Uploaded media served from disk when stored locally
	if local, ok := deps.Files.(*storage.LocalStorage); ok && cfg.MEDIA_URL != "" {
		app.Static(cfg.MEDIA_URL, local.Root(), fiber.Static{
			ByteRange:     true,
			CacheDuration: 10 * time.Second,
		})
	}

	// API v1 group
	api := app.Group("/api/v1")
	api.Get("/ping", health)

	// Registration (public)
	api.Post("/register", authHandler.Register)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Patch("/", authHandler.UpdateProfile)
	profileGroup.Delete("/", authHandler.DeleteProfile)

	// Every resource below requires a valid access token
	courses := api.Group("/courses", authMiddleware.Required())
	courses.Get("/", courseHandler.ListCourses)
	courses.Post("/", courseHandler.CreateCourse)
	courses.Get("/:id", courseHandler.GetCourse)
	courses.Put("/:id", courseHandler.UpdateCourse)
	courses.Patch("/:id", courseHandler.PatchCourse)
	courses.Delete("/:id", courseHandler.DeleteCourse)
	courses.Post("/:id/send-update", courseHandler.SendUpdate)

	groups := api.Group("/groups", authMiddleware.Required())
	groups.Get("/", groupHandler.ListGroups)
	groups.Post("/", groupHandler.CreateGroup)
	groups.Get("/:id", groupHandler.GetGroup)
	groups.Put("/:id", groupHandler.UpdateGroup)
	groups.Patch("/:id", groupHandler.PatchGroup)
	groups.Delete("/:id", groupHandler.DeleteGroup)

	teachers := api.Group("/teachers", authMiddleware.Required())
	teachers.Get("/", teacherHandler.ListTeachers)
	teachers.Post("/", teacherHandler.CreateTeacher)
	teachers.Get("/:id", teacherHandler.GetTeacher)
	teachers.Put("/:id", teacherHandler.UpdateTeacher)
	teachers.Patch("/:id", teacherHandler.PatchTeacher)
	teachers.Delete("/:id", teacherHandler.DeleteTeacher)

	students := api.Group("/students", authMiddleware.Required())
	students.Get("/", studentHandler.ListStudents)
	students.Post("/", studentHandler.CreateStudent)
	students.Get("/:id", studentHandler.GetStudent)
	students.Put("/:id", studentHandler.UpdateStudent)
	students.Patch("/:id", studentHandler.PatchStudent)
	students.Delete("/:id", studentHandler.DeleteStudent)

	lessons := api.Group("/lessons", authMiddleware.Required())
	lessons.Get("/", lessonHandler.ListLessons)
	lessons.Post("/", lessonHandler.CreateLesson)
	lessons.Get("/:id", lessonHandler.GetLesson)
	lessons.Put("/:id", lessonHandler.UpdateLesson)
	lessons.Patch("/:id", lessonHandler.PatchLesson)
	lessons.Delete("/:id", lessonHandler.DeleteLesson)

	videos := api.Group("/lesson-videos", authMiddleware.Required())
	videos.Get("/", videoHandler.ListLessonVideos)
	videos.Post("/", videoHandler.CreateLessonVideo)
	videos.Get("/:id", videoHandler.GetLessonVideo)
	videos.Put("/:id", videoHandler.UpdateLessonVideo)
	videos.Patch("/:id", videoHandler.PatchLessonVideo)
	videos.Delete("/:id", videoHandler.DeleteLessonVideo)

	comments := api.Group("/comments", authMiddleware.Required())
	comments.Get("/", commentHandler.ListComments)
	comments.Post("/", commentHandler.CreateComment)
	comments.Get("/:id", commentHandler.GetComment)
	comments.Put("/:id", commentHandler.UpdateComment)
	comments.Patch("/:id", commentHandler.PatchComment)
	comments.Delete("/:id", commentHandler.DeleteComment)

	// Emails sent to the caller, read from the email log
	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/:id", notificationHandler.GetNotification)

	log.Info().
		Str("mail_backend", deps.Mailer.Backend()).
		Str("media_url", strings.TrimSuffix(cfg.MEDIA_URL, "/")).
		Msg("routes registered")

	return nil
}
