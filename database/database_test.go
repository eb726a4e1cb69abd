package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) *GORMStore {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store := NewGORMStore(db)
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })
	return store
}

func count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestHealthCheck(t *testing.T) {
	store := setupStore(t)
	assert.NoError(t, store.HealthCheck())
}

func TestIsUniqueViolation(t *testing.T) {
	db := setupStore(t).GetDB()

	require.NoError(t, db.Create(&model.User{Username: "jane", Email: "a@example.com", PasswordHash: "x"}).Error)
	err := db.Create(&model.User{Username: "jane", Email: "b@example.com", PasswordHash: "x"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))
}

func TestRunSeeds(t *testing.T) {
	auth.Cost = bcrypt.MinCost
	t.Cleanup(func() { auth.Cost = auth.DefaultCost })

	db := setupStore(t).GetDB()

	// Nothing happens without credentials
	require.NoError(t, RunSeeds(db, SeedConfig{}))
	assert.Equal(t, int64(0), count(t, db, &model.User{}))

	cfg := SeedConfig{Username: "demo", Email: "demo@example.com", Password: "demo-password"}
	require.NoError(t, RunSeeds(db, cfg))
	assert.Equal(t, int64(1), count(t, db, &model.User{}))
	assert.Equal(t, int64(3), count(t, db, &model.Course{}))
	assert.Equal(t, int64(2), count(t, db, &model.Teacher{}))
	assert.Equal(t, int64(2), count(t, db, &model.CourseGroup{}))
	assert.Equal(t, int64(6), count(t, db, &model.Lesson{}))

	// Seeding twice changes nothing
	require.NoError(t, RunSeeds(db, cfg))
	assert.Equal(t, int64(1), count(t, db, &model.User{}))
	assert.Equal(t, int64(3), count(t, db, &model.Course{}))
	assert.Equal(t, int64(6), count(t, db, &model.Lesson{}))

	var user model.User
	require.NoError(t, db.Where("username = ?", "demo").First(&user).Error)
	assert.NoError(t, auth.VerifyPassword(user.PasswordHash, "demo-password"))
}

// fixture builds an account with a course, a group with one lesson, a video,
// a comment, student and teacher profiles and a revoked token
type fixture struct {
	user    model.User
	group   model.CourseGroup
	lesson  model.Lesson
	student model.Student
}

func buildFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	f := fixture{user: model.User{Username: "jane", Email: "jane@example.com", PasswordHash: "x"}}
	require.NoError(t, db.Create(&f.user).Error)
	require.NoError(t, db.Create(&model.Course{Title: "Intro", Description: "Basics", AuthorID: f.user.ID}).Error)

	f.group = model.CourseGroup{Name: "G1"}
	require.NoError(t, db.Create(&f.group).Error)
	f.lesson = model.Lesson{CourseGroupID: f.group.ID, Title: "L1"}
	require.NoError(t, db.Create(&f.lesson).Error)
	require.NoError(t, db.Create(&model.LessonVideo{Name: "V1", LessonID: f.lesson.ID, VideoFile: "lesson/videos/a_v1.mp4"}).Error)
	require.NoError(t, db.Create(&model.Comment{LessonID: f.lesson.ID, AuthorID: f.user.ID, Content: "Nice"}).Error)

	f.student = model.Student{UserID: f.user.ID, IsStudying: true, Groups: []model.CourseGroup{f.group}}
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&model.Teacher{UserID: &f.user.ID, Name: "Jane", Email: "jane@example.com", IsWorking: true}).Error)
	require.NoError(t, db.Create(&model.JWTTokenBlacklist{Token: uuid.NewString(), UserID: f.user.ID, ExpiresAt: time.Now().Add(time.Hour)}).Error)
	return f
}

func TestDeleteCourseGroup(t *testing.T) {
	db := setupStore(t).GetDB()
	f := buildFixture(t, db)

	var keys []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = DeleteCourseGroup(tx, &f.group)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"lesson/videos/a_v1.mp4"}, keys)
	assert.Equal(t, int64(0), count(t, db, &model.CourseGroup{}))
	assert.Equal(t, int64(0), count(t, db, &model.Lesson{}))
	assert.Equal(t, int64(0), count(t, db, &model.LessonVideo{}))
	assert.Equal(t, int64(0), count(t, db, &model.Comment{}))
	assert.Equal(t, int64(1), count(t, db, &model.Student{}))

	var memberships int64
	require.NoError(t, db.Table("student_groups").Count(&memberships).Error)
	assert.Equal(t, int64(0), memberships)
}

func TestDeleteLessons_Empty(t *testing.T) {
	db := setupStore(t).GetDB()

	keys, err := DeleteLessons(db, nil)
	require.NoError(t, err)
	assert.Nil(t, keys)
}

func TestDeleteUser(t *testing.T) {
	db := setupStore(t).GetDB()
	f := buildFixture(t, db)

	mail := model.EmailLog{Backend: "memory", Subject: "New course created", Status: model.EmailStatusSent,
		RecipientUsers: []model.EmailLogRecipient{{UserID: f.user.ID}}}
	require.NoError(t, db.Create(&mail).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return DeleteUser(tx, &f.user)
	}))

	assert.Equal(t, int64(0), count(t, db, &model.User{}))
	assert.Equal(t, int64(0), count(t, db, &model.Course{}))
	assert.Equal(t, int64(0), count(t, db, &model.Comment{}))
	assert.Equal(t, int64(0), count(t, db, &model.Student{}))
	assert.Equal(t, int64(0), count(t, db, &model.Teacher{}))
	assert.Equal(t, int64(0), count(t, db, &model.JWTTokenBlacklist{}))
	assert.Equal(t, int64(0), count(t, db, &model.EmailLogRecipient{}))

	// The log row itself stays as an audit record
	assert.Equal(t, int64(1), count(t, db, &model.EmailLog{}))

	// Group content is not owned by the account
	assert.Equal(t, int64(1), count(t, db, &model.CourseGroup{}))
	assert.Equal(t, int64(1), count(t, db, &model.Lesson{}))
	assert.Equal(t, int64(1), count(t, db, &model.LessonVideo{}))
}
