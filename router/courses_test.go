package router_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/services"
	"github.com/sahilchouksey/dars-api/utils/middleware"
	"github.com/sahilchouksey/dars-api/utils/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	env := setupTestEnv(t)

	for _, path := range []string{"/ping", "/api/v1/ping"} {
		res := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, res.status, path)
	}
}

func TestCourseLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	jane := env.register(t, "jane")

	// Create
	id := env.create(t, "/api/v1/courses", jane.AccessToken, map[string]string{
		"title":       "Intro",
		"description": "Basics",
	})

	sent := env.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"jane@example.com"}, sent[0].To)
	assert.Equal(t, services.SubjectCourseCreated, sent[0].Subject)
	assert.Equal(t, "noreply@dars.uz", sent[0].From)

	// List
	res := env.do(t, http.MethodGet, "/api/v1/courses", jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	require.NotNil(t, res.body.Pagination)
	assert.Equal(t, int64(1), res.body.Pagination.Total)

	var courses []model.Course
	res.data(t, &courses)
	require.Len(t, courses, 1)
	assert.Equal(t, "Intro", courses[0].Title)
	assert.Equal(t, jane.User.ID, courses[0].AuthorID)

	// Duplicate title
	res = env.do(t, http.MethodPost, "/api/v1/courses", jane.AccessToken, map[string]string{
		"title":       "Intro",
		"description": "Again",
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body.Error.Fields, "title")
	assert.Equal(t, int64(1), env.count(t, &model.Course{}))

	// Partial update keeps the description
	res = env.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/courses/%d", id), jane.AccessToken, map[string]string{"title": "Intro to Go"})
	require.Equal(t, http.StatusOK, res.status)
	var patched model.Course
	res.data(t, &patched)
	assert.Equal(t, "Intro to Go", patched.Title)
	assert.Equal(t, "Basics", patched.Description)

	// Full update requires every field
	res = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/courses/%d", id), jane.AccessToken, map[string]string{"title": "Only title"})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body.Error.Fields, "description")

	// Send update notifies the caller and leaves the course untouched
	res = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/send-update", id), jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	sent = env.mail.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, services.SubjectCourseUpdated, sent[1].Subject)
	assert.Equal(t, "Course 'Intro to Go' has been updated.", sent[1].Body)

	// Delete
	res = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/courses/%d", id), jane.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, "Course deleted successfully", res.header.Get(response.MessageHeader))

	res = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d", id), jane.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestCourseSearchAndOrdering(t *testing.T) {
	env := setupTestEnv(t)
	jane := env.register(t, "jane")

	for _, title := range []string{"Beta", "Alpha", "Gamma"} {
		env.create(t, "/api/v1/courses", jane.AccessToken, map[string]string{"title": title, "description": title + " course"})
	}

	res := env.do(t, http.MethodGet, "/api/v1/courses?ordering=-title", jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	var courses []model.Course
	res.data(t, &courses)
	require.Len(t, courses, 3)
	assert.Equal(t, "Gamma", courses[0].Title)
	assert.Equal(t, "Alpha", courses[2].Title)

	res = env.do(t, http.MethodGet, "/api/v1/courses?search=ALPH", jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, int64(1), res.body.Pagination.Total)

	res = env.do(t, http.MethodGet, "/api/v1/courses?author_id=abc", jane.AccessToken, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Contains(t, res.body.Error.Fields, "author_id")
}

// rowCounts snapshots the size of every resource table
func rowCounts(t *testing.T, env *testEnv) map[string]int64 {
	t.Helper()
	return map[string]int64{
		"users":         env.count(t, &model.User{}),
		"courses":       env.count(t, &model.Course{}),
		"groups":        env.count(t, &model.CourseGroup{}),
		"teachers":      env.count(t, &model.Teacher{}),
		"students":      env.count(t, &model.Student{}),
		"lessons":       env.count(t, &model.Lesson{}),
		"lesson-videos": env.count(t, &model.LessonVideo{}),
		"comments":      env.count(t, &model.Comment{}),
	}
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	env := setupTestEnv(t)
	jane := env.register(t, "jane")
	bob := env.register(t, "bob")

	courseID := env.create(t, "/api/v1/courses", jane.AccessToken, map[string]string{"title": "Intro", "description": "Basics"})
	groupID, lessonID := lessonFixture(t, env, jane.AccessToken)
	teacherID := env.create(t, "/api/v1/teachers", jane.AccessToken, map[string]interface{}{"name": "Aziz", "email": "aziz@example.com"})
	studentID := env.create(t, "/api/v1/students", jane.AccessToken, map[string]interface{}{"user_id": bob.User.ID, "group_ids": []uint{groupID}})
	commentID := env.create(t, "/api/v1/comments", jane.AccessToken, map[string]interface{}{"lesson_id": lessonID, "content": "Nice"})

	res := env.upload(t, http.MethodPost, "/api/v1/lesson-videos", jane.AccessToken,
		map[string]string{"name": "Intro", "lesson_id": fmt.Sprint(lessonID)}, "intro.mp4", mp4Bytes())
	require.Equal(t, http.StatusCreated, res.status)
	var video idOnly
	res.data(t, &video)

	before := rowCounts(t, env)
	sentBefore := len(env.mail.Sent())

	resources := []struct {
		path string
		id   uint
		body map[string]interface{}
	}{
		{"/api/v1/courses", courseID, map[string]interface{}{"title": "Hijacked", "description": "x"}},
		{"/api/v1/groups", groupID, map[string]interface{}{"name": "Hijacked"}},
		{"/api/v1/teachers", teacherID, map[string]interface{}{"name": "Hijacked", "email": "h@example.com", "experience": 3}},
		{"/api/v1/students", studentID, map[string]interface{}{"user_id": jane.User.ID, "is_studying": true}},
		{"/api/v1/lessons", lessonID, map[string]interface{}{"course_group_id": groupID, "title": "Hijacked", "likes": 9}},
		{"/api/v1/lesson-videos", video.ID, map[string]interface{}{"name": "Hijacked", "lesson_id": lessonID}},
		{"/api/v1/comments", commentID, map[string]interface{}{"lesson_id": lessonID, "content": "Hijacked"}},
	}

	for _, token := range []string{"", "garbage", jane.RefreshToken} {
		for _, r := range resources {
			item := fmt.Sprintf("%s/%d", r.path, r.id)
			for _, req := range []struct{ method, path string }{
				{http.MethodGet, r.path},
				{http.MethodPost, r.path},
				{http.MethodGet, item},
				{http.MethodPut, item},
				{http.MethodPatch, item},
				{http.MethodDelete, item},
			} {
				res := env.do(t, req.method, req.path, token, r.body)
				require.Equal(t, http.StatusUnauthorized, res.status, "%s %s", req.method, req.path)
				assert.Equal(t, middleware.UnauthenticatedMessage, res.body.Error.Message)
			}
		}

		res := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/send-update", courseID), token, nil)
		assert.Equal(t, http.StatusUnauthorized, res.status)
		res = env.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]string{"email": "h@example.com"})
		assert.Equal(t, http.StatusUnauthorized, res.status)
		res = env.do(t, http.MethodDelete, "/api/v1/profile", token, nil)
		assert.Equal(t, http.StatusUnauthorized, res.status)
		res = env.do(t, http.MethodGet, "/api/v1/notifications", token, nil)
		assert.Equal(t, http.StatusUnauthorized, res.status)
	}

	assert.Equal(t, before, rowCounts(t, env))
	assert.Len(t, env.mail.Sent(), sentBefore)

	var course model.Course
	require.NoError(t, env.db.First(&course, courseID).Error)
	assert.Equal(t, "Intro", course.Title)
	var lesson model.Lesson
	require.NoError(t, env.db.First(&lesson, lessonID).Error)
	assert.Equal(t, "Variables", lesson.Title)
	assert.Equal(t, 0, lesson.Likes)
	var user model.User
	require.NoError(t, env.db.First(&user, jane.User.ID).Error)
	assert.Equal(t, "jane@example.com", user.Email)
}

func TestCourseNotificationFailureKeepsCourse(t *testing.T) {
	env := setupTestEnv(t)
	jane := env.register(t, "jane")

	env.mail.SetErr(errors.New("relay down"))

	res := env.do(t, http.MethodPost, "/api/v1/courses", jane.AccessToken, map[string]string{"title": "Intro", "description": "Basics"})
	require.Equal(t, http.StatusBadGateway, res.status)
	assert.Equal(t, "NOTIFICATION_FAILED", res.body.Error.Code)
	assert.Equal(t, int64(1), env.count(t, &model.Course{}))

	var course model.Course
	require.NoError(t, env.db.First(&course).Error)
	res = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/send-update", course.ID), jane.AccessToken, nil)
	assert.Equal(t, http.StatusBadGateway, res.status)
}

func TestNotificationsListEmailsSentToCaller(t *testing.T) {
	env := setupTestEnv(t)
	jane := env.register(t, "jane")
	bob := env.register(t, "bob")

	courseID := env.create(t, "/api/v1/courses", jane.AccessToken, map[string]string{"title": "Intro", "description": "Basics"})
	env.create(t, "/api/v1/courses", bob.AccessToken, map[string]string{"title": "Other", "description": "Basics"})

	env.mail.SetErr(errors.New("relay down"))
	res := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/send-update", courseID), jane.AccessToken, nil)
	require.Equal(t, http.StatusBadGateway, res.status)

	res = env.do(t, http.MethodGet, "/api/v1/notifications", jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, int64(2), res.body.Pagination.Total)

	var logs []model.EmailLog
	res.data(t, &logs)
	require.Len(t, logs, 2)
	assert.Equal(t, model.EmailStatusFailed, logs[0].Status)
	assert.Equal(t, services.SubjectCourseUpdated, logs[0].Subject)
	assert.Equal(t, model.EmailStatusSent, logs[1].Status)

	res = env.do(t, http.MethodGet, "/api/v1/notifications?status=sent", jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, int64(1), res.body.Pagination.Total)

	// Bob cannot read Jane's mail
	res = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notifications/%d", logs[0].ID), bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notifications/%d", logs[0].ID), jane.AccessToken, nil)
	assert.Equal(t, http.StatusOK, res.status)
}

func TestNotificationsIgnoreBorrowedAddresses(t *testing.T) {
	env := setupTestEnv(t)
	jane := env.register(t, "jane")
	env.create(t, "/api/v1/courses", jane.AccessToken, map[string]string{"title": "Secret plan", "description": "Private"})

	var entry model.EmailLog
	require.NoError(t, env.db.First(&entry).Error)

	// Same address as jane, and an address where "_" would act as a LIKE wildcard
	intruders := map[string]string{"mallory": "jane@example.com", "trudy": "j_ne@example.com"}
	for username, email := range intruders {
		res := env.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{
			"username": username,
			"email":    email,
			"password": "secret-password",
		})
		require.Equal(t, http.StatusCreated, res.status, "%+v", res.body.Error)
		var tokens authTokens
		res.data(t, &tokens)

		res = env.do(t, http.MethodGet, "/api/v1/notifications", tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, int64(0), res.body.Pagination.Total, username)

		res = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/notifications/%d", entry.ID), tokens.AccessToken, nil)
		assert.Equal(t, http.StatusNotFound, res.status, username)
	}

	// Changing the profile address does not hand over past mail either
	bob := env.register(t, "bob")
	res := env.do(t, http.MethodPatch, "/api/v1/profile", bob.AccessToken, map[string]string{"email": "jane@example.com"})
	require.Equal(t, http.StatusOK, res.status)
	res = env.do(t, http.MethodGet, "/api/v1/notifications", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, int64(0), res.body.Pagination.Total)

	res = env.do(t, http.MethodGet, "/api/v1/notifications", jane.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, int64(1), res.body.Pagination.Total)
}
