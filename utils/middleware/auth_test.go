package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/dars-api/model"
	"github.com/sahilchouksey/dars-api/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthApp(t *testing.T) (*fiber.App, *gorm.DB, *auth.JWTManager) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.JWTTokenBlacklist{}))

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret:        "test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "dars-test",
	})

	app := fiber.New()
	app.Get("/me", NewAuthMiddleware(jwtManager, db).Required(), func(c *fiber.Ctx) error {
		user, ok := GetUser(c)
		if _, hasClaims := GetClaims(c); !ok || !hasClaims {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(user.Username)
	})
	return app, db, jwtManager
}

func getMe(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddleware_AcceptsValidAccessToken(t *testing.T) {
	app, db, jwtManager := setupAuthApp(t)

	user := model.User{Username: "jane", Email: "jane@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	pair, err := jwtManager.GenerateTokenPair(user.ID, user.Username, user.TokenVersion)
	require.NoError(t, err)

	// The blacklist lookup and user load run on the request context and
	// must succeed under app.Test as they do behind a listener
	assert.Equal(t, fiber.StatusOK, getMe(t, app, pair.AccessToken))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	app, db, jwtManager := setupAuthApp(t)

	user := model.User{Username: "jane", Email: "jane@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	pair, err := jwtManager.GenerateTokenPair(user.ID, user.Username, user.TokenVersion)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, getMe(t, app, ""))
	assert.Equal(t, fiber.StatusUnauthorized, getMe(t, app, "not-a-token"))
	assert.Equal(t, fiber.StatusUnauthorized, getMe(t, app, pair.RefreshToken))

	claims, err := jwtManager.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	blacklist := auth.NewBlacklistService(db)
	require.NoError(t, blacklist.RevokeToken(context.Background(), claims.ID, user.ID, auth.TokenExpiry(claims), auth.RevokeReasonLogout))
	assert.Equal(t, fiber.StatusUnauthorized, getMe(t, app, pair.AccessToken))
}

func TestAuthMiddleware_StaleTokenVersion(t *testing.T) {
	app, db, jwtManager := setupAuthApp(t)

	user := model.User{Username: "jane", Email: "jane@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	pair, err := jwtManager.GenerateTokenPair(user.ID, user.Username, user.TokenVersion)
	require.NoError(t, err)

	require.NoError(t, db.Model(&user).Update("token_version", 1).Error)
	assert.Equal(t, fiber.StatusUnauthorized, getMe(t, app, pair.AccessToken))
}
