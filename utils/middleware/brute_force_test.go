package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutDuration(t *testing.T) {
	tests := []struct {
		attempts int64
		want     time.Duration
	}{
		{0, 0},
		{4, 0},
		{5, 2 * time.Minute},
		{9, 2 * time.Minute},
		{10, time.Hour},
		{24, time.Hour},
		{25, 24 * time.Hour},
		{100, 24 * time.Hour},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LockoutDuration(tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestBruteForceProtection_DisabledWithoutRedis(t *testing.T) {
	for name, bfp := range map[string]*BruteForceProtection{
		"nil receiver": nil,
		"nil cache":    NewBruteForceProtection(nil),
	} {
		t.Run(name, func(t *testing.T) {
			app := fiber.New()
			app.Post("/login", bfp.CheckAndRecordAttempt(), func(c *fiber.Ctx) error {
				bfp.RecordFailedAttempt(c, "jane")
				bfp.RecordSuccessfulAttempt(c)
				return c.SendStatus(fiber.StatusNoContent)
			})

			resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		})
	}
}
