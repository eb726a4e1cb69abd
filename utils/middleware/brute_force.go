package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/utils/cache"
	"github.com/sahilchouksey/dars-api/utils/response"
)

// BruteForceProtection handles brute force protection using Redis.
// A nil cache disables it.
type BruteForceProtection struct {
	redisCache *cache.RedisCache
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(redisCache *cache.RedisCache) *BruteForceProtection {
	return &BruteForceProtection{
		redisCache: redisCache,
	}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// CheckAndRecordAttempt middleware checks if IP is locked out
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b == nil || b.redisCache == nil {
			return c.Next()
		}

		key := lockKey(c.IP())

		// Check if IP is locked
		locked, err := b.redisCache.Exists(c.UserContext(), key)
		if err != nil {
			// Redis being down must not lock out legitimate users
			log.Warn().Err(err).Msg("brute force check skipped")
			return c.Next()
		}

		if locked {
			// Get TTL for retry time
			ttl, _ := b.redisCache.TTL(c.UserContext(), key)
			retryAfter := int(ttl.Seconds())
			if retryAfter < 0 {
				retryAfter = 60
			}

			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", retryAfter))
			return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
		}

		return c.Next()
	}
}

// LockoutDuration returns the lockout applied after the given number of
// failed attempts within the counting window
func LockoutDuration(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// RecordFailedAttempt records a failed login attempt and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx, username string) {
	if b == nil || b.redisCache == nil {
		return
	}

	ctx := c.UserContext()
	ip := c.IP()

	// Increment attempt counter
	attempts, err := b.redisCache.Increment(ctx, attemptKey(ip))
	if err != nil {
		log.Warn().Err(err).Msg("failed to record login attempt")
		return
	}

	// 15 minute counting window
	if attempts == 1 {
		_ = b.redisCache.Expire(ctx, attemptKey(ip), 15*time.Minute)
	}

	lockDuration := LockoutDuration(attempts)
	if lockDuration == 0 {
		return
	}

	log.Warn().
		Str("ip", ip).
		Str("username", strings.ToLower(username)).
		Int64("attempts", attempts).
		Dur("lockout", lockDuration).
		Msg("login locked out")

	if err := b.redisCache.Set(ctx, lockKey(ip), "locked", lockDuration); err != nil {
		log.Warn().Err(err).Msg("failed to apply login lockout")
	}
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx) {
	if b == nil || b.redisCache == nil {
		return
	}

	ip := c.IP()
	if err := b.redisCache.Delete(c.UserContext(), attemptKey(ip), lockKey(ip)); err != nil {
		log.Warn().Err(err).Msg("failed to clear login attempts")
	}
}
