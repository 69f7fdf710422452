package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

func teacherMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTeacher() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

const visitorTTL = 3 * time.Minute

type (
	// rateLimiter keeps one token bucket per authenticated account (per IP otherwise).
	rateLimiter struct {
		mu       sync.Mutex
		visitors map[string]*visitor
		limit    rate.Limit
		burst    int
		lastGC   time.Time
	}

	visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
)

// newRateLimiter returns a limiter allowing rps requests per second; rps <= 0 disables it.
func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		lastGC:   time.Now(),
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastGC) > visitorTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (rl *rateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if rl.limit <= 0 {
			return next(ctx)
		}
		key, err := contextAccountID(ctx)
		if err != nil {
			key = "ip:" + ctx.RealIP()
		}
		if !rl.allow(key) {
			return errTooManyRequests
		}
		return next(ctx)
	}
}
