package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// rateLimit enforces the fixed per-client window. Every reply, allowed
// or not, carries the X-RateLimit headers; rejections add Retry-After.
func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		res := s.res.Limiter.Allow(c.RealIP(), s.settings.RateLimit, s.settings.RateWindow)

		h := c.Response().Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(s.settings.RateLimit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(time.Until(res.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		}
		return next(c)
	}
}
