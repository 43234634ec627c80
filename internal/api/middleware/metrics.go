package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestObserver is satisfied by *metrics.Manager.
type RequestObserver interface {
	ObserveHTTPRequest(route, method string, status int, d time.Duration)
}

// Metrics records every request under its route template so each endpoint
// stays one series whatever ids are requested. It must run outside Logger,
// which settles the final status of failed requests. Requests that matched
// no route are reported as "unmatched".
func Metrics(observer RequestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "/" && r.Path != "" {
			route = r.Path
		}

		observer.ObserveHTTPRequest(route, c.Method(), c.Response().StatusCode(), time.Since(start))
		return err
	}
}
