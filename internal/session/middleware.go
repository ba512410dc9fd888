package session

import (
	"github.com/labstack/echo/v4"
)

const contextKey = "clett.session"

// Middleware resolves the session cookie into the request context. An
// absent or undecodable cookie leaves no session; handlers that require one
// respond 401 themselves, so public routes stay reachable.
func Middleware(codec *CookieCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(codec.Name)
			if err == nil && cookie.Value != "" {
				if s, err := codec.Decode(cookie.Value); err == nil {
					Set(c, s)
				}
			}
			return next(c)
		}
	}
}

// Set stores a resolved session in the request context.
func Set(c echo.Context, s *Session) {
	c.Set(contextKey, s)
}

// FromContext returns the resolved session, or nil when the request carried
// no valid cookie.
func FromContext(c echo.Context) *Session {
	s, _ := c.Get(contextKey).(*Session)
	return s
}
