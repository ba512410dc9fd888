package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clett-ai/clett/internal/response"
	"github.com/clett-ai/clett/internal/session"
)

// TokenVerifier validates a provider JWT and maps it to a session.
type TokenVerifier interface {
	Verify(token string) (*session.Session, error)
}

// AuthHandler bridges the subscription provider's JWT into a first-party
// session cookie and serves the small session-introspection endpoints.
type AuthHandler struct {
	Verifier     TokenVerifier
	Codec        *session.CookieCodec
	RedirectPath string
	DevMode      bool
	Logger       zerolog.Logger
}

// Bridge handles the first hop from the provider: a ?token= JWT is
// exchanged for the session cookie and the browser is redirected onward.
// Requests already carrying a session cookie pass straight through.
func (h *AuthHandler) Bridge(c echo.Context) error {
	if cookie, err := c.Cookie(h.Codec.Name); err == nil && cookie.Value != "" {
		return c.Redirect(http.StatusFound, h.RedirectPath)
	}

	token := c.QueryParam("token")
	if token == "" {
		return response.Unauthorized(c)
	}
	sess, err := h.Verifier.Verify(token)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("token bridge rejected")
		return response.Unauthorized(c)
	}

	cookie, err := h.Codec.NewCookie(sess)
	if err != nil {
		return response.InternalError(c, "could not issue session", err.Error())
	}
	c.SetCookie(cookie)
	return c.Redirect(http.StatusFound, h.RedirectPath)
}

// Whoami reports whether a session cookie is present and which tenant it
// belongs to.
func (h *AuthHandler) Whoami(c echo.Context) error {
	sess := session.FromContext(c)
	out := map[string]any{"hasCookie": sess != nil, "tid": nil}
	if sess != nil && sess.Tid != "" {
		out["tid"] = sess.Tid
	}
	return response.OK(c, out, "")
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.Codec.ClearCookie())
	return response.OK(c, map[string]any{"ok": true}, "")
}

// DevSetCookie issues a fixed dev session. Registered only outside
// production.
func (h *AuthHandler) DevSetCookie(c echo.Context) error {
	if !h.DevMode {
		return response.NotFound(c, "not found", "dev endpoints are disabled")
	}
	cookie, err := h.Codec.NewCookie(&session.Session{Tid: "dev-tenant", Uid: "dev"})
	if err != nil {
		return response.InternalError(c, "could not issue session", err.Error())
	}
	c.SetCookie(cookie)
	return response.OK(c, nil, "dev session set")
}
