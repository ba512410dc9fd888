package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Session is the tenant-scoped identity carried by the session cookie,
// bridged from the subscription provider's JWT on first hop.
type Session struct {
	Tid   string `json:"tid"`
	Uid   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// CookieCodec writes and reads the session cookie. The cookie is shared
// across subdomains (Domain from config), so SameSite must stay None and
// Secure on.
type CookieCodec struct {
	Name   string
	Domain string
	MaxAge time.Duration
}

// NewCookie encodes s into a session cookie.
func (c *CookieCodec) NewCookie(s *Session) (*http.Cookie, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return &http.Cookie{
		Name:     c.Name,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}, nil
}

// ClearCookie returns a cookie that expires the session immediately.
func (c *CookieCodec) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// Decode parses a cookie value back into a Session. A missing or mangled
// cookie decodes to an error, never a partial session.
func (c *CookieCodec) Decode(value string) (*Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode session cookie: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session cookie: %w", err)
	}
	return &s, nil
}
