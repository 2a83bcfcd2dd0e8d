package httpserver

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// cookieMaxAge converts a remaining lifetime to a Max-Age value. A zero
// Max-Age would drop the attribute, so a lifetime under a second is kept
// at one second and an exhausted one deletes the cookie.
func cookieMaxAge(d time.Duration) int {
	if d <= 0 {
		return -1
	}
	if secs := int(d / time.Second); secs > 0 {
		return secs
	}
	return 1
}

func (s *HTTPServer) setRefreshCookie(w http.ResponseWriter, sess *services.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    sess.RefreshToken,
		Path:     "/",
		MaxAge:   cookieMaxAge(sess.MaxAge(s.now())),
		Expires:  sess.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshToken returns the cookie value or "" when absent.
func refreshToken(r *http.Request) string {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
