package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	guestOnlyPages = []string{"/login", "/register"}
	memberPages    = []string{"/profile", "/contribute"}
	staffPages     = []string{"/admin"}
)

// PageGate redirects page navigation according to the visitor's session.
// Signed-in users skip the login and register pages, anonymous visitors are
// sent to login for member pages, and non-staff never see admin pages.
func PageGate(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		claims := CurrentUser(c, validator, cookieName)

		switch {
		case hasAnyPrefix(path, guestOnlyPages) && claims != nil:
			redirect(c, "/")
		case hasAnyPrefix(path, memberPages) && claims == nil:
			redirect(c, loginRedirect(path))
		case hasAnyPrefix(path, staffPages):
			if claims == nil {
				redirect(c, loginRedirect(path))
				return
			}
			if !claims.Role.IsStaff() {
				redirect(c, "/")
				return
			}
			c.Next()
		default:
			c.Next()
		}
	}
}

func loginRedirect(path string) string {
	return "/login?redirect=" + url.QueryEscape(path)
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
	c.Abort()
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
