package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/viber-bot-go/internal/logger"
)

// basicAuthMiddleware guards a route with HTTP Basic Auth under realm.
// An empty password disables the check.
func basicAuthMiddleware(realm, username, password string, log *logger.Logger) gin.HandlerFunc {
	if password == "" {
		return func(c *gin.Context) { c.Next() }
	}
	challenge := `Basic realm="` + realm + `"`
	wantUser, wantPass := []byte(username), []byte(password)

	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if ok {
			// Evaluate both so timing does not reveal which one mismatched.
			userMatch := subtle.ConstantTimeCompare([]byte(user), wantUser)
			passMatch := subtle.ConstantTimeCompare([]byte(pass), wantPass)
			if userMatch&passMatch == 1 {
				c.Next()
				return
			}
		}

		log.WithField("realm", realm).
			WithField("client_ip", c.ClientIP()).
			WithField("has_credentials", ok).
			Debug("Basic auth rejected")
		c.Header("WWW-Authenticate", challenge)
		c.AbortWithStatus(http.StatusUnauthorized)
	}
}
