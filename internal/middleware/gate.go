package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/session"
	"github.com/FabienDubin/storypillow/internal/token"
)

// PayloadKey is where the gate parks the decoded token payload in the gin
// context. Handlers may read it for cheap, low-stakes display purposes; any
// privileged action goes through the verified resolver instead.
const PayloadKey = "sessionPayload"

var publicPaths = []string{
	"/login",
	"/api/auth/login",
	"/assets/",
	"/healthz",
}

var staticSuffixes = []string{".ico", ".svg", ".png", ".jpg"}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, suffix := range staticSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func isAdminPath(path string) bool {
	return strings.HasPrefix(path, "/admin") || strings.HasPrefix(path, "/api/admin")
}

// Gate creates the first-line request filter. It runs ahead of every route
// and checks only signature and expiry: it has no store access, so a token
// for a deleted user or a pre-password-change token passes here and is caught
// by the verified resolver inside the handler. Gate-passed is not fully
// verified.
func Gate(codec *token.Codec, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if isPublic(path) {
			c.Next()
			return
		}

		tokenString := session.ReadCookie(c.Request)
		if tokenString == "" {
			rejectUnauthenticated(c)
			return
		}

		payload := codec.Verify(tokenString)
		if payload == nil {
			rejectUnauthenticated(c)
			return
		}

		if isAdminPath(path) && payload.Role != "admin" {
			logger.Debug("admin route denied",
				zap.String("path", path),
				zap.String("role", payload.Role),
			)
			if isAPI(path) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
			} else {
				c.Redirect(http.StatusFound, "/")
				c.Abort()
			}
			return
		}

		c.Set(PayloadKey, payload)
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context) {
	if isAPI(c.Request.URL.Path) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}
