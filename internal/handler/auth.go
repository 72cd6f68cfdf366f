package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/ratelimit"
	"github.com/FabienDubin/storypillow/internal/service"
	"github.com/FabienDubin/storypillow/internal/session"
)

type AuthHandler struct {
	authService service.AuthService
	limiter     *ratelimit.Limiter
	resolver    *session.Resolver
	secure      bool
	log         *zap.Logger
}

func NewAuthHandler(
	authService service.AuthService,
	limiter *ratelimit.Limiter,
	resolver *session.Resolver,
	secureCookie bool,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		limiter:     limiter,
		resolver:    resolver,
		secure:      secureCookie,
		log:         log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// clientAddr extracts the client address for rate limiting: first
// X-Forwarded-For value, then X-Real-IP, then a sentinel.
func clientAddr(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	return "unknown"
}

// Login handles POST /api/auth/login. The limiter is consulted before
// credentials are read and incremented only on authentication failure; the
// 401 body is identical for unknown email and wrong password.
func (h *AuthHandler) Login(c *gin.Context) {
	addr := clientAddr(c)

	allowed, retryAfter := h.limiter.Check(addr)
	if !allowed {
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      "Trop de tentatives, réessayez plus tard",
			"retryAfter": retryAfter,
		})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email et mot de passe requis"})
		return
	}

	user, tokenString, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.limiter.Increment(addr)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
			return
		}
		h.log.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return
	}

	session.SetCookie(c.Writer, tokenString, h.secure)
	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

// Logout clears the session cookie. The token itself stays valid until
// expiry; there is no server-side revocation list.
func (h *AuthHandler) Logout(c *gin.Context) {
	session.ClearCookie(c.Writer, h.secure)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me handles GET /api/auth/me. It uses the verified path so a revoked
// session (deleted user, rotated password) reads as logged out.
func (h *AuthHandler) Me(c *gin.Context) {
	payload, err := h.resolver.VerifiedSession(c.Request.Context(), c.Request)
	if err != nil {
		h.log.Error("session verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return
	}
	if payload == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}
	// The password-change marker is an internal revocation detail; it never
	// leaves the token.
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":    payload.UserID,
		"email": payload.Email,
		"name":  payload.Name,
		"role":  payload.Role,
	}})
}
