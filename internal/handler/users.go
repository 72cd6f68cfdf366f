package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/models"
	"github.com/FabienDubin/storypillow/internal/service"
	"github.com/FabienDubin/storypillow/internal/session"
	"github.com/FabienDubin/storypillow/internal/token"
)

// UsersHandler implements the admin user-management endpoints. Every method
// re-checks admin through the verified resolver: the gate only proves the
// token signature, not that the account still exists with its role intact.
type UsersHandler struct {
	authService service.AuthService
	resolver    *session.Resolver
	log         *zap.Logger
}

func NewUsersHandler(authService service.AuthService, resolver *session.Resolver, log *zap.Logger) *UsersHandler {
	return &UsersHandler{authService: authService, resolver: resolver, log: log}
}

// requireAdmin resolves the verified session and enforces the admin role.
// It writes the response itself and returns nil when the caller must stop.
func (h *UsersHandler) requireAdmin(c *gin.Context) *token.Payload {
	payload, err := h.resolver.VerifiedSession(c.Request.Context(), c.Request)
	if err != nil {
		h.log.Error("session verification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return nil
	}
	if payload == nil || payload.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return nil
	}
	return payload
}

func (h *UsersHandler) List(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}

	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	c.JSON(http.StatusOK, gin.H{"users": public})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UsersHandler) Create(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Name == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, nom et mot de passe requis"})
		return
	}

	user, err := h.authService.CreateUser(c.Request.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cet email est déjà utilisé"})
			return
		}
		h.log.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user.Public()})
}

type updateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UsersHandler) Update(c *gin.Context) {
	if h.requireAdmin(c) == nil {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	user, err := h.authService.UpdateUser(c.Request.Context(), c.Param("id"), service.UserUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
			return
		}
		h.log.Error("failed to update user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.Public()})
}

func (h *UsersHandler) Delete(c *gin.Context) {
	admin := h.requireAdmin(c)
	if admin == nil {
		return
	}

	err := h.authService.DeleteUser(c.Request.Context(), admin.UserID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrSelfDelete) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Impossible de supprimer votre propre compte"})
			return
		}
		h.log.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne du serveur"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
