package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/FabienDubin/storypillow/internal/config"
	"github.com/FabienDubin/storypillow/internal/handler"
	"github.com/FabienDubin/storypillow/internal/middleware"
	"github.com/FabienDubin/storypillow/internal/ratelimit"
	"github.com/FabienDubin/storypillow/internal/repository"
	"github.com/FabienDubin/storypillow/internal/service"
	"github.com/FabienDubin/storypillow/internal/session"
	"github.com/FabienDubin/storypillow/internal/token"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, limiter *ratelimit.Limiter, log *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		log:    log,
	}

	codec := token.NewCodec(cfg.Auth.Secret, cfg.Auth.SessionTTL)
	userRepo := repository.NewUserRepository(db, log)
	resolver := session.NewResolver(codec, userRepo)
	authService := service.NewAuthService(userRepo, codec, log)

	// The gate runs ahead of every route; everything not on its allow-list
	// needs at least a signature-valid, unexpired token.
	router.Use(middleware.Gate(codec, log))

	s.setupRoutes(cfg, authService, limiter, resolver, log)

	s.http = &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	return s
}

func (s *Server) setupRoutes(
	cfg *config.Config,
	authService service.AuthService,
	limiter *ratelimit.Limiter,
	resolver *session.Resolver,
	log *zap.Logger,
) {
	authHandler := handler.NewAuthHandler(authService, limiter, resolver, cfg.Auth.SecureCookie, log)
	usersHandler := handler.NewUsersHandler(authService, resolver, log)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.Static("/assets", "./assets")
	s.router.GET("/login", handler.LoginPage)

	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me)

	adminGroup := s.router.Group("/api/admin")
	{
		adminGroup.GET("/users", usersHandler.List)
		adminGroup.POST("/users", usersHandler.Create)
		adminGroup.PUT("/users/:id", usersHandler.Update)
		adminGroup.DELETE("/users/:id", usersHandler.Delete)
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run() error {
	s.log.Info("server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
