package server

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clett-ai/clett/internal/chat"
	"github.com/clett-ai/clett/internal/config"
	"github.com/clett-ai/clett/internal/handler"
	"github.com/clett-ai/clett/internal/ingest"
	"github.com/clett-ai/clett/internal/repository"
	"github.com/clett-ai/clett/internal/session"
	"github.com/clett-ai/clett/internal/storage"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	logger zerolog.Logger
}

// New builds the Echo server and registers routes.
// Caller must provide a non-nil pool.
func New(cfg *config.Config, pool *pgxpool.Pool) *Server {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.CORSAllowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Requested-With"},
	}))

	codec := &session.CookieCodec{
		Name:   cfg.Auth.CookieName,
		Domain: cfg.Auth.CookieDomain,
		MaxAge: time.Duration(cfg.Auth.CookieMaxAgeSec) * time.Second,
	}
	e.Use(session.Middleware(codec))

	var archive *storage.ArchiveClient
	if cfg.Storage != nil && cfg.Storage.S3 != nil {
		var err error
		archive, err = storage.NewArchiveClient(cfg.Storage.S3)
		if err != nil {
			logger.Warn().Err(err).Msg("archive client unavailable, ingesting without raw-file archive")
			archive = nil
		}
		if archive != nil {
			if err := archive.EnsureBucket(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("archive bucket check failed, uploads may fail")
			}
		}
	}

	uploadH := &handler.UploadHandler{
		Loader:   ingest.NewLoader(pool),
		Archive:  archive,
		MaxBytes: cfg.Upload.MaxBytes,
		Logger:   logger,
	}
	chatH := &handler.ChatHandler{
		Store:        repository.NewChatRepository(pool),
		Answerer:     chat.NewAnswerer(pool),
		ShareBaseURL: cfg.Auth.ShareBaseURL,
		WordDelay:    10 * time.Millisecond,
		Logger:       logger,
	}
	authH := &handler.AuthHandler{
		Verifier:     session.NewVerifier(cfg.Auth.JWKSURL),
		Codec:        codec,
		RedirectPath: cfg.Auth.RedirectPath,
		DevMode:      !cfg.Primary.IsProduction(),
		Logger:       logger,
	}
	sysH := &handler.SystemHandler{DB: pool, Archive: archive}

	e.GET("/auth/bridge", authH.Bridge)
	e.GET("/api/whoami", authH.Whoami)
	e.POST("/api/logout", authH.Logout)
	if authH.DevMode {
		e.GET("/api/dev-set-cookie", authH.DevSetCookie)
	}

	e.POST("/api/upload-data", uploadH.Upload)
	e.GET("/api/uploads", sysH.ListUploads)

	e.POST("/api/chat", chatH.PostChat)
	e.GET("/api/chat/sessions", chatH.ListSessions)
	e.GET("/api/chat/:id/messages", chatH.GetMessages)
	e.POST("/api/chat/:id/share", chatH.Share)

	e.GET("/api/health", sysH.Health)

	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	return &Server{Echo: e, Config: cfg, logger: logger}
}

// Start starts the HTTP server. Blocks until the context is cancelled or
// the server fails. On context cancel, Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("shutdown")
		}
	}()
	addr := ":" + s.Config.Server.Port
	return s.Echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
