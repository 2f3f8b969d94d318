// Package server contains the HTTP handlers for the idea board API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ideaboard/internal/auth"
	"ideaboard/internal/config"
	"ideaboard/internal/mailer"
	"ideaboard/internal/middleware"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *auth.SessionCodec
	userRepo       repository.UserRepository

	ideaService    *service.IdeaService
	commentService *service.CommentService
	voteService    *service.VoteService
	flagService    *service.FlagService
	adminService   *service.AdminService
	exportService  *service.ExportService
	resetService   *service.ResetService
	authService    *service.AuthService
	casService     *service.CASService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mail mailer.Mailer) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}
	if mail == nil {
		mail = mailer.New(cfg)
	}

	userRepo := repository.NewUserRepository(db)
	ideaRepo := repository.NewIdeaRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	flagRepo := repository.NewFlagRepository(db)

	hasher := auth.NewBcryptHasher()
	clock := auth.SystemClock{}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("ideaboard-api"),
		sessions:       auth.NewSessionCodec(cfg.SessionKey(), clock, cfg.IsProduction()),
		userRepo:       userRepo,
	}
	s.ideaService = service.NewIdeaService(ideaRepo)
	s.commentService = service.NewCommentService(commentRepo, s.ideaService)
	s.voteService = service.NewVoteService(voteRepo, s.ideaService)
	s.flagService = service.NewFlagService(flagRepo, s.ideaService, commentRepo)
	s.adminService = service.NewAdminService(userRepo, ideaRepo, flagRepo, clock)
	s.exportService = service.NewExportService(ideaRepo, commentRepo)
	s.resetService = service.NewResetService(userRepo, hasher, auth.NewJWTSigner(cfg.ResetSecret(), clock), mail, cfg.BaseURL)
	s.authService = service.NewAuthService(userRepo, hasher)
	s.casService = service.NewCASService(userRepo, hasher, cfg.CASURL, cfg.CASEmailDomain, nil)
	return s, nil
}

// AdminService exposes the admin service to the scheduler and CLI.
func (s *Server) AdminService() *service.AdminService { return s.adminService }

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "IT Idea Board API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "X-Auth-Refresh, X-Trace-ID",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))

	app.Use(middleware.RequestTimeout(s.config.RequestTimeout))
	app.Use(middleware.Session(s.sessions, s.userRepo))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(s.redis, "signup", 3, 10*time.Minute), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(s.redis, "login", 10, 5*time.Minute), s.Login)
	authGroup.Post("/logout", s.Logout)
	authGroup.Get("/me", s.Me)
	authGroup.Post("/cas/validate", middleware.RateLimit(s.redis, "cas", 10, 5*time.Minute), s.CASValidate)
	authGroup.Post("/reset/request", middleware.RateLimit(s.redis, "reset", 3, 10*time.Minute), s.RequestPasswordReset)
	authGroup.Post("/reset/confirm", middleware.RateLimit(s.redis, "reset_confirm", 10, 10*time.Minute), s.ConfirmPasswordReset)

	ideas := api.Group("/ideas")
	ideas.Get("/", s.ListIdeas)
	ideas.Post("/", middleware.RequireAuth(), middleware.RateLimit(s.redis, "idea", 10, time.Minute), s.CreateIdea)
	ideas.Get("/:id/comments", s.ListComments)
	ideas.Post("/:id/comments", middleware.RequireAuth(), middleware.RateLimit(s.redis, "comment", 20, time.Minute), s.CreateComment)
	ideas.Post("/:id/vote", middleware.RequireAuth(), s.ToggleVote)
	ideas.Post("/:id/flag", middleware.RequireAuth(), middleware.RateLimit(s.redis, "flag", 30, time.Minute), s.FlagIdea)
	ideas.Get("/:id", s.GetIdea)
	ideas.Put("/:id", middleware.RequireAuth(), s.UpdateOwnIdea)

	api.Post("/comments/:id/flag", middleware.RequireAuth(), middleware.RateLimit(s.redis, "flag", 30, time.Minute), s.FlagComment)
	api.Put("/comments/:id", middleware.RequireAuth(), s.UpdateOwnComment)

	me := api.Group("/me", middleware.RequireAuth())
	me.Get("/ideas", s.MyIdeas)
	me.Get("/votes", s.MyVotes)

	mod := api.Group("/mod", middleware.RequireModerator())
	mod.Put("/ideas/:id", s.ModUpdateIdea)
	mod.Put("/ideas/:id/stage", s.ModUpdateStage)
	mod.Post("/ideas/:id/pin", s.ModTogglePin)
	mod.Put("/ideas/:id/off-topic", s.ModSetOffTopic)
	mod.Post("/ideas/:id/comments-toggle", s.ModToggleComments)
	mod.Delete("/ideas/:id", s.ModDeleteIdea)
	mod.Put("/comments/:id", s.ModUpdateComment)
	mod.Delete("/comments/:id", s.ModDeleteComment)
	mod.Post("/comments/:id/pin", s.ModToggleCommentPin)
	mod.Get("/flagged", s.ListFlagged)
	mod.Delete("/flags/:type/:id", s.ClearFlags)
	mod.Get("/off-topic", s.ListOffTopic)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.Get("/users", s.ListUsers)
	admin.Put("/users/:id/role", s.UpdateUserRole)
	admin.Delete("/users/:id", s.DeleteUser)
	admin.Get("/stats", s.GetStats)
	admin.Get("/export/ideas.csv", s.ExportIdeas)
	admin.Get("/export/comments.csv", s.ExportComments)
	admin.Delete("/ideas", s.DeleteIdeas)
}

// Start builds the app and blocks serving on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown drains the HTTP server, then closes the database and Redis. All
// close errors are returned together.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http: %w", err))
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	middleware.Logger.Info("server stopped", "errors", len(errs))
	return errors.Join(errs...)
}
