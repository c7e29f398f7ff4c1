// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"log/slog"
	"time"

	_ "wanderplan/docs" // swagger docs
	"wanderplan/internal/config"
	"wanderplan/internal/featureflags"
	"wanderplan/internal/jobs"
	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/notifications"
	"wanderplan/internal/places"
	"wanderplan/internal/repository"
	"wanderplan/internal/reviews"
	"wanderplan/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"

// healthReporter is implemented by optional backends that track their own
// reachability, such as the search index.
type healthReporter interface {
	Healthy() bool
}

// Deps are the already-connected backends the server is built on. Only DB
// is required; a nil integration disables the features that need it.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client

	Index      service.PublicationIndex
	Avatars    service.AvatarStore
	CascadeJob service.CascadeDispatcher
	Places     *places.Client
	Reviews    *reviews.Service
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens       *middleware.Tokens
	featureFlags *featureflags.Manager
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	index        service.PublicationIndex
	places       *places.Client
	reviews      *reviews.Service

	identity      *service.IdentityService
	profiles      *service.ProfileService
	follows       *service.FollowService
	plans         *service.PlanService
	publications  *service.PublicationService
	engagement    *service.EngagementService
	notifications *service.NotificationService
}

// NewServer wires repositories and services over deps.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	db := deps.DB

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	followRepo := repository.NewFollowRepository(db)
	planRepo := repository.NewPlanRepository(db)
	pubRepo := repository.NewPublicationRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("wanderplan-api"),
		tokens: middleware.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience,
			time.Duration(cfg.TokenTTLHours)*time.Hour, deps.Redis),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		index:        deps.Index,
		places:       deps.Places,
		reviews:      deps.Reviews,
	}

	var publisher service.EventPublisher
	if deps.Redis != nil {
		s.notifier = notifications.NewNotifier(deps.Redis)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}

	cascade := service.NewNameCascade(planRepo, pubRepo)

	s.notifications = service.NewNotificationService(notifRepo, publisher)
	s.identity = service.NewIdentityService(userRepo, s.tokens)
	s.follows = service.NewFollowService(followRepo, profileRepo)
	s.plans = service.NewPlanService(planRepo, pubRepo, profileRepo, s.notifications, deps.Index)
	s.publications = service.NewPublicationService(pubRepo, planRepo, profileRepo, s.plans, deps.Index, s.featureFlags)
	s.engagement = service.NewEngagementService(planRepo, pubRepo, profileRepo, s.notifications)
	s.profiles = service.NewProfileService(service.ProfileDeps{
		Users:         userRepo,
		Profiles:      profileRepo,
		Follows:       followRepo,
		Plans:         planRepo,
		Publications:  pubRepo,
		Cascade:       cascade,
		Dispatcher:    jobs.NewRouter(deps.CascadeJob, cascade, s.featureFlags),
		Avatars:       deps.Avatars,
		MaxAvatarSize: int64(cfg.AvatarMaxUploadMB) * 1024 * 1024,
	})

	return s, nil
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

	// CORS runs before the limiter so throttled responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = defaultOrigins
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := middleware.AuthRequired(s.tokens)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/logout", auth, s.Logout)

	api.Get("/feature-flags", auth, s.GetFeatureFlags)

	// Users: specific /me routes before /:id.
	users := api.Group("/users")
	users.Get("/", auth, s.GetSuggestions)
	users.Put("/me", auth, s.UpdateMyProfile)
	users.Post("/me/avatar", auth, middleware.RateLimit(s.redis, 10, time.Hour, "avatar"), s.UploadAvatar)
	users.Post("/me/resync", auth, s.ResyncMe)
	users.Get("/:id/profile", s.GetUserProfile)
	users.Get("/:id/plans/private", auth, s.GetPrivatePlans)
	users.Get("/:id/plans/cloned", auth, s.GetClonedPlans)
	users.Get("/:id/follow-status", auth, s.GetFollowStatus)
	users.Post("/:id/follow", auth, s.FollowUser)
	users.Delete("/:id/follow", auth, s.UnfollowUser)
	users.Delete("/:id/follower", auth, s.RemoveFollower)

	// Plans: static paths before /:id.
	plans := api.Group("/plans")
	plans.Get("/", s.GetPublicPlans)
	plans.Get("/by-city", s.GetPlansByCity)
	plans.Post("/", auth, s.CreatePlan)
	plans.Get("/:id", auth, s.GetPlan)
	plans.Put("/:id/bucket", auth, s.UpdateBucket)
	plans.Put("/:id/itinerary", auth, s.SaveItinerary)
	plans.Post("/:id/share", auth, s.SharePlan)
	plans.Post("/:id/unshare", auth, s.UnsharePlan)
	plans.Post("/:id/clone", auth, s.ClonePlan)
	plans.Post("/:id/publish", auth, s.PublishPlan)
	s.engagementRoutes(plans, auth, models.TargetPlan)

	api.Post("/itinerary", auth, s.SaveItineraryByTrip)

	pubs := api.Group("/publications")
	pubs.Get("/", s.GetFeed)
	pubs.Get("/by-city", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.GetPublicationsByCity)
	pubs.Get("/:id", s.GetPublication)
	pubs.Post("/:id/clone", auth, s.ClonePublication)
	s.engagementRoutes(pubs, auth, models.TargetPublication)

	api.Get("/places/search", middleware.RateLimit(s.redis, 30, time.Minute, "places_search"), s.SearchPlaces)
	api.Get("/reviews", s.GetPlaceReviews)
	api.Post("/reviews/summarize", middleware.RateLimit(s.redis, 10, time.Minute, "review_summary"), s.SummarizeReviews)

	notifs := api.Group("/notifications", auth)
	notifs.Get("/", s.GetNotifications)
	notifs.Post("/", s.CreateNotification)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)

	api.Get("/ws", auth, s.NotificationSocket())
}

// engagementRoutes mounts the like/comment/reply/reaction routes shared by
// plans and publications.
func (s *Server) engagementRoutes(group fiber.Router, auth fiber.Handler, kind models.TargetKind) {
	group.Post("/:id/like", auth, s.ToggleLike(kind))
	group.Post("/:id/comments", auth, middleware.RateLimit(s.redis, 10, time.Minute, "comment"), s.AddComment(kind))
	group.Post("/:id/comments/:commentId/replies", auth, middleware.RateLimit(s.redis, 10, time.Minute, "reply"), s.AddReply(kind))
	group.Post("/:id/comments/:commentId/reactions", auth, s.ToggleReaction(kind))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database, Redis and search index health. Only the
// database gates readiness; Redis and search degrade features.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	searchStatus := "disabled"
	if s.index != nil {
		searchStatus = "healthy"
		if h, ok := s.index.(healthReporter); ok && !h.Healthy() {
			searchStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" || searchStatus == "degraded" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "wanderplan",
		"version": "1.0.0",
		"status":  overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"search":   searchStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the Fiber app and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:   "Wanderplan API",
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: models.CodeValidation})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the listener and closes websocket connections. Backend
// connections belong to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
