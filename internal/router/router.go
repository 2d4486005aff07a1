package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-portal/internal/middleware"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// PublicHandler has routes that need no session.
type PublicHandler interface {
	Handler
	RegisterPublicRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Health       Handler
	Auth         PublicHandler
	User         PublicHandler
	Directory    Handler
	Booking      Handler
	Profile      Handler
	Appointment  Handler
	Notification Handler
	Prescription Handler
	Schedule     Handler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	RateLimit      rate.Limit
	RateBurst      int
	CORSConfig     middleware.CORSConfig
	Security       middleware.SecurityConfig
}

type Router struct {
	engine   *gin.Engine
	sessions *middleware.SessionMiddleware
	h        Handlers
}

func NewRouter(sessions *middleware.SessionMiddleware, h Handlers, m *metrics.Metrics, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	engine := gin.New()

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORSConfig),
	)
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(config.RequestTimeout))
	}
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}
	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return &Router{engine: engine, sessions: sessions, h: h}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	if r.h.Health != nil {
		r.h.Health.RegisterRoutes(api)
	}
	r.setupPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.sessions.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.h.Auth.RegisterPublicRoutes(rg)
	r.h.User.RegisterPublicRoutes(rg)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	for _, h := range []Handler{
		r.h.Auth,
		r.h.Directory,
		r.h.Booking,
		r.h.Profile,
		r.h.Appointment,
		r.h.Notification,
		r.h.Prescription,
	} {
		if h != nil {
			h.RegisterRoutes(rg)
		}
	}

	if r.h.Schedule != nil {
		doctors := rg.Group("")
		doctors.Use(r.sessions.RequireRole(model.RoleDoctor))
		r.h.Schedule.RegisterRoutes(doctors)
	}

	admin := rg.Group("")
	admin.Use(r.sessions.RequireRole(model.RoleAdmin))
	r.h.User.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
