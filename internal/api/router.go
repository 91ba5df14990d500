package api

import (
	"net/http"
	"time"

	"geoauth/internal/api/handler"
	"geoauth/internal/api/middleware"
	"geoauth/internal/app/service"
	"geoauth/internal/common/security"
	"geoauth/internal/domain/repository"
	"geoauth/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	authService *service.AuthService,
	userService *service.UserService,
	geoService *service.GeoService,
	tokens *security.TokenService,
	users repository.UserRepository,
	collector *metrics.Collector,
	limiter *middleware.RateLimiter,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(collector.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	// Credential routes: public, but rate limited per IP.
	authHandler := handler.NewAuthHandler(authService)
	r.Group(func(public chi.Router) {
		public.Use(limiter.Middleware)
		authHandler.RegisterRoutes(public)
	})

	geoHandler := handler.NewGeoHandler(geoService)
	geoHandler.RegisterPublicRoutes(r)

	// Everything behind the authenticator receives the resolved user record
	// in its request context.
	userHandler := handler.NewUserHandler(userService)
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.Authenticator(tokens, users))
		userHandler.RegisterRoutes(protected)
		geoHandler.RegisterProtectedRoutes(protected)
	})

	return r
}
