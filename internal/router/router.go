package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-session-auth/internal/config"
	"go-session-auth/internal/handler"
	"go-session-auth/internal/middleware"
)

func New(
	cfg *config.Config,
	login *middleware.Login,
	identify *middleware.Identify,
	authHandler *handler.AuthHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", login.Handler())
			auth.Get("/csrf", authHandler.CSRF)
			auth.With(identify.Handler).Get("/me", authHandler.Me)
			auth.With(identify.Handler, middleware.RequireRoles("admin")).Post("/register", authHandler.Register)
			auth.With(identify.Handler).Post("/logout", authHandler.Logout)
		})
	})

	return r
}
