package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler builds the routing tree.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccessToken)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.rejectAuthenticated)
			r.Post("/registration", s.handleRegistration)
			r.Get("/activate/{email}/{activationToken}", s.handleActivate)
			r.Post("/login", s.handleLogin)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)
		})
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(s.requireAccessToken)
		r.Get("/", s.handleProfile)
		r.Patch("/change-name", s.handleChangeName)
		r.Patch("/change-password", s.handleChangePassword)
		r.Post("/request-email-change", s.handleRequestEmailChange)
		r.Get("/change-email/{activationToken}", s.handleConfirmEmailChange)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not Found", Errors: map[string]string{}})
	})

	return r
}
