package handlers

import (
	"net/http"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/auth"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/config"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// preflight answers any OPTIONS request with 200 once the CORS headers are set.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RegisterRoutes(r *chi.Mux, cfg *config.Config, authHandler *auth.AuthHandler, bookingHandler *BookingHandler) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(preflight)

	// Initialize Huma API
	humaConfig := huma.DefaultConfig("Coffee Origin Tours Booking API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(r, humaConfig)

	secured := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"bearerAuth": {}}}
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "submit-booking",
		Method:        http.MethodPost,
		Path:          "/bookings",
		Summary:       "Submit a tour booking",
		DefaultStatus: http.StatusCreated,
	}, bookingHandler.HandleSubmit)
	huma.Post(api, "/admin/login", authHandler.HandleLogin)

	// Admin routes
	huma.Get(api, "/admin/me", authHandler.HandleMe, secured)
	huma.Get(api, "/admin/bookings", bookingHandler.HandleList, secured)
	huma.Get(api, "/admin/bookings/stats", bookingHandler.HandleStats, secured)
	huma.Get(api, "/admin/bookings/{id}", bookingHandler.HandleGet, secured)
	huma.Patch(api, "/admin/bookings/{id}", bookingHandler.HandleUpdate, secured)
	huma.Delete(api, "/bookings/{id}", bookingHandler.HandleDelete, secured)
	huma.Post(api, "/bookings/{id}/send-email", bookingHandler.HandleSendEmail, secured)

	r.With(authHandler.AdminMiddleware).Get("/admin/bookings/export", bookingHandler.HandleExport)
}
