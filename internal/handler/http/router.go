package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Logger         *slog.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig, JWTService jwt.Service, clockHandler ClockHandler, timesheetHandler TimesheetHandler) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/punches", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionPunchCreate))
					r.Use(chiMiddleware.AllowContentType("application/json"))
					r.Post("/", clockHandler.Register)
					r.Post("/sync", clockHandler.Sync)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionPunchViewOwn))
					r.Get("/last", clockHandler.GetLast)
					r.Get("/status", clockHandler.GetStatus)
					r.Get("/me", clockHandler.ListMine)
					r.Get("/users/{userID}", clockHandler.ListByUser)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionReportsViewOwn)).
					Get("/mirror", timesheetHandler.GetMirror)

				r.With(middleware.RequirePermission(user.PermissionPayrollView)).
					Get("/payroll", timesheetHandler.GetPayroll)

				r.Route("/company", func(r chi.Router) {
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).
						Get("/punches", timesheetHandler.ListCompanyPunches)
					r.With(middleware.RequirePermission(user.PermissionPayrollView)).
						Get("/stats", timesheetHandler.GetCompanyStats)
					r.With(middleware.RequirePermission(user.PermissionPayrollExport)).
						Get("/payroll/export", timesheetHandler.ExportCompanyPayroll)
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r
}
