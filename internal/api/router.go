package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointments/internal/auth"
	"github.com/hackgods/clinic-appointments/internal/clinic"
)

type RouterConfig struct {
	Users        *clinic.UserService
	Doctors      *clinic.DoctorService
	Patients     *clinic.PatientService
	Appointments *clinic.AppointmentService

	Gate     *auth.Gate
	Tokens   *auth.TokenIssuer
	Linker   *auth.Linker
	Provider auth.Provider
	Sessions auth.SessionStore

	// Limiter guards the signup, login and OAuth entry points; nil disables it.
	Limiter *RateLimiter

	Logger        zerolog.Logger
	ClientOrigin  string
	SecureCookies bool
	SessionTTL    time.Duration

	Checks  []DependencyCheck
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(AuthMiddleware(cfg.Gate))

	health := NewHealthHandler(cfg.Env, cfg.Version, cfg.Checks...)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Welcome to the clinic appointments API"})
	})

	ah := &AuthHandler{
		users:         cfg.Users,
		linker:        cfg.Linker,
		provider:      cfg.Provider,
		sessions:      cfg.Sessions,
		tokens:        cfg.Tokens,
		clientOrigin:  cfg.ClientOrigin,
		secureCookies: cfg.SecureCookies,
		sessionTTL:    cfg.SessionTTL,
	}
	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware)
		}
		r.Get("/auth/google", ah.GoogleLogin)
		r.Post("/auth/signup", ah.Signup)
		r.Post("/auth/login", ah.Login)
	})
	r.Get("/auth/google/callback", ah.GoogleCallback)
	r.Get("/auth/status", ah.Status)
	r.Get("/logout", ah.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAuth)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", listHandler(userResource, cfg.Users.List))
			r.Post("/", createHandler[clinic.SignupInput](userResource, cfg.Users.Create))
			r.Get("/{id}", getHandler(userResource, cfg.Users.Get))
			r.Put("/{id}", updateHandler[clinic.UserUpdate](userResource, cfg.Users.Update))
			r.Delete("/{id}", deleteHandler(userResource, cfg.Users.Delete))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", listHandler(doctorResource, cfg.Doctors.List))
			r.Post("/", createHandler[clinic.DoctorInput](doctorResource, cfg.Doctors.Create))
			r.Get("/{id}", getHandler(doctorResource, cfg.Doctors.Get))
			r.Put("/{id}", updateHandler[clinic.DoctorInput](doctorResource, cfg.Doctors.Update))
			r.Delete("/{id}", deleteHandler(doctorResource, cfg.Doctors.Delete))
		})

		r.Route("/patients", func(r chi.Router) {
			r.Get("/", listHandler(patientResource, cfg.Patients.List))
			r.Post("/", createHandler[clinic.PatientInput](patientResource, cfg.Patients.Create))
			r.Get("/{id}", getHandler(patientResource, cfg.Patients.Get))
			r.Put("/{id}", updateHandler[clinic.PatientUpdate](patientResource, cfg.Patients.Update))
			r.Delete("/{id}", deleteHandler(patientResource, cfg.Patients.Delete))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", listHandler(appointmentResource, cfg.Appointments.List))
			r.Post("/", createHandler[clinic.AppointmentInput](appointmentResource, cfg.Appointments.Create))
			r.Get("/doctor/{id}", appointmentsByHandler(doctorResource, cfg.Appointments.ListByDoctor))
			r.Get("/patient/{id}", appointmentsByHandler(patientResource, cfg.Appointments.ListByPatient))
			r.Get("/{id}", getHandler(appointmentResource, cfg.Appointments.Get))
			r.Put("/{id}", updateHandler[clinic.AppointmentInput](appointmentResource, cfg.Appointments.Update))
			r.Delete("/{id}", deleteHandler(appointmentResource, cfg.Appointments.Delete))
		})
	})

	return r
}
