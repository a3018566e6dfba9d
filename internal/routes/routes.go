package routes

import (
	"net/http"

	"authsystem/internal/handlers"
	"authsystem/internal/middleware"
	helpers "authsystem/internal/utils/helpres"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

const APIPrefix = "/api/v1"

type Deps struct {
	Auth        *handlers.AuthHandler
	Health      *handlers.HealthHandler
	Verifier    middleware.TokenVerifier
	Metrics     *middleware.Metrics
	CORSOrigins []string
}

// NewHandler собирает роутер и оборачивает его общей цепочкой middleware.
// Metrics висит на роутере: ему нужен шаблон совпавшего маршрута.
func NewHandler(d Deps) http.Handler {
	router := mux.NewRouter()
	InitRoutes(router, d)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		MaxAge:           86400,
	})

	return middleware.RequestID(
		middleware.Recoverer(
			middleware.Logging(
				corsMiddleware.Handler(router),
			),
		),
	)
}

func InitRoutes(router *mux.Router, d Deps) {
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware)
		router.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		helpers.Error(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		helpers.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := router.PathPrefix(APIPrefix).Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/health", d.Health.Health).Methods(http.MethodGet)

	api.HandleFunc("/auth/register", d.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", d.Auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", d.Auth.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/auth/forgot-password", d.Auth.ForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/auth/reset-password", d.Auth.ResetPassword).Methods(http.MethodPost)

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth(d.Verifier))

	protected.HandleFunc("/auth/change-password", d.Auth.ChangePassword).Methods(http.MethodPost)
	protected.HandleFunc("/users/me", d.Auth.Me).Methods(http.MethodGet)
}
