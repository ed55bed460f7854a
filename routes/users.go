package routes

import (
	"net/http"
	"time"

	"github.com/soban-iftikhar/HostelMate/controllers/auth"
	"github.com/soban-iftikhar/HostelMate/controllers/users"
	"github.com/soban-iftikhar/HostelMate/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers registration, session and resident endpoints.
func UsersRoutes(api *mux.Router) {
	// login/register: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// session traffic: 120 reads / 60 writes per user per minute
	userLimiter := middleware.NewUserRateLimiter(120, 60, time.Minute)

	api.Handle("/users/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/users/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/users/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/users/logout", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(auth.LogoutHandler)))).Methods(http.MethodPost)
	api.Handle("/users/logout-all", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(auth.LogoutAllHandler)))).Methods(http.MethodPost)

	api.Handle("/users/profile", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.ProfileHandler)))).Methods(http.MethodGet)
	api.Handle("/users/points/history", middleware.AuthMiddleware(userLimiter.Middleware(http.HandlerFunc(users.PointsHistoryHandler)))).Methods(http.MethodGet)

	// leaderboard is public, as in the original app
	api.Handle("/users/leaderboard", http.HandlerFunc(users.LeaderboardHandler)).Methods(http.MethodGet)
}
