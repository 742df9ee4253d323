// This is the main entry point of the TechBlog application.
// It initializes configuration, the database pool, the session store,
// services and handlers, sets up the HTTP router and middleware, and
// starts the HTTP server with graceful shutdown.
// @title TechBlog API
// @version 1.0
// @description A blogging platform with session-based authentication.
// @BasePath /
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/techblog-go/apperror"
	"github.com/user/techblog-go/auth"
	"github.com/user/techblog-go/background"
	"github.com/user/techblog-go/config"
	"github.com/user/techblog-go/db"
	_ "github.com/user/techblog-go/docs" // Generated Swagger docs
	"github.com/user/techblog-go/feed"
	"github.com/user/techblog-go/posts"
	"github.com/user/techblog-go/session"
	"github.com/user/techblog-go/users"
)

func main() {
	// .env is a development convenience; in production the variables
	// are set directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewDBPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, cfg.Server.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Session store and the background sweeper that clears expired rows.
	sessionStore := session.NewPostgresStore(pool, cfg.Session.TTL)
	sweeperStopChan := make(chan struct{})
	waitForSweeper := background.StartSessionSweeper(sessionStore, cfg.Session.SweepInterval, sweeperStopChan)

	// Manual dependency injection: repositories, then services, then handlers.
	userStore := auth.NewPgxUserStore(pool)
	authService := auth.NewAuthService(userStore, sessionStore)
	authHandlers := auth.NewHandlers(authService, cfg.Session.CookieSecure)

	userRepo := users.NewPgxRepository(pool)
	userService := users.NewUserService(userRepo, sessionStore)
	userHandlers := users.NewUserHandlers(userService, cfg.Server.AdminSecret, cfg.Session.CookieSecure)

	broadcaster := feed.NewBroadcaster()
	postRepo := posts.NewPgxRepository(pool)
	postService := posts.NewPostService(postRepo, broadcaster)
	postHandlers := posts.NewPostHandlers(postService)

	r := chi.NewRouter()

	// Chi requires all middleware to be registered before any routes.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", users.AdminSecretHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Custom panic recovery that answers in the application's error shape.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	// Session restore runs on every request so handlers can distinguish
	// logged-in from anonymous callers.
	r.Use(auth.SessionMiddleware(sessionStore, cfg.Session.CookieSecure))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/user", func(r chi.Router) {
		r.Get("/", userHandlers.HandleListUsers())

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireLoggedOut)
			r.Post("/", authHandlers.HandleRegister())
			r.Post("/login", authHandlers.HandleLogin())
		})

		// Session-derived routes: the target user is always the caller.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireLoggedIn)
			r.Post("/logout", authHandlers.HandleLogout())
			r.Put("/update-password", userHandlers.HandleUpdatePassword(users.SessionTargetID))
			r.Put("/update-username", userHandlers.HandleUpdateUsername(users.SessionTargetID))
			r.Put("/update-email", userHandlers.HandleUpdateEmail(users.SessionTargetID))
			r.Delete("/", userHandlers.HandleDeleteAccount(users.SessionTargetID))
		})

		// Path-id routes kept for older clients. RequireSelf pins the
		// path id to the session user, so these behave identically to
		// the session-derived routes above.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireLoggedIn)
			r.Use(auth.RequireSelf)
			r.Put("/password/{id}", userHandlers.HandleUpdatePassword(users.PathTargetID))
			r.Put("/username/{id}", userHandlers.HandleUpdateUsername(users.PathTargetID))
			r.Put("/email/{id}", userHandlers.HandleUpdateEmail(users.PathTargetID))
			r.Delete("/{id}", userHandlers.HandleDeleteAccount(users.PathTargetID))
		})

		r.Get("/{id}", userHandlers.HandleGetUser())
	})

	r.Route("/api/post", func(r chi.Router) {
		postHandlers.RegisterRoutes(r)
	})

	r.Get("/api/home", postHandlers.HandleHome())
	r.Get("/api/feed/events", broadcaster.HandleEvents())

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(sweeperStopChan)
	waitForSweeper()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"message":"Failed to encode error response"}`, http.StatusInternalServerError)
	}
}
