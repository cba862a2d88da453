// Package server is the composition root: it opens the stores, builds the
// services and handlers, and mounts them on a chi router.
//
//	config -> stores (sqlite|postgres, redis|memory) -> services -> handlers -> routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/config"
	"github.com/sakif/teamboard/internal/handler"
	"github.com/sakif/teamboard/internal/mailer"
	"github.com/sakif/teamboard/internal/middleware"
	"github.com/sakif/teamboard/internal/repository"
	"github.com/sakif/teamboard/internal/repository/memory"
	pgRepo "github.com/sakif/teamboard/internal/repository/postgres"
	redisRepo "github.com/sakif/teamboard/internal/repository/redis"
	sqliteRepo "github.com/sakif/teamboard/internal/repository/sqlite"
	"github.com/sakif/teamboard/internal/service"
	"github.com/sakif/teamboard/web"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and every long-lived connection. Close releases them.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	redis  *goredis.Client // nil when reset tokens are kept in memory
}

// New opens the stores named by cfg, seeds the country table and wires the
// routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := store.SeedCountries(ctx, cfg.Countries); err != nil {
		s.Close()
		return nil, fmt.Errorf("seeding countries: %w", err)
	}

	var resetTokens repository.ResetTokenRepository
	if cfg.Redis.Addr != "" {
		s.redis, err = redisRepo.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		resetTokens = redisRepo.NewResetTokens(s.redis)
	} else {
		logger.Warn("REDIS_ADDR not set, password reset tokens are kept in memory")
		resetTokens = memory.NewResetTokens()
	}

	if err := s.setupRoutes(resetTokens, s.newMailer()); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// OpenStore opens the SQL backend named by cfg.Driver and applies its schema.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := pgRepo.New(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	default:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

func (s *Server) newMailer() mailer.Mailer {
	if s.config.Mail.Host == "" {
		s.logger.Warn("SMTP_HOST not set, password reset emails are written to the log")
		return mailer.NewLogMailer(s.logger)
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     s.config.Mail.Host,
		Port:     s.config.Mail.Port,
		Username: s.config.Mail.Username,
		Password: s.config.Mail.Password,
		From:     s.config.Mail.From,
	})
}

// setupRoutes builds the dependency graph and mounts:
//
//	GET          /static/*                              embedded assets
//	GET          /healthz, /metrics
//	GET, POST    /accounts/login/, /accounts/logout/, /accounts/register/
//	GET, POST    /accounts/password/reset/...           reset request and confirm
//	GET, POST    /accounts/profile/                     login required
//	GET          /accounts/github/login/, callback/     when GitHub is configured
//	GET          /                                      landing page, login required
//	POST         /teams/, /teams/{id}/join/, /teams/leave/
//	*            /api/...                               JSON, session required, CORS
func (s *Server) setupRoutes(resetTokens repository.ResetTokenRepository, m mailer.Mailer) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return err
	}
	sessions := auth.NewSessions(tokens, cfg.Session.CookieName, cfg.Session.Secure)
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}

	pages, err := handler.NewPages(web.FS, s.logger)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	registrationService := service.NewRegistrationService(s.store, passwords, s.logger)
	resetService := service.NewPasswordResetService(s.store, resetTokens, passwords, m,
		cfg.Server.BaseURL, cfg.Reset.TokenTTL, s.logger)
	profileService := service.NewProfileService(s.store, s.store, s.logger)
	teamService := service.NewTeamService(s.store, s.store, s.store, s.logger)
	homeGate := service.NewHomeGate(s.store, s.logger)

	authHandler := handler.NewAuthHandler(authService, sessions, github, pages, s.logger)
	registrationHandler := handler.NewRegistrationHandler(registrationService, profileService, sessions, pages, s.logger)
	resetHandler := handler.NewPasswordResetHandler(resetService, pages, s.logger)
	profileHandler := handler.NewProfileHandler(authService, profileService, pages, s.logger)
	homeHandler := handler.NewHomeHandler(homeGate, teamService, sessions, pages, s.logger)
	apiHandler := handler.NewAPIHandler(authService, profileService, teamService, s.logger)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/static/*", http.FileServer(http.FS(web.FS)))
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	requireLogin := sessions.RequireLogin(handler.LoginPath)

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/login/", authHandler.HandleLoginPage)
		r.Post("/login/", authHandler.HandleLogin)
		r.With(sessions.OptionalAuth).Get("/logout/", authHandler.HandleLogout)
		r.With(sessions.OptionalAuth).Post("/logout/", authHandler.HandleLogout)

		r.Get("/register/", registrationHandler.HandleRegisterPage)
		r.Post("/register/", registrationHandler.HandleRegister)

		r.Get("/password/reset/", resetHandler.HandleRequestPage)
		r.Post("/password/reset/", resetHandler.HandleRequest)
		r.Get("/password/reset/done/", resetHandler.HandleDone)
		r.Get("/password/reset/confirm/{token}/", resetHandler.HandleConfirmPage)
		r.Post("/password/reset/confirm/{token}/", resetHandler.HandleConfirm)
		r.Get("/password/reset/complete/", resetHandler.HandleComplete)

		r.With(requireLogin).Get("/profile/", profileHandler.HandleProfilePage)
		r.With(requireLogin).Post("/profile/", profileHandler.HandleSaveProfile)

		if github != nil {
			r.Get("/github/login/", authHandler.HandleGitHubLogin)
			r.Get("/github/callback/", authHandler.HandleGitHubCallback)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(requireLogin)
		r.Get("/", homeHandler.HandleHome)
		r.Post("/teams/", homeHandler.HandleCreateTeam)
		r.Post("/teams/{id}/join/", homeHandler.HandleJoinTeam)
		r.Post("/teams/leave/", homeHandler.HandleLeaveTeam)
	})

	r.Route("/api", func(r chi.Router) {
		// An empty origin list would mean "*" to cors; with credentials
		// allowed that is never wanted, so CORS stays off until configured.
		if len(cfg.Server.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.Server.CORSOrigins,
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(sessions.RequireAuth)

		r.Get("/me", apiHandler.HandleMe)
		r.Get("/teams", apiHandler.HandleListTeams)
		r.Post("/teams", apiHandler.HandleCreateTeam)
		r.Post("/teams/leave", apiHandler.HandleLeaveTeam)
		r.Get("/teams/{id}", apiHandler.HandleGetTeam)
		r.Delete("/teams/{id}", apiHandler.HandleDeleteTeam)
		r.Post("/teams/{id}/join", apiHandler.HandleJoinTeam)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := `{"status":"ok"}`
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		status = http.StatusServiceUnavailable
		body = `{"status":"unavailable"}`
	} else if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Error("redis health check failed", slog.String("error", err.Error()))
			status = http.StatusServiceUnavailable
			body = `{"status":"unavailable"}`
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the redis client.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the stores.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", s.config.Server.BaseURL),
			slog.String("database", s.config.Database.Driver),
			slog.Bool("github", s.config.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
