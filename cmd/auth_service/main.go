package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth"
	"github.com/hackers-pub/hackerspub-sub003/internal/config"
	"github.com/hackers-pub/hackerspub-sub003/internal/http_server/handlers/logout"
	"github.com/hackers-pub/hackerspub-sub003/internal/http_server/handlers/me"
	"github.com/hackers-pub/hackerspub-sub003/internal/http_server/handlers/signin"
	signinVerify "github.com/hackers-pub/hackerspub-sub003/internal/http_server/handlers/signin_verify"
	"github.com/hackers-pub/hackerspub-sub003/internal/http_server/handlers/signup"
	signupLookup "github.com/hackers-pub/hackerspub-sub003/internal/http_server/handlers/signup_lookup"
	"github.com/hackers-pub/hackerspub-sub003/internal/lib/api/validation"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/middleware/authn"
	rateLimit "github.com/hackers-pub/hackerspub-sub003/internal/middleware/ratelimit"
	"github.com/hackers-pub/hackerspub-sub003/internal/rabbitmq"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage/postgres"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.MustLoad(config.Path(flagSet(), os.Args[1:]))

	log := sl.Setup(cfg.Env, os.Stdout, sl.Options{MaskSecrets: cfg.Log.MaskSecrets})

	log.Info("starting auth service", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", sl.Err(err))
		os.Exit(1)
	}
	defer storage.Close()

	kv, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", sl.Err(err))
		os.Exit(1)
	}
	defer kv.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer msgBroker.Close()

	authService := auth.New(log, storage, storage, kv, msgBroker, auth.Options{
		SignupMaxAttempts: cfg.Signup.MaxAttempts,
		SigninTTL:         cfg.Signin.TokenTTL,
		SigninMaxAttempts: cfg.Signin.MaxAttempts,
		SessionTTL:        cfg.Session.TTL,
		AccessTokenTTL:    cfg.Session.AccessTokenTTL,
		AccessTokenSecret: cfg.Session.AccessTokenSecret,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      setupRouter(log, authService, cfg),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		log.Info("Shutting down HTTP server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", sl.Err(err))
		return
	}

	log.Info("Server stopped gracefully")
}

func setupRouter(log *slog.Logger, authService *auth.Auth, cfg *config.Config) *chi.Mux {
	validate := validation.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/sign", func(r chi.Router) {
		r.With(rateLimit.SigninRequest()).Post("/in",
			signin.New(log, validate, authService, cfg.Signin.VerifyURL, cfg.Signin.TokenTTL),
		)
		r.With(rateLimit.SigninVerify()).Post("/in/{token}",
			signinVerify.New(log, validate, authService, cfg.Session.TTL, cfg.Session.CookieSecure),
		)
		r.With(rateLimit.SignupLookup()).Get("/up/{token}",
			signupLookup.New(log, authService),
		)
		r.With(rateLimit.SignupComplete()).Post("/up/{token}",
			signup.New(log, validate, authService, cfg.Session.TTL, cfg.Session.CookieSecure),
		)
		r.With(rateLimit.Logout()).Post("/out",
			logout.New(log, authService, cfg.Session.CookieSecure),
		)
	})

	r.With(authn.New(log, authService)).Get("/me",
		me.New(log, authService),
	)

	return r
}

func flagSet() *flag.FlagSet {
	return flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}
