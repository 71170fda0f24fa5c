package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	authhandler "policygate/internal/auth/handler"
	authmetrics "policygate/internal/auth/metrics"
	"policygate/internal/auth/password"
	authservice "policygate/internal/auth/service"
	userstore "policygate/internal/auth/store/user"
	enrollhandler "policygate/internal/enrollment/handler"
	enrollmetrics "policygate/internal/enrollment/metrics"
	enrollservice "policygate/internal/enrollment/service"
	enrollstore "policygate/internal/enrollment/store/enrollment"
	"policygate/internal/jwttoken"
	"policygate/internal/platform/config"
	"policygate/internal/platform/httpserver"
	"policygate/internal/platform/logger"
	platformmetrics "policygate/internal/platform/metrics"
	platformredis "policygate/internal/platform/redis"
	policycache "policygate/internal/policy/cache"
	policyhandler "policygate/internal/policy/handler"
	policymetrics "policygate/internal/policy/metrics"
	policyservice "policygate/internal/policy/service"
	policystore "policygate/internal/policy/store/policy"
	httptransport "policygate/internal/transport/http"
	userhandler "policygate/internal/user/handler"
	adminservice "policygate/internal/user/service"
)

// main wires configuration, stores, services, and the router, then runs the
// server until a shutdown signal. Business logic lives in the internal
// service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New("info").Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	// Stores: PostgreSQL when a database is configured, in-memory otherwise.
	var (
		db          *sql.DB
		users       authservice.UserStore
		adminUsers  adminservice.UserStore
		policies    policyservice.PolicyStore
		enrollments enrollservice.EnrollmentStore
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(context.Background()); err != nil {
			log.Error("ping database", "error", err.Error())
			os.Exit(1)
		}
		userStore := userstore.NewPostgres(db)
		users = userStore
		adminUsers = userStore
		policies = policystore.NewPostgres(db)
		enrollments = enrollstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		userStore := userstore.NewInMemory()
		policyStore := policystore.NewInMemory()
		users = userStore
		adminUsers = userStore
		policies = policyStore
		enrollments = enrollstore.NewInMemory(userStore, policyStore)
		log.Info("using in-memory stores; data will not survive a restart")
	}

	// Redis is optional; without it the policy cache is disabled.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err.Error())
		os.Exit(1)
	}
	var cache *policycache.Cache
	if redisClient != nil {
		defer redisClient.Close()
		cache = policycache.New(redisClient.Client)
		log.Info("policy cache enabled")
	}

	tokens := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TokenTTL)
	hasher := password.NewHasher(cfg.JWT.SigningKey)
	httpMetrics := platformmetrics.New()

	authSvc := authservice.New(users, hasher, tokens,
		authservice.WithLogger(log),
		authservice.WithMetrics(authmetrics.New()),
	)
	policySvc := policyservice.New(policies,
		policyservice.WithLogger(log),
		policyservice.WithMetrics(policymetrics.New()),
		policyservice.WithCache(cache),
	)
	enrollSvc := enrollservice.New(enrollments, policySvc,
		enrollservice.WithLogger(log),
		enrollservice.WithMetrics(enrollmetrics.New()),
		enrollservice.WithReapply(cfg.Enrollment.AllowReapply),
	)
	adminSvc := adminservice.New(adminUsers, adminservice.WithLogger(log))

	router := httptransport.NewRouter(httptransport.Handlers{
		Auth:       authhandler.New(authSvc, log),
		Policy:     policyhandler.New(policySvc, log),
		Enrollment: enrollhandler.New(enrollSvc, log),
		User:       userhandler.New(adminSvc, log),
	}, httptransport.Deps{
		Logger:    log,
		Metrics:   httpMetrics,
		Validator: tokens,
		Health:    healthHandler(db, redisClient),
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

// healthHandler reports liveness plus the health of whichever backends are
// configured.
func healthHandler(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
