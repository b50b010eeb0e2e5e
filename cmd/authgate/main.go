package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/authgate/core/audit"
	"github.com/dmitrymomot/authgate/core/config"
	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/csrf"
	"github.com/dmitrymomot/authgate/core/gateway"
	"github.com/dmitrymomot/authgate/core/identity"
	"github.com/dmitrymomot/authgate/core/lockout"
	"github.com/dmitrymomot/authgate/core/logger"
	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/integration/database/pg"
	"github.com/dmitrymomot/authgate/integration/database/redis"
	"github.com/dmitrymomot/authgate/middleware"
	"github.com/dmitrymomot/authgate/pkg/broadcast"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg Config
	config.MustLoad(&cfg)

	log := newLogger(cfg)

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("gateway exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	// Session and lockout stores share a backend choice: either both
	// in-process or both on redis.
	var (
		sessionStore session.Store
		lockoutStore lockout.Store
	)
	switch cfg.SessionStore {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()
		sessionStore = redis.NewSessionStore(client)
		lockoutStore = redis.NewLockoutStore(client)
	case "memory":
		memStore := session.NewMemoryStore(session.WithMemoryStoreLogger(log))
		eg.Go(func() error {
			err := memStore.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		sessionStore = memStore
		lockoutStore = lockout.NewMemoryStore()
		log.Warn("using in-memory stores, sessions will not survive restarts")
	default:
		return errors.New("unknown SESSION_STORE: " + cfg.SessionStore)
	}

	var auditStore audit.Store
	switch cfg.AuditStore {
	case "postgres":
		var pgCfg pg.Config
		config.MustLoad(&pgCfg)
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := pg.NewAuditStore(pool)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		auditStore = store
	case "log":
		auditStore = audit.NewLogStore(log.With("component", "audit"))
	default:
		return errors.New("unknown AUDIT_STORE: " + cfg.AuditStore)
	}

	recorder := audit.NewRecorder(auditStore, audit.WithLogger(log))
	eg.Go(func() error {
		err := recorder.Start(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	verifier, err := identity.NewFromConfig(cfg.Identity)
	if err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}

	sessions := session.NewManager(sessionStore, csrf.New(), session.WithConfig(cfg.Session))
	lockouts := lockout.NewGuard(lockoutStore, lockout.WithConfig(cfg.Lockout))

	events := broadcast.NewMemoryBroadcaster[gateway.SessionEvent](64)
	defer events.Close()
	eg.Go(func() error {
		return logSessionEvents(ctx, events, log)
	})

	gw := gateway.New(sessions, cookies, verifier, lockouts, recorder,
		gateway.WithLogger(log),
		gateway.WithBroadcaster(events),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.ClientIP(),
		middleware.Logging(log.With("component", "http")),
		middleware.SecurityHeaders(),
	)
	router.GET("/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	gw.Routes(router)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg.Go(func() error {
		log.Info("gateway listening", "addr", cfg.ListenAddr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// logSessionEvents drains the event stream into the log. Downstream
// services would subscribe the same way.
func logSessionEvents(ctx context.Context, events *broadcast.MemoryBroadcaster[gateway.SessionEvent], log *slog.Logger) error {
	sub := events.Subscribe(ctx)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Receive(ctx):
			if !ok {
				return nil
			}
			log.Info("session event",
				"type", string(msg.Data.Type),
				"session_id", msg.Data.SessionID.String(),
				"subject_id", msg.Data.SubjectID,
				"ip", msg.Data.IP,
			)
		}
	}
}

func newLogger(cfg Config) *slog.Logger {
	if cfg.Environment == "production" {
		return logger.New(logger.WithProduction(cfg.AppName))
	}
	return logger.New(logger.WithDevelopment(cfg.AppName))
}
