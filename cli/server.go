package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	gateway "github.com/adonese/signup/apigateway"
	"github.com/adonese/signup/apperr"
	"github.com/adonese/signup/config"
	"github.com/adonese/signup/guard"
	"github.com/adonese/signup/identity"
	"github.com/adonese/signup/profile"
	"github.com/adonese/signup/register"
	"github.com/adonese/signup/store"
	"github.com/adonese/signup/web"
	"github.com/goccy/go-json"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const shutdownTimeout = 10 * time.Second

// backend is the pair of services a registration talks to.
type backend struct {
	accounts identity.AccountService
	profiles profile.Store
	reader   profile.Reader
	ready    func(ctx context.Context) error
	closers  []func() error
}

func (b *backend) Close() {
	for _, c := range b.closers {
		if err := c(); err != nil {
			logrusLogger.WithError(err).Warn("backend close failed")
		}
	}
}

func openLocalDB(ctx context.Context, cfg config.Config) (*store.DB, error) {
	db, err := store.Open(ctx, store.ConnOptions{
		URL:    cfg.DatabaseURL,
		Path:   cfg.DatabasePath,
		Driver: cfg.DatabaseDriver,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newFirebaseApp(ctx context.Context, cfg config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}
	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	return firebase.NewApp(ctx, fbConfig, opts...)
}

func newBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.Backend {
	case config.BackendFirebase:
		app, err := newFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("firebase app: %w", err)
		}
		accounts, err := identity.NewFirebase(ctx, app)
		if err != nil {
			return nil, err
		}
		profiles, err := profile.NewFirestore(ctx, app)
		if err != nil {
			return nil, err
		}
		return &backend{
			accounts: accounts,
			profiles: profiles,
			reader:   profiles,
			closers:  []func() error{profiles.Close},
		}, nil
	case config.BackendLocal:
		db, err := openLocalDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		st := store.New(db)
		return &backend{
			accounts: st,
			profiles: st,
			reader:   st,
			ready:    func(ctx context.Context) error { return db.PingContext(ctx) },
			closers:  []func() error{db.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// newGuard prefers redis so several instances share claims; a single
// instance falls back to the in-process cache.
func newGuard(ctx context.Context, cfg config.Config) (guard.Guard, func() error) {
	ttl := time.Duration(cfg.GuardTTLSeconds) * time.Second
	if cfg.RedisURL != "" {
		g, err := guard.NewRedisFromURL(ctx, cfg.RedisURL, ttl, logrusLogger)
		if err == nil {
			return g, g.Close
		}
		logrusLogger.WithError(err).Warn("redis guard unavailable, using in-memory guard")
	}
	return guard.NewMemory(ttl), func() error { return nil }
}

// buildApp wires every dependency and returns the fiber app plus a cleanup
// func to run after it stops.
func buildApp(ctx context.Context, cfg config.Config) (*fiber.App, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	g, closeGuard := newGuard(ctx, cfg)

	sessions, err := gateway.NewSessions(cfg.JWTKey, time.Duration(cfg.SessionTTLMinutes)*time.Minute)
	if err != nil {
		be.Close()
		_ = closeGuard()
		return nil, nil, err
	}
	sessions.Secure = cfg.SecureCookies
	sessions.LoginURL = cfg.LoginPath

	handler := &web.Handler{
		Registrar: &register.Registrar{
			Accounts:    be.accounts,
			Profiles:    be.profiles,
			Guard:       g,
			Logger:      logrusLogger,
			Destination: cfg.DashboardPath,
		},
		Sessions:  sessions,
		Profiles:  be.reader,
		Logger:    logrusLogger,
		LoginPath: cfg.LoginPath,
		Ready:     be.ready,
	}

	app := fiber.New(fiber.Config{
		Views:                 web.NewViews(),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(gateway.RequestID())
	app.Use(gateway.RequestLogger(logrusLogger, logSampling))
	app.Use(gateway.Instrumentation())

	app.Get("/metrics", gateway.RequireOperator(gateway.OperatorAuthConfig{
		Token:    cfg.MetricsToken,
		User:     cfg.MetricsUser,
		Password: cfg.MetricsPassword,
	}), adaptor.HTTPHandler(promhttp.Handler()))
	handler.Mount(app)

	cleanup := func() {
		be.Close()
		if err := closeGuard(); err != nil {
			logrusLogger.WithError(err).Warn("guard close failed")
		}
	}
	return app, cleanup, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == http.StatusNotFound {
			err = apperr.Wrap(err, apperr.ErrNotFound, fe.Message)
		} else {
			code := strings.ToLower(strings.ReplaceAll(http.StatusText(fe.Code), " ", "_"))
			err = apperr.New(code, fe.Code, fe.Message)
		}
	}
	return c.Status(apperr.Status(err)).JSON(apperr.Payload(err))
}

func serve(ctx context.Context, cfg config.Config) error {
	if shutdown := initOTel(ctx, cfg, logrusLogger); shutdown != nil {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logrusLogger.WithError(err).Warn("otel shutdown failed")
			}
		}()
	}

	app, cleanup, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logrusLogger.WithError(err).Warn("shutdown failed")
		}
	}()

	logrusLogger.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"backend": cfg.Backend,
	}).Info("signup listening")
	return app.Listen(cfg.Port)
}
