package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/helpify-project/pairlink/internal/clearance"
	"github.com/helpify-project/pairlink/internal/controllers"
	"github.com/helpify-project/pairlink/internal/database"
	"github.com/helpify-project/pairlink/internal/passphrase"
	"github.com/helpify-project/pairlink/internal/ratelimit"
	"github.com/helpify-project/pairlink/internal/room"
	"github.com/helpify-project/pairlink/internal/router"
	"github.com/helpify-project/pairlink/internal/turnstile"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	ctx, _ = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	app := &cli.App{
		Name:  "pairlink-api",
		Usage: "pair two peers by passphrase and relay their signaling",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Value: false,
				EnvVars: []string{
					"PAIRLINK_API_DEBUG",
				},
			},
			&cli.StringFlag{
				Name:  "http-listen-address",
				Value: "127.0.0.1:3009",
				EnvVars: []string{
					"PAIRLINK_API_HTTP_LISTEN_ADDRESS",
				},
			},
			&cli.StringFlag{
				Name:  "database-uri",
				Usage: "postgres:// URI or sqlite:<path>; room deadlines stay in memory when unset",
				EnvVars: []string{
					"PAIRLINK_API_DATABASE_URI",
				},
			},
			&cli.StringFlag{
				Name:  "app-env",
				Value: "production",
				Usage: "\"development\" skips CAPTCHA checks",
				EnvVars: []string{
					"PAIRLINK_APP_ENV",
				},
			},
			&cli.StringFlag{
				Name: "turnstile-site-key",
				EnvVars: []string{
					"PAIRLINK_TURNSTILE_SITE_KEY",
				},
			},
			&cli.StringFlag{
				Name: "turnstile-secret",
				EnvVars: []string{
					"PAIRLINK_TURNSTILE_SECRET",
				},
			},
			&cli.StringFlag{
				Name:  "session-secret",
				Usage: "base64 Ed25519 private key signing clearance tokens",
				EnvVars: []string{
					"PAIRLINK_SESSION_SECRET",
				},
			},
			&cli.DurationFlag{
				Name:  "room-lifetime",
				Value: room.DefaultLifetime,
				EnvVars: []string{
					"PAIRLINK_ROOM_LIFETIME",
				},
			},
			&cli.DurationFlag{
				Name:  "hibernate-after",
				Value: room.DefaultHibernateAfter,
				EnvVars: []string{
					"PAIRLINK_HIBERNATE_AFTER",
				},
			},
			&cli.DurationFlag{
				Name:  "reap-interval",
				Value: room.DefaultReapInterval,
				EnvVars: []string{
					"PAIRLINK_REAP_INTERVAL",
				},
			},
			&cli.BoolFlag{
				Name:  "require-sender",
				Value: true,
				Usage: "refuse receivers that join a room nobody is in",
				EnvVars: []string{
					"PAIRLINK_REQUIRE_SENDER",
				},
			},
			&cli.DurationFlag{
				Name:  "passphrase-rate",
				Value: 6 * time.Second,
				Usage: "one passphrase per client per interval once the burst is spent",
				EnvVars: []string{
					"PAIRLINK_PASSPHRASE_RATE",
				},
			},
			&cli.IntFlag{
				Name:  "passphrase-burst",
				Value: 10,
				EnvVars: []string{
					"PAIRLINK_PASSPHRASE_BURST",
				},
			},
			&cli.BoolFlag{
				Name:  "trust-proxy",
				Usage: "take client addresses from X-Forwarded-For and CF-Connecting-IP",
				EnvVars: []string{
					"PAIRLINK_TRUST_PROXY",
				},
			},
			&cli.StringSliceFlag{
				Name: "allowed-origin",
				EnvVars: []string{
					"PAIRLINK_ALLOWED_ORIGINS",
				},
			},
			&cli.StringFlag{
				Name: "wordlist-file",
				EnvVars: []string{
					"PAIRLINK_WORDLIST_FILE",
				},
			},
			&cli.StringFlag{
				Name: "static-dir",
				EnvVars: []string{
					"PAIRLINK_STATIC_DIR",
				},
			},
		},
		Before: func(cctx *cli.Context) (err error) {
			err = setupLogging(cctx.Bool("debug"))
			return
		},
		Action: entrypoint,
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		zap.L().Fatal("unhandled error", zap.Error(err))
	}
}

func setupLogging(debugMode bool) error {
	var cfg zap.Config

	if debugMode {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level.SetLevel(zapcore.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Development = false
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level.SetLevel(zapcore.InfoLevel)
	}

	cfg.OutputPaths = []string{
		"stdout",
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	zap.ReplaceGlobals(logger)

	return nil
}

type settings struct {
	Debug           bool
	ListenAddress   string
	Database        bool
	Development     bool
	RoomLifetime    time.Duration
	HibernateAfter  time.Duration
	ReapInterval    time.Duration
	RequireSender   bool
	PassphraseRate  time.Duration
	PassphraseBurst int
	TrustProxy      bool
	AllowedOrigins  []string
	WordlistFile    string
	StaticDir       string
}

func entrypoint(cctx *cli.Context) (err error) {
	ctx := cctx.Context
	defer func() { _ = zap.L().Sync() }()

	s := settings{
		Debug:           cctx.Bool("debug"),
		ListenAddress:   cctx.String("http-listen-address"),
		Database:        cctx.String("database-uri") != "",
		Development:     cctx.String("app-env") == "development",
		RoomLifetime:    cctx.Duration("room-lifetime"),
		HibernateAfter:  cctx.Duration("hibernate-after"),
		ReapInterval:    cctx.Duration("reap-interval"),
		RequireSender:   cctx.Bool("require-sender"),
		PassphraseRate:  cctx.Duration("passphrase-rate"),
		PassphraseBurst: cctx.Int("passphrase-burst"),
		TrustProxy:      cctx.Bool("trust-proxy"),
		AllowedOrigins:  cctx.StringSlice("allowed-origin"),
		WordlistFile:    cctx.String("wordlist-file"),
		StaticDir:       cctx.String("static-dir"),
	}
	if s.Debug {
		zap.L().Debug("configuration", zap.String("settings", spew.Sdump(s)))
	}

	if !s.Development && cctx.String("turnstile-secret") == "" {
		return errors.New("--turnstile-secret is required outside development")
	}

	codec := passphrase.Default()
	if s.WordlistFile != "" {
		if codec, err = passphrase.LoadFile(s.WordlistFile); err != nil {
			return
		}
	}

	var deadlines room.DeadlineStore = room.NewMemoryDeadlines()
	if s.Database {
		var db *database.DB
		if db, err = database.Open(ctx, cctx.String("database-uri"), s.Debug); err != nil {
			return
		}
		defer func() { _ = db.Close() }()

		if err = db.Migrate(); err != nil {
			return
		}
		deadlines = database.NewDeadlineStore(db)
	}

	policy := room.SenderFirst
	if !s.RequireSender {
		policy = room.AnyOrder
	}

	registry := room.NewRegistry(room.Config{
		Lifetime:       s.RoomLifetime,
		HibernateAfter: s.HibernateAfter,
		Policy:         policy,
		Deadlines:      deadlines,
		Logger:         zap.L().With(zap.String("section", "room")),
	})

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go func() {
		_ = room.NewReaper(registry, s.ReapInterval).Run(reaperCtx)
	}()

	verifier := turnstile.New(cctx.String("turnstile-secret"))
	issuer := clearance.New(cctx.String("session-secret"), clearance.DefaultTTL)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	})
	r.Use(controllers.ClientIP(s.TrustProxy), controllers.SecurityHeaders)

	if s.Debug {
		(&controllers.GoDebugController{}).Register(r)
	}

	var static router.Controller
	if s.StaticDir != "" {
		static = &controllers.StaticController{Dir: s.StaticDir}
	}

	router.Mount(r,
		&controllers.HealthController{},
		&controllers.APIController{
			Registry:    registry,
			Passphrases: codec,
			Limiter: ratelimit.NewKeyed(ratelimit.Config{
				Every: s.PassphraseRate,
				Burst: s.PassphraseBurst,
			}),
			Verifier:    verifier,
			Clearance:   issuer,
			SiteKey:     cctx.String("turnstile-site-key"),
			Development: s.Development,
		},
		&controllers.SignalController{
			Registry:       registry,
			Verifier:       verifier,
			Clearance:      issuer,
			Development:    s.Development,
			AllowedOrigins: s.AllowedOrigins,
		},
		static,
	)

	var accessLog io.WriteCloser = &zapio.Writer{Log: zap.L().With(zap.String("section", "http")), Level: zapcore.InfoLevel}
	defer func() { _ = accessLog.Close() }()

	var handler http.Handler = r
	handler = handlers.CombinedLoggingHandler(accessLog, handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(zap.NewStdLog(zap.L())), handlers.PrintRecoveryStack(s.Debug))(handler)
	if s.TrustProxy {
		handler = handlers.ProxyHeaders(handler)
	}

	srv := &http.Server{
		Addr:              s.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	serverDone := make(chan interface{})
	go func() {
		zap.L().Info("serving requests", zap.String("addr", "http://"+srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("failed to listen for http requests", zap.Error(err))
		}
		close(serverDone)
	}()

	select {
	case <-serverDone:
	case <-cctx.Context.Done():
	}

	zap.L().Info("shutting down")
	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websockets are not tracked by Shutdown, so close them first.
	shutdownErr := multierr.Combine(
		registry.Close(),
		srv.Shutdown(shutdownCtx),
	)
	for _, e := range multierr.Errors(shutdownErr) {
		zap.L().Warn("unclean shutdown", zap.Error(e))
	}
	return
}
