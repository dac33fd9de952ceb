// Command authkitd serves the authkit HTTP API backed by SQLite and Redis.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	authkit "github.com/authkit-dev/authkit"
	"github.com/authkit-dev/authkit/httpapi"
	"github.com/authkit-dev/authkit/mail"
	promexport "github.com/authkit-dev/authkit/metrics/export/prometheus"
	"github.com/authkit-dev/authkit/store/sqlite"
)

type config struct {
	Addr       string `env:"AUTHKIT_ADDR" envDefault:":8080"`
	Production bool   `env:"AUTHKIT_PRODUCTION" envDefault:"false"`

	DBPath    string `env:"AUTHKIT_DB_PATH" envDefault:"data/authkit.db"`
	RedisAddr string `env:"AUTHKIT_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"AUTHKIT_REDIS_PASSWORD"`
	RedisDB   int    `env:"AUTHKIT_REDIS_DB" envDefault:"0"`

	// Signing keys have no defaults: the process refuses to start without
	// them.
	AccessKey  string `env:"AUTHKIT_ACCESS_KEY,required"`
	RefreshKey string `env:"AUTHKIT_REFRESH_KEY,required"`
	Issuer     string `env:"AUTHKIT_ISSUER" envDefault:"authkit"`

	AccessTTL  time.Duration `env:"AUTHKIT_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"AUTHKIT_REFRESH_TTL" envDefault:"168h"`

	LoginThrottle bool `env:"AUTHKIT_LOGIN_THROTTLE" envDefault:"true"`

	SMTPHost string `env:"AUTHKIT_SMTP_HOST"`
	SMTPPort int    `env:"AUTHKIT_SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"AUTHKIT_SMTP_USERNAME"`
	SMTPPass string `env:"AUTHKIT_SMTP_PASSWORD"`
	SMTPFrom string `env:"AUTHKIT_SMTP_FROM"`
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("authkitd: %v", err)
	}
}

func run() error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer users.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	engineCfg := authkit.DefaultConfig()
	engineCfg.JWT.AccessPrivateKey = []byte(cfg.AccessKey)
	engineCfg.JWT.RefreshPrivateKey = []byte(cfg.RefreshKey)
	engineCfg.JWT.AccessTTL = cfg.AccessTTL
	engineCfg.JWT.RefreshTTL = cfg.RefreshTTL
	engineCfg.JWT.Issuer = cfg.Issuer
	engineCfg.Security.EnableLoginThrottle = cfg.LoginThrottle

	var mailer authkit.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	} else {
		log.Print("no SMTP host configured, codes go to the process log")
		mailer = mail.LogMailer{}
	}

	engine, err := authkit.New().
		WithConfig(engineCfg).
		WithRedis(redisClient).
		WithUserStore(users).
		WithMailer(mailer).
		WithAuditSink(authkit.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	api := httpapi.NewServer(engine, httpapi.Config{SecureCookies: cfg.Production})

	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("GET /metrics", promexport.NewExporter(engine).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Print("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return nil
}
