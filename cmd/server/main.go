package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
	"github.com/jrsteele09/dashboard-auth/internal/config"
	"github.com/jrsteele09/dashboard-auth/internal/metrics"
	"github.com/jrsteele09/dashboard-auth/notify"
	"github.com/jrsteele09/dashboard-auth/providers"
	"github.com/jrsteele09/dashboard-auth/radar"
	"github.com/jrsteele09/dashboard-auth/server"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	c := config.New()
	setupLogging(c)

	if err := run(c); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func setupLogging(c config.Config) {
	if c.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(c config.Config) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := newStores(c)
	defer stores.Close()

	var sender notify.Sender = notify.NewLogSender()
	if c.GetSmtpHost() != "" {
		sender = notify.NewSMTPSender(c, c.GetAuthCodeTTL())
	}

	registry := providers.FromConfig(c, providers.EmbeddedDeps{Repos: stores.Repos, Sender: sender})
	provider, err := registry.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "auth provider")
	}

	m := metrics.Default()
	orchestrator := auth.NewOrchestrator(provider, cookies.NewTransport(c.GetSecureCookies()),
		auth.WithRadar(radar.NewGate()),
		auth.WithMetrics(m),
		auth.WithTurnstileSiteKey(c.GetTurnstileSiteKey()),
	)

	opts := []server.Option{server.WithMetrics(m, metrics.Handler())}
	if secret := c.GetTurnstileSecretKey(); secret != "" {
		verifier, err := server.NewTurnstileVerifier(secret)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithChallengeVerifier(verifier))
	}
	handler, err := server.New(c, orchestrator, opts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
