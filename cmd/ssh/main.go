package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"crude-outlook/internal/app"
	"crude-outlook/internal/config"
	"crude-outlook/internal/tui"
	"crude-outlook/pkg/logger"
	"crude-outlook/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const serviceName = "crude-outlook-ssh"

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initLoggerFunc    = logger.Init
	initTracerFunc    = tracing.InitTracer
	buildAppFunc      = app.Build
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	if err := initLoggerFunc(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	a, err := buildAppFunc(ctx, cfg, tracer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build forecast stack")
	}
	defer a.Close()

	allowed, err := loadAuthorizedKeys(cfg.SSHAuthorizedKeys)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load SSH_AUTHORIZED_KEYS")
	}
	if len(allowed) == 0 {
		log.Warn().Msg("SSH_AUTHORIZED_KEYS not set, accepting any public key")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(publicKeyHandler(allowed)),
		wish.WithMiddleware(
			bubbletea.Middleware(teaHandler(ctx, a)),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SSH server")
	}

	if srv != nil {
		go func() {
			log.Info().Str("addr", addr).Msg("ssh server listening")
			if err := srv.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				log.Error().Err(err).Msg("ssh server stopped")
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down ssh server")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("ssh server shutdown error")
		}
	}

	log.Info().Msg("ssh server exited")
}

// teaHandler gives every connection its own dashboard bound to a session derived from its key.
func teaHandler(ctx context.Context, a *app.App) bubbletea.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		session := sessionFor(s.User(), s.PublicKey())
		model := tui.NewModel(ctx, a.Pipeline, a.Pages, session)
		if pty, _, ok := s.Pty(); ok {
			model.SetSize(pty.Window.Width, pty.Window.Height)
		}
		log.Info().Str("user", s.User()).Str("session", session).Msg("dashboard session opened")
		return model, []tea.ProgramOption{tea.WithAltScreen()}
	}
}
