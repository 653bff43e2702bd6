package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crude-outlook/internal/app"
	"crude-outlook/internal/config"
	"crude-outlook/pkg/logger"
	"crude-outlook/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "crudectl"

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initLoggerFunc = logger.Init
	initTracerFunc = tracing.InitTracer
	buildAppFunc   = app.Build
	runProgramFunc = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
	exitFunc = os.Exit
	osArgs   = os.Args
)

func main() {
	if err := execute(osArgs[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("crudectl failed")
		exitFunc(1)
	}
}

// cli carries the state shared by every subcommand once the stack is built.
type cli struct {
	out     io.Writer
	session string
	jsonOut bool

	cfg *config.Config
	app *app.App
	tp  *sdktrace.TracerProvider
}

func execute(args []string, out io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{out: out}
	defer c.close()

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "crudectl",
		Short:             "Brent crude series, index comparison and forecasts from the terminal",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVar(&c.session, "session", "cli", "cache session to read and populate")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		c.pagesCmd(),
		c.forecastCmd(),
		c.seriesCmd(),
		c.indicesCmd(),
		c.refreshCmd(),
		c.syncCmd(),
		c.runsCmd(),
		c.dashboardCmd(),
	)
	return root
}

// setup builds the stack before any subcommand runs. Logs go to stderr so stdout stays parseable.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	_ = loadEnvFunc()
	c.cfg = loadConfigFunc()
	if err := initLoggerFunc(logger.Config{Level: c.cfg.LogLevel, Format: c.cfg.LogFormat, Output: "stderr"}); err != nil {
		return err
	}

	tp, tracer, err := initTracerFunc(cmd.Context(), serviceName)
	if err != nil {
		return err
	}
	c.tp = tp

	a, err := buildAppFunc(cmd.Context(), c.cfg, tracer)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
	if c.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.tp.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("error shutting down tracer provider")
		}
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
