package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/skilly-client/pkg/client"
	"github.com/Sternrassler/skilly-client/pkg/logging"
	"github.com/Sternrassler/skilly-client/pkg/metrics"
	"github.com/Sternrassler/skilly-client/pkg/navigation"
	"github.com/Sternrassler/skilly-client/pkg/pages"
	"github.com/Sternrassler/skilly-client/pkg/session"
	"github.com/Sternrassler/skilly-client/pkg/sessionstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Environment variables, overridden by the matching flags.
const (
	envAPIURL  = "SKILLY_API_URL"
	envStateDB = "SKILLY_STATE_DB"
	envRedis   = "REDIS_URL"
)

// errReported marks failures the user has already been shown.
var errReported = errors.New("reported")

func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errReported, err)
}

// options are the root persistent flags.
type options struct {
	apiURL      string
	stateDB     string
	redisURL    string
	logLevel    string
	logPretty   bool
	metricsAddr string
	tracing     bool
	timeout     time.Duration
}

// app is what a subcommand works with.
type app struct {
	out      io.Writer
	getenv   func(string) string
	api      *client.Client
	jar      *sessionstore.Jar
	nav      *navigation.History
	notifier *terminalNotifier
	cleanup  []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// sessionLost reports whether the last page navigated to the login page.
func (a *app) sessionLost() bool {
	return a.nav.Current() == session.LoginPath
}

func newRootCmd(out, errOut io.Writer, getenv func(string) string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "skilly",
		Short:         "Terminal client for the Skilly skill exchange",
		Long:          "Browse chats, search people by skill and manage your Skilly profile from the terminal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	logCfg := logging.ConfigFromEnv(getenv)
	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", getenv(envAPIURL), "Skilly API base URL (env "+envAPIURL+")")
	flags.StringVar(&opts.stateDB, "state-db", getenv(envStateDB), "Session database (env "+envStateDB+", default ~/.skilly/state.db)")
	flags.StringVar(&opts.redisURL, "redis-url", getenv(envRedis), "Redis URL for the response cache (env "+envRedis+", optional)")
	flags.StringVar(&opts.logLevel, "log-level", string(logCfg.Level), "Log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.BoolVar(&opts.logPretty, "log-pretty", logCfg.Pretty, "Human readable logs (env LOG_PRETTY)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	flags.BoolVar(&opts.tracing, "tracing", false, "Instrument HTTP requests with OpenTelemetry")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout of a single API request")

	// every subcommand receives the app through its closure
	var a app
	a.out = out
	a.getenv = getenv
	prepare := func(cmd *cobra.Command, args []string) error {
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(opts.logLevel),
			Pretty: opts.logPretty,
			Output: errOut,
		})
		if err := opts.build(cmd.Context(), &a, errOut); err != nil {
			a.close()
			return err
		}
		return nil
	}

	for _, sub := range []*cobra.Command{
		newAuthCmd(&a, pages.ModeSignIn),
		newAuthCmd(&a, pages.ModeSignUp),
		newSignOutCmd(&a),
		newStatusCmd(&a),
		newChatsCmd(&a),
		newSearchCmd(&a),
		newHomeCmd(&a),
		newCategoriesCmd(&a),
		newProfileCmd(&a),
	} {
		attach(sub, prepare, a.close)
		root.AddCommand(sub)
	}
	return root
}

// attach installs the setup hook on cmd and its runnable children and
// releases the app once the command returned, successful or not.
func attach(cmd *cobra.Command, prepare func(*cobra.Command, []string) error, release func()) {
	if run := cmd.RunE; run != nil {
		cmd.PreRunE = prepare
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer release()
			return run(cmd, args)
		}
	}
	for _, child := range cmd.Commands() {
		attach(child, prepare, release)
	}
}

// build opens the session store, the optional Redis cache and the client.
func (o *options) build(ctx context.Context, a *app, errOut io.Writer) error {
	if o.apiURL == "" {
		return fmt.Errorf("no API URL: set --api-url or %s", envAPIURL)
	}

	statePath := o.stateDB
	if statePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory: %w", err)
		}
		statePath = filepath.Join(home, ".skilly", "state.db")
	}
	jar, err := sessionstore.Open(statePath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	a.jar = jar
	a.cleanup = append(a.cleanup, func() { jar.Close() })

	cfg := client.DefaultConfig(o.apiURL, "skilly-cli/"+version)
	cfg.Jar = jar
	cfg.Timeout = o.timeout
	cfg.Tracing = o.tracing

	if o.redisURL != "" {
		redisOpts, err := redis.ParseURL(o.redisURL)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envRedis, err)
		}
		rdb := redis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the cache is optional
			log.Warn().Err(err).Msg("Redis unreachable, running without cache")
			rdb.Close()
		} else {
			cfg.Redis = rdb
			a.cleanup = append(a.cleanup, func() { rdb.Close() })
		}
	}

	api, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	a.api = api
	a.cleanup = append(a.cleanup, func() { api.Close() })

	if o.metricsAddr != "" {
		srv := &http.Server{Addr: o.metricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Str("addr", o.metricsAddr).Msg("Metrics server failed")
			}
		}()
		a.cleanup = append(a.cleanup, func() { srv.Close() })
	}

	a.notifier = newTerminalNotifier(errOut)
	a.nav = navigation.NewHistory("/")
	a.nav.OnNavigate = func(e navigation.Entry) {
		log.Debug().Str("kind", string(e.Kind)).Str("target", e.Target).Msg("Navigated")
	}
	return nil
}
