package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tadoif/config"
	"tadoif/internal/api"
	"tadoif/internal/core"
	"tadoif/internal/drivers/tado"
	"tadoif/internal/ipc"
	"tadoif/internal/logging"
	"tadoif/internal/scheduler"
	"tadoif/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// exitFailure is the status for any error; the shell sees 255
const exitFailure = -1

type options struct {
	proxy      bool
	debug      bool
	period     int
	configPath string
	useEnv     bool
	logLevel   string
	logFormat  string
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit status
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// .env is optional
	_ = godotenv.Load()

	cmd := newRootCommand(ctx, stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "tadoif: %v\n", err)
		return exitFailure
	}
	return 0
}

func newRootCommand(ctx context.Context, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "tadoif",
		Short: "Poll tado° zone state and serve it on D-Bus",
		Long: `tadoif fetches the state of every heating zone of a tado° home.

Without --proxy it prints one table and exits. With --proxy it refreshes the
data every period and answers dump and get_data calls on D-Bus.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(ctx, cmd, opts, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.proxy, "proxy", "p", false, "run as D-Bus proxy, refreshing periodically")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "print the table after every refresh and log at debug level")
	flags.IntVarP(&opts.period, "period", "P", config.MinPeriodSeconds, "refresh period in seconds (at least 60)")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", "", "path to a JSON or YAML configuration file")
	persistent.BoolVar(&opts.useEnv, "env", false, "load configuration from TADOIF_* environment variables")
	persistent.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	persistent.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")

	cmd.AddCommand(newTokenCommand(ctx, opts, stdout))

	return cmd
}

func newTokenCommand(ctx context.Context, opts *options, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored refresh token",
	}

	set := &cobra.Command{
		Use:   "set [refresh-token]",
		Short: "Store the initial refresh token, read from stdin when not given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read token from stdin: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)

			tokens, err := storage.Open(cfg.Token.Backend, cfg.Token.Path)
			if err != nil {
				return err
			}
			defer tokens.Close()

			if err := tokens.Save(ctx, token); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "refresh token stored in %s backend at %s\n", cfg.Token.Backend, cfg.Token.Path)
			return nil
		},
	}

	cmd.AddCommand(set)
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
		Output: stderr,
	})

	tokens, err := storage.Open(cfg.Token.Backend, cfg.Token.Path)
	if err != nil {
		return err
	}
	defer tokens.Close()

	driver := tado.NewDriver(tado.Config{
		ClientID:     cfg.Tado.ClientID,
		TokenURL:     cfg.Tado.TokenURL,
		BaseURL:      cfg.Tado.BaseURL,
		AuthTimeout:  cfg.Tado.AuthTimeout(),
		FetchTimeout: cfg.Tado.FetchTimeout(),
	})

	snapshots := core.NewSnapshotStore()

	var schedOpts []scheduler.Option
	if opts.proxy && opts.debug {
		schedOpts = append(schedOpts, scheduler.WithPublishHook(func(snapshot *core.Snapshot) {
			fmt.Fprint(stdout, core.FormatTable(snapshot, time.Local))
		}))
	}

	sched, err := scheduler.NewScheduler(
		logging.NewTokenStoreLogger(tokens, logger),
		logging.NewAuthenticatorLogger(driver, logger),
		logging.NewHomeFetcherLogger(driver, logger),
		snapshots,
		cfg.Refresh.Period(),
		logger,
		schedOpts...,
	)
	if err != nil {
		return err
	}

	if !opts.proxy {
		snapshot, err := sched.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, core.FormatTable(snapshot, time.Local))
		return nil
	}

	return serve(ctx, cfg, sched, snapshots, tokens, logger)
}

// loadConfig picks the configuration source and applies command line overrides
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error

	switch {
	case opts.configPath != "":
		cfg, err = config.Load(opts.configPath)
	case opts.useEnv:
		cfg, err = config.LoadFromEnv()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("period") {
		cfg.Refresh.PeriodSeconds = opts.period
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve runs the refresh loop, the D-Bus responder and the optional HTTP status API
// until a signal arrives or one of them fails
func serve(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, snapshots *core.SnapshotStore, tokens storage.Storage, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	responder := ipc.NewResponder(snapshots, cfg.Bus.Interface, time.Local, logger)
	busServer := ipc.NewServer(ipc.Config{
		Name:      cfg.Bus.Name,
		Interface: cfg.Bus.Interface,
		Path:      cfg.Bus.Path,
		Bus:       cfg.Bus.Type,
	}, responder, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		if err := busServer.Serve(gctx); err != nil {
			return fmt.Errorf("d-bus: %w", err)
		}
		return nil
	})

	if cfg.HTTP.Listen != "" {
		router := api.NewRouter(api.RouterConfig{
			Snapshots: snapshots,
			Refresh:   sched,
			Tokens:    tokens,
			APIKey:    cfg.HTTP.APIKey,
			Location:  time.Local,
			Logger:    logger,
		})
		httpServer := api.NewServer(cfg.HTTP.Listen, router)

		g.Go(func() error {
			logger.Info("Starting HTTP server", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	logger.Info("Shutdown complete")
	return err
}
