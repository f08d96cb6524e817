// Command digestcracker recovers 5-letter lowercase passwords from MD5 and
// SHA-256 digests by exhaustive search.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"digestCracker/internal/adapter/db"
	"digestCracker/internal/config"
	"digestCracker/internal/core/hashing"
	"digestCracker/internal/core/service"
	"digestCracker/internal/pkg/logging"
	"digestCracker/internal/pkg/metrics"
	"digestCracker/internal/port"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "digestcracker",
		Short: "Recover short passwords from MD5 and SHA-256 digests.",
		Long: `digestcracker searches every 5-letter lowercase candidate for one whose
digest equals the target. The digest type is detected from its length:
32 hex characters for MD5, 64 for SHA-256.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Configure(cmd.ErrOrStderr(), cfg.Log.Level)
			return nil
		},
	}
	cmd.Version = version

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./digestcracker.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("db-type", "sqlite", `run history store ("sqlite", "mysql" or "none")`)
	flags.String("db-dsn", "./digestcracker.db", "run history connection string")
	a.bind("log.level", flags.Lookup("log-level"))
	a.bind("database.type", flags.Lookup("db-type"))
	a.bind("database.dsn", flags.Lookup("db-dsn"))

	cmd.AddCommand(
		a.newCrackCmd(),
		a.newHashCmd(),
		a.newCandidatesCmd(),
		a.newSelftestCmd(),
		a.newHistoryCmd(),
		a.newServeCmd(),
	)
	return cmd
}

// openRepository opens the configured run history store, or returns nil
// when storage is disabled.
func (a *app) openRepository(ctx context.Context) (port.Repository, error) {
	if a.cfg.Database.Type == "none" {
		return nil, nil
	}
	repo, err := db.NewSQLRepository(ctx, a.cfg.Database.Type, a.cfg.Database.GetDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open run history")
	}
	return repo, nil
}

// newService wires the cracking service from configuration. The returned
// cleanup closes the service and its repository.
func (a *app) newService(ctx context.Context, prom *metrics.Prometheus) (*service.CrackingService, func(), error) {
	repo, err := a.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}

	interval := a.cfg.Metrics.SampleInterval
	if interval <= 0 {
		interval = service.MetricsUpdateInterval
	}
	opts := []service.Option{
		service.WithDefaults(a.cfg.Settings()),
		service.WithCollector(metrics.NewCollector(interval)),
	}
	if prom != nil {
		opts = append(opts, service.WithPrometheus(prom))
	}
	if path := a.cfg.Metrics.ReportPath; path != "" {
		reporter, err := metrics.NewReporter(path)
		if err != nil {
			if repo != nil {
				repo.Close()
			}
			return nil, nil, err
		}
		opts = append(opts, service.WithReporter(reporter))
	}

	svc := service.NewCrackingService(repo, hashing.NewService(), opts...)
	cleanup := func() {
		if err := svc.Close(); err != nil {
			logging.Warnf("closing service: %v", err)
		}
		if repo != nil {
			if err := repo.Close(); err != nil {
				logging.Warnf("closing run history: %v", err)
			}
		}
	}
	return svc, cleanup, nil
}
