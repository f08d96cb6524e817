package main

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"digestCracker/internal/core/algorithm"
	"digestCracker/internal/core/domain"
	"digestCracker/internal/core/hashing"
	"digestCracker/internal/pkg/logging"
	"digestCracker/internal/pkg/metrics"
	"digestCracker/internal/platform/web"
	"digestCracker/internal/port"
	"digestCracker/internal/utils/random"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func (a *app) bindSearchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("mode", string(domain.ModeSequential), `search mode ("sequential" or "parallel")`)
	flags.Int("workers", 0, "parallel workers (default: number of CPUs)")
	flags.String("policy", string(domain.PolicyRunToCompletion), "parallel completion policy (RUN_TO_COMPLETION or EAGER_CANCEL)")
	flags.String("alphabet", domain.CharsetLower, "candidate alphabet in ascending byte order")
	flags.Int("length", domain.DefaultPasswordLength, "candidate length")

	// flags are bound when the command runs so that sibling commands
	// sharing a key do not overwrite each other's binding
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		a.bind("search.mode", flags.Lookup("mode"))
		a.bind("search.workers", flags.Lookup("workers"))
		a.bind("search.policy", flags.Lookup("policy"))
		a.bind("search.alphabet", flags.Lookup("alphabet"))
		a.bind("search.length", flags.Lookup("length"))
	}
}

// reload decodes the configuration again once PreRun has bound the
// command's own flags.
func (a *app) reload() error {
	if err := a.v.Unmarshal(a.cfg); err != nil {
		return errors.Wrap(err, "decode config")
	}
	return a.cfg.Validate()
}

func (a *app) settings() (domain.CrackingSettings, error) {
	if err := a.reload(); err != nil {
		return domain.CrackingSettings{}, err
	}
	return a.cfg.Settings(), nil
}

func reportLine(r *domain.CrackResult) string {
	if r.Found {
		return fmt.Sprintf("found password '%s' for hash %s in %.2f seconds", r.Password, r.Hash, r.Seconds)
	}
	return fmt.Sprintf("password for hash %s not found (%d candidates in %.2f seconds)", r.Hash, r.AttemptsUsed, r.Seconds)
}

func (a *app) newCrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crack <digest>...",
		Short: "Search for the password behind one or more digests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings()
			if err != nil {
				return err
			}
			svc, cleanup, err := a.newService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, digest := range args {
				result, err := svc.Crack(cmd.Context(), digest, settings)
				if err != nil {
					return errors.Wrapf(err, "crack %s", digest)
				}
				fmt.Fprintln(cmd.OutOrStdout(), reportLine(result))
			}
			return nil
		},
	}
	a.bindSearchFlags(cmd)
	return cmd
}

func (a *app) newHashCmd() *cobra.Command {
	var algo string
	cmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the hex digest of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashType, err := parseAlgo(algo)
			if err != nil {
				return err
			}
			digest, err := hashing.Compute(args[0], hashType)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
	cmd.Flags().StringVar(&algo, "algo", "md5", `digest algorithm ("md5" or "sha256")`)
	return cmd
}

func parseAlgo(s string) (domain.HashType, error) {
	switch s {
	case "md5", "MD5":
		return domain.HashMD5, nil
	case "sha256", "SHA256", "sha-256":
		return domain.HashSHA256, nil
	}
	return "", errors.Wrapf(domain.ErrUnsupportedHash, "algorithm %q", s)
}

func (a *app) newCandidatesCmd() *cobra.Command {
	var from, limit int64
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Print candidates in search order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings()
			if err != nil {
				return err
			}

			gen := algorithm.NewBruteForce()
			gen.SetSettings(settings)
			gen.SetRange(from, limit)
			defer gen.Stop()

			passwords, errs := gen.Start(cmd.Context())
			out := cmd.OutOrStdout()
			for p := range passwords {
				if _, err := fmt.Fprintln(out, p); err != nil {
					return err
				}
			}
			if err := <-errs; err != nil {
				return err
			}
			return cmd.Context().Err()
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "position of the first candidate")
	cmd.Flags().Int64Var(&limit, "limit", 10, "number of candidates to print (0 for all)")
	a.bindSearchFlags(cmd)
	return cmd
}

func (a *app) newSelftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Hash a random candidate with each algorithm and crack it back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings()
			if err != nil {
				return err
			}
			space, err := algorithm.NewSpace(settings.CharacterSet, settings.Length)
			if err != nil {
				return err
			}
			svc, cleanup, err := a.newService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer cleanup()

			hasher := hashing.NewService()
			for _, hashType := range []domain.HashType{domain.HashMD5, domain.HashSHA256} {
				password, err := random.Candidate(space)
				if err != nil {
					return err
				}
				digest, err := hasher.Generate(password, hashType)
				if err != nil {
					return err
				}

				result, err := svc.Crack(cmd.Context(), digest, settings)
				if err != nil {
					return err
				}
				if !result.Found || !hasher.Verify(result.Password, digest, hashType) {
					return errors.Errorf("%s selftest failed: hashed %q, recovered %q", hashType, password, result.Password)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s ok: %s\n", hashType, reportLine(result))
			}
			return nil
		},
	}
	a.bindSearchFlags(cmd)
	return cmd
}

func (a *app) newHistoryCmd() *cobra.Command {
	var filter port.JobFilter
	var status, hashType, deleteID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished runs from the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			if repo == nil {
				return errors.New("run history is disabled (database.type is none)")
			}
			defer repo.Close()

			if deleteID != "" {
				if err := repo.DeleteJob(cmd.Context(), deleteID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", deleteID)
				return nil
			}

			filter.Status = domain.JobStatus(status)
			filter.HashType = domain.HashType(hashType)
			jobs, err := repo.ListJobs(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tTYPE\tMODE\tWORKERS\tSTATUS\tPASSWORD\tATTEMPTS\tSECONDS")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%d\t%.2f\n",
					j.ID,
					j.StartTime.Format(time.DateTime),
					j.HashType,
					j.Settings.Mode,
					j.Settings.Threads,
					j.Status,
					j.FoundPassword,
					j.AttemptCount,
					j.EndTime.Sub(j.StartTime).Seconds(),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only runs with this status")
	cmd.Flags().StringVar(&hashType, "hash-type", "", "only runs of this hash type (MD5 or SHA256)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of runs")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "runs to skip")
	cmd.Flags().StringVar(&deleteID, "delete", "", "delete the run with this id instead of listing")
	return cmd
}

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.reload(); err != nil {
				return err
			}
			prom := metrics.NewPrometheus()
			svc, cleanup, err := a.newService(cmd.Context(), prom)
			if err != nil {
				return err
			}
			defer cleanup()

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              a.cfg.HTTP.Addr,
				Handler:           web.NewEngine(web.NewWebHandler(svc), prom.Handler()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logging.Infof("listening on %s", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return errors.Wrap(err, "serve")
				}
				return nil
			case <-cmd.Context().Done():
			}

			logging.Infof("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return errors.Wrap(srv.Shutdown(ctx), "shutdown")
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		a.bind("http.addr", cmd.Flags().Lookup("addr"))
	}
	return cmd
}
