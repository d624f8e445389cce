package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/goodnews/internal/adapter/fsm"
	otelAdapter "github.com/neomorfeo/goodnews/internal/adapter/otel"
	"github.com/neomorfeo/goodnews/internal/app"
	"github.com/neomorfeo/goodnews/internal/domain"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [family...]",
		Short: "Apply due scheduled transitions once and exit",
		Long: `Runs one scheduler pass over the given families (article, listing,
advertisement), or over all of them when none is named. Safe to run while
the server is up; a pass that finds nothing due changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			families := domain.Families
			if len(args) > 0 {
				families = make([]domain.Family, 0, len(args))
				for _, arg := range args {
					f := domain.Family(arg)
					if !f.Valid() {
						return fmt.Errorf("unknown family %q", arg)
					}
					families = append(families, f)
				}
			}

			cfg, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			providers, err := otelAdapter.Setup(cmd.Context(), otelAdapter.ConfigFromEnv())
			if err != nil {
				return fmt.Errorf("otel: %w", err)
			}
			defer providers.Shutdown(context.WithoutCancel(cmd.Context())) //nolint:errcheck // best effort on exit

			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			sweeper, err := otelAdapter.NewInstrumentedSweeper(
				app.NewSweeper(otelAdapter.NewTracingRepository(repo), fsm.New(), domain.SystemClock{}),
			)
			if err != nil {
				return fmt.Errorf("sweeper: %w", err)
			}

			return sweepFamilies(cmd.Context(), sweeper, families, cmd.OutOrStdout())
		},
	}
}

// sweepFamilies runs one pass per family and prints each count. A failing
// family does not stop the rest; the failures are joined.
func sweepFamilies(ctx context.Context, sweeper otelAdapter.Sweeper, families []domain.Family, out io.Writer) error {
	var errs []error
	for _, f := range families {
		n, err := sweeper.Sweep(ctx, f)
		if err != nil {
			fmt.Fprintf(out, "%s: failed\n", f)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "%s: %d\n", f, n)
	}
	return errors.Join(errs...)
}
