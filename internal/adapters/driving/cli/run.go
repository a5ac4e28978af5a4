package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-events/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-events/internal/adapters/driving/webhook"
	"github.com/custodia-labs/sercha-events/internal/logger"
)

// shutdownTimeout bounds deactivation on exit.
const shutdownTimeout = 30 * time.Second

var noWatch bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every configured source until interrupted",
	Long: `Activates every source in the sources file, starts the webhook server
and watches the sources file for changes.

Polling sources tick on their interval; webhook sources receive deliveries
at POST /hooks/<source-key>. Prometheus metrics are served at /metrics.
On SIGINT or SIGTERM every source is deactivated and its provider
subscription revoked.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the sources file on change")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, opts, true)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Section("Activating sources")
	active, err := file.Reconcile(ctx, a.runtime, nil, a.sources)
	if err != nil {
		logger.Warn("%v", err)
	}
	cmd.Printf("Activated %d of %d sources\n", len(active), len(a.sources))

	watcher := file.NewWatcher(opts.sourcesPath, a.runtime, active)
	server := webhook.NewServer(webhook.Config{
		Addr:    opts.listen,
		Runtime: a.runtime,
		Secrets: a.secret(watcher.Current),
		Metrics: a.metrics.Handler(),
	})

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range a.runtime.Errors() {
			logger.Error("%v", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := server.Run(ctx); err != nil {
			errCh <- err
			cancel()
		}
	}()
	if !noWatch {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := watcher.Run(ctx); err != nil {
				errCh <- fmt.Errorf("watching sources: %w", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	workers.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()
	if err := a.close(closeCtx); err != nil {
		logger.Error("shutdown: %v", err)
		errs = append(errs, err)
	}
	wg.Wait()

	cmd.Println("Stopped")
	return errors.Join(errs...)
}
