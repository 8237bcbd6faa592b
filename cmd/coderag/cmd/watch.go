package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/watch"
)

var watchDebounceMs int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously reindex the current project as files change",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce-ms", 0, "override the configured collection delay in milliseconds (0: use config/defaults)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	dispatcher := &watch.PipelineDispatcher{
		Indexer: a.indexer,
		Project: a.proj,
		Store:   a.store,
		Chunk:   a.chunk,
		Embed:   a.embed,
		Options: a.indexOpts,
	}

	wcfg := a.cfg.Get().Watch
	collectionDelay := time.Duration(wcfg.CollectionDelayMs) * time.Millisecond
	if watchDebounceMs > 0 {
		collectionDelay = time.Duration(watchDebounceMs) * time.Millisecond
	}
	batch := watch.NewBatchDetector(wcfg.MassChangeThreshold, wcfg.MassChangeRate, collectionDelay)

	reconciler, err := watch.NewReconcilerWithBatch(a.proj.Root, dispatcher, a.logger, watch.ProjectIgnore(a.proj), batch)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if err := reconciler.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Printf("watching %s (ctrl-c to stop)\n", a.proj.Root)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	return reconciler.Stop()
}
