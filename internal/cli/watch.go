package cli

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qrt/internal/ingest"
	"qrt/internal/transfer"
)

func createWatchCommand(appCtx *AppContext) *cobra.Command {
	var (
		watchDir  string
		outDir    string
		sessionID string
		noAuto    bool
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory for incoming chunk files",
		Long: "Watches a directory and ingests chunk record files as they appear,\n" +
			"rebuilding each file as soon as its last part arrives.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if watchDir == "" {
				watchDir = appCtx.Cfg.Scan.ChunkDir
			}

			auto := appCtx.Cfg.Scan.AutoReconstruct && !noAuto
			ingestor := appCtx.Service.NewIngestor(sessionID, auto, transfer.RebuildOptions{
				OutputDir: outDir,
			})

			watcher, err := ingest.NewWatcher(ingestor, ingest.Config{
				DebounceDuration: time.Duration(appCtx.Cfg.Scan.DebounceMS) * time.Millisecond,
				Logger:           appCtx.Log,
			})
			if err != nil {
				return err
			}
			defer watcher.Close()

			if err := watcher.Watch(watchDir); err != nil {
				return err
			}

			color.Cyan("Watching %s for chunk files (Ctrl+C to stop)", watchDir)

			<-cmd.Context().Done()
			return nil
		},
	}

	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch")
	watchCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for restored files")
	watchCmd.Flags().StringVarP(&sessionID, "session", "s", "", "persist ingested records to this scan session")
	watchCmd.Flags().BoolVar(&noAuto, "no-auto", false, "do not rebuild automatically on completion")

	return watchCmd
}
