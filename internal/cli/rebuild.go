package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qrt/internal/transfer"
)

func createRebuildCommand(appCtx *AppContext) *cobra.Command {
	var (
		chunkDir  string
		sessionID string
		outDir    string
		outName   string
		overwrite bool
	)

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Reassemble files from collected chunk records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(appCtx, rebuildParams{
				chunkDir:  chunkDir,
				sessionID: sessionID,
				outDir:    outDir,
				outName:   outName,
				overwrite: overwrite,
			})
		},
	}

	rebuildCmd.Flags().StringVarP(&chunkDir, "dir", "d", "", "directory with chunk record files")
	rebuildCmd.Flags().StringVarP(&sessionID, "session", "s", "", "scan session to pull records from")
	rebuildCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for restored files")
	rebuildCmd.Flags().StringVarP(&outName, "name", "n", "", "override the restored filename (single file only)")
	rebuildCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace existing output files")

	return rebuildCmd
}

func createVerifyCommand(appCtx *AppContext) *cobra.Command {
	var (
		chunkDir  string
		sessionID string
	)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate chunk records without writing output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebuild(appCtx, rebuildParams{
				chunkDir:   chunkDir,
				sessionID:  sessionID,
				verifyOnly: true,
			})
		},
	}

	verifyCmd.Flags().StringVarP(&chunkDir, "dir", "d", "", "directory with chunk record files")
	verifyCmd.Flags().StringVarP(&sessionID, "session", "s", "", "scan session to pull records from")

	return verifyCmd
}

type rebuildParams struct {
	chunkDir   string
	sessionID  string
	outDir     string
	outName    string
	overwrite  bool
	verifyOnly bool
}

func runRebuild(appCtx *AppContext, p rebuildParams) error {
	if p.chunkDir == "" && p.sessionID == "" {
		p.chunkDir = appCtx.Cfg.Scan.ChunkDir
	}

	batch, err := appCtx.Service.CollectRecords(transfer.CollectOptions{
		ChunkDir:  p.chunkDir,
		SessionID: p.sessionID,
	})
	if err != nil {
		return err
	}

	var password string
	if batch.Encrypted() {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	summary, err := appCtx.Service.RebuildBatch(batch, transfer.RebuildOptions{
		OutputDir:  p.outDir,
		OutputName: p.outName,
		Password:   password,
		Overwrite:  p.overwrite,
		VerifyOnly: p.verifyOnly,
	})
	if err != nil {
		return err
	}

	for _, res := range summary.Results {
		if p.verifyOnly {
			color.Green("OK %s (%d bytes, %d parts verified)", res.Filename, res.Bytes, batch.Set(res.Filename).Total())
		} else {
			color.Green("Restored %s -> %s (%d bytes)", res.Filename, res.OutputPath, res.Bytes)
		}
	}

	for name, ferr := range summary.Failures {
		color.Red("FAILED %s: %v", name, ferr)
	}

	if summary.Aborted {
		color.Red("run aborted: the password failed and would fail the remaining files")
	}

	if summary.Failed() {
		return fmt.Errorf("%d of %d files failed", len(summary.Failures), batch.Len())
	}

	return nil
}
