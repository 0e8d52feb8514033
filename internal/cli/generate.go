package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qrt/internal/transfer"
)

func createGenerateCommand(appCtx *AppContext) *cobra.Command {
	var (
		outDir  string
		encrypt bool
		render  bool
		force   bool
	)

	generateCmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Split a file into chunk record files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if encrypt {
				pw, err := promptNewPassword()
				if err != nil {
					return err
				}
				password = pw
			}

			opts := transfer.GenerateOptions{
				OutputDir:     outDir,
				Encrypt:       encrypt,
				Password:      password,
				Force:         force,
				RenderSymbols: render,
			}

			res, err := appCtx.Service.GenerateFile(args[0], opts)

			var capErr *transfer.CapacityError
			if errors.As(err, &capErr) {
				question := fmt.Sprintf("This produces %d chunks (threshold %d). Continue?",
					capErr.Parts, capErr.Limit)
				if !confirm(question) {
					return errors.New("aborted")
				}
				opts.Force = true
				res, err = appCtx.Service.GenerateFile(args[0], opts)
			}
			if err != nil {
				return err
			}

			color.Green("Generated %d chunk files for %s", res.Parts, res.Filename)
			fmt.Printf("  file hash: %s\n", res.FileHash)
			if res.Encrypted {
				color.Yellow("  content is encrypted")
			}
			if len(res.SymbolFiles) > 0 {
				fmt.Printf("  rendered %d symbol images\n", len(res.SymbolFiles))
			}

			return nil
		},
	}

	generateCmd.Flags().StringVarP(&outDir, "out", "o", "chunks", "output directory for chunk files")
	generateCmd.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "encrypt chunk bodies with a password")
	generateCmd.Flags().BoolVar(&render, "render", false, "also render one PNG symbol per chunk")
	generateCmd.Flags().BoolVarP(&force, "force", "f", false, "skip the chunk count confirmation")

	return generateCmd
}
