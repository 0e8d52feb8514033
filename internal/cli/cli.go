package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "qrt",
	Short:         "Move files across an air gap as optical code chunks",
	Long:          "qrt splits files into self-describing chunk records sized for optical codes\nand reassembles them on the other side, with optional password encryption.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// AttachCommand adds a command to the root command.
func AttachCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Run wires every command to the app context and executes the root command
// once with the given arguments.
func Run(ctx context.Context, args []string, appCtx *AppContext) error {
	AttachCommand(createGenerateCommand(appCtx))
	AttachCommand(createRebuildCommand(appCtx))
	AttachCommand(createVerifyCommand(appCtx))
	AttachCommand(createWatchCommand(appCtx))
	AttachCommand(createSessionsCommand(appCtx))

	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}
