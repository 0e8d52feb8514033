package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errNoStore = errors.New("no session store configured")

func createSessionsCommand(appCtx *AppContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage scan sessions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored scan sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := appCtx.Service.Store()
			if st == nil {
				return errNoStore
			}

			sessions, err := st.Sessions()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions")
				return nil
			}

			for _, s := range sessions {
				records, err := st.Records(s.ID)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s  %d records  %s\n",
					s.ID, s.CreatedAt.Format("2006-01-02 15:04"), len(records), s.Label)
			}
			return nil
		},
	}

	var label string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a scan session",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := appCtx.Service.Store()
			if st == nil {
				return errNoStore
			}

			session, err := st.CreateSession(label)
			if err != nil {
				return err
			}

			color.Green("created session %s", session.ID)
			return nil
		},
	}
	newCmd.Flags().StringVarP(&label, "label", "l", "", "human readable session label")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a scan session and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := appCtx.Service.Store()
			if st == nil {
				return errNoStore
			}

			if err := st.DeleteSession(args[0]); err != nil {
				return err
			}

			color.Green("deleted session %s", args[0])
			return nil
		},
	}

	sessionsCmd.AddCommand(listCmd, newCmd, deleteCmd)

	return sessionsCmd
}
