package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagelabs/sage/internal/catalog"
)

var sessionsUser string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions for a user",
	Long: `List sessions recorded in the local catalog, newest first.

Examples:
  sage sessions --user ada`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsUser, "user", "u", "", "User to list sessions for")
	sessionsCmd.MarkFlagRequired("user")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	sessions, err := cat.ListSessions(cmd.Context(), sessionsUser)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tARC\tCREATED")
	for _, s := range sessions {
		arc := "-"
		if s.Meta.ActiveMode != nil {
			arc = string(*s.Meta.ActiveMode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Type, s.Status, arc, s.CreatedAt.Local().Format(time.RFC3339))
	}
	return w.Flush()
}
