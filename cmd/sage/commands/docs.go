package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagelabs/sage/internal/catalog"
	"github.com/sagelabs/sage/internal/document"
	"github.com/sagelabs/sage/pkg/types"
)

var (
	docsUser   string
	docsFamily string
	docsPrefix string
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Inspect the document store",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents for a user",
	Long: `List documents from the catalog index, optionally filtered by family
or by path prefix.

Examples:
  sage docs list --user ada
  sage docs list --user ada --family domain
  sage docs list --user ada --prefix life-map/`,
	RunE: runDocsList,
}

var docsReadCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a document with its header",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsRead,
}

func init() {
	docsCmd.PersistentFlags().StringVarP(&docsUser, "user", "u", "", "Document owner")
	docsCmd.MarkPersistentFlagRequired("user")

	docsListCmd.Flags().StringVar(&docsFamily, "family", "", "Filter by document family")
	docsListCmd.Flags().StringVar(&docsPrefix, "prefix", "", "Filter by path prefix")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsReadCmd)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	if docsFamily != "" && !types.KnownFamily(types.Family(docsFamily)) {
		return fmt.Errorf("unknown document family: %s", docsFamily)
	}

	if docsPrefix != "" {
		store := document.NewStore(document.NewFileBackend(cfg.DataDir))
		paths, err := store.List(cmd.Context(), docsUser, docsPrefix)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}

	entries, err := cat.ListDocuments(cmd.Context(), docsUser, types.Family(docsFamily))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tTYPE\tVERSION\tSTATUS\tUPDATED")
	for _, e := range entries {
		status := e.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.Path, e.Type, e.Version, status, e.LastUpdated.Local().Format(time.RFC3339))
	}
	return w.Flush()
}

func runDocsRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := document.NewStore(document.NewFileBackend(cfg.DataDir))
	doc, err := store.Read(cmd.Context(), docsUser, args[0])
	if err != nil {
		return err
	}

	raw, err := document.Encode(doc.Header, doc.Body)
	if err != nil {
		return err
	}
	os.Stdout.Write(raw)
	return nil
}
