package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/brandchat/internal/corpus"
)

var corpusJSON bool

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "List the knowledge documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		docs := corpus.Default().Documents()

		if corpusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tTITLE\tURL")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Source, truncate(d.Title(), 48), d.Metadata.ExternalURL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "\n%d documents\n", len(docs))
		return nil
	},
}

func init() {
	corpusCmd.Flags().BoolVar(&corpusJSON, "json", false, "print documents as JSON")
	rootCmd.AddCommand(corpusCmd)
}
