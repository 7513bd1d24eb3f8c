package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/index"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/search"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	var filterText, since string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed sessions sorted by update time",
		Long:  `List indexed sessions newest first. --filter matches the summary or file path.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			db, err := index.OpenDB(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := index.IndexAll(db, a.cfg.SessionsRoot, a.parser, a.logger); err != nil {
				a.logger.Warn("auto-index failed", "root", a.cfg.SessionsRoot, "err", err)
			}

			results, err := search.ListAll(db, search.Options{
				Query: filterText,
				Since: since,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			if asJSON {
				type row struct {
					Path      string `json:"path"`
					UpdatedAt string `json:"updatedAt"`
					Summary   string `json:"summary"`
					Messages  string `json:"messages"`
				}
				rows := []row{}
				for _, r := range results {
					rows = append(rows, row{r.FilePath, r.UpdatedAt, r.Summary, r.Snippet})
				}
				return writeJSON(rows)
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No sessions indexed.")
				return nil
			}
			for _, r := range results {
				fmt.Printf("%s\t%s%s%s\t%s\t%s\n",
					r.FilePath,
					sColorDim, r.UpdatedAt, sColorReset,
					r.Snippet,
					tsvField(r.Summary),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filterText, "filter", "", "Only sessions whose summary or path contains this text")
	cmd.Flags().StringVar(&since, "since", "", "Filter sessions updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max results (0 = no limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	return cmd
}
