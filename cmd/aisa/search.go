package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/index"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/search"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeRole(role string) string {
	switch role {
	case "user":
		return sColorBlue + role + sColorReset
	case "assistant":
		return sColorGreen + role + sColorReset
	default:
		return role
	}
}

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func tsvField(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func searchCmd() *cobra.Command {
	var role, kind, since string
	var limit int
	var all, noIndex bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed sessions",
		Long: `Search indexed sessions using FTS5. On a terminal this opens an interactive
browser; otherwise output is TSV for fzf integration:
  filePath, messageId, line, updatedAt, role, kind, summary, snippet

Example fzf binding:
  aisa search "$*" | fzf --ansi --delimiter='\t' --with-nth=4.. \
    --bind 'enter:execute(aisa open {1} --id {2})'`,
		Args: cobra.ExactArgs(1),
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

			if !noIndex {
				if _, err := index.IndexAll(db, a.cfg.SessionsRoot, a.parser, a.logger); err != nil {
					a.logger.Warn("auto-index failed", "root", a.cfg.SessionsRoot, "err", err)
				}
			}

			opts := search.Options{
				Role:    role,
				Kind:    kind,
				Since:   since,
				Limit:   limit,
				AllHits: all,
			}

			if term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.RunSearch(db, a.parser, args[0], opts)
			}

			opts.Query = args[0]
			results, err := search.Search(db, opts)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			for _, r := range results {
				// the first two fields stay plain for fzf {1} {2}
				fmt.Printf("%s\t%s\t%d\t%s%s%s\t%s\t%s\t%s\t%s\n",
					r.FilePath,
					r.MessageID,
					r.Line,
					sColorDim, r.UpdatedAt, sColorReset,
					colorizeRole(r.Role),
					r.Kind,
					tsvField(r.Summary),
					colorizeSnippet(tsvField(r.Snippet)),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/assistant)")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by message kind (text/thinking/tool_use/tool_result/command)")
	cmd.Flags().StringVar(&since, "since", "", "Filter sessions updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")
	cmd.Flags().BoolVar(&all, "all", false, "Show every hit instead of the best one per session")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip the index refresh before searching")

	return cmd
}
