package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/index"
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [root]",
		Short: "Scan a sessions root and index every session for search",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			root := a.cfg.SessionsRoot
			if len(args) == 1 {
				root = args[0]
			}

			db, err := index.OpenDB(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", root)
			stats, err := index.IndexAll(db, root, a.parser, a.logger)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}
}
