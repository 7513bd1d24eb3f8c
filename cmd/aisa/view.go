package main

import (
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tui"
	"github.com/spf13/cobra"
)

func viewCmd() *cobra.Command {
	var levelFlag string

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Browse one session interactively",
		Long: `Open a two-pane browser over one session. Type to filter messages,
Tab cycles the view level, Enter copies the selected message id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			level := a.cfg.DefaultLevel
			if levelFlag != "" {
				if level, err = transcript.ParseLevel(levelFlag); err != nil {
					return err
				}
			}
			return tui.RunView(a.parser, args[0], level)
		},
	}

	cmd.Flags().StringVar(&levelFlag, "level", "", "Initial view level: full, conversation or qa")

	return cmd
}
