package main

import (
	"github.com/Zuo-Peng/ai-session-analyzer/internal/open"
	"github.com/spf13/cobra"
)

func openCmd() *cobra.Command {
	var messageID string

	cmd := &cobra.Command{
		Use:   "open <file>",
		Short: "Open a session file in $EDITOR at a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return open.OpenMessage(a.reader, args[0], messageID)
		},
	}

	cmd.Flags().StringVar(&messageID, "id", "", "Message id to jump to")

	return cmd
}
