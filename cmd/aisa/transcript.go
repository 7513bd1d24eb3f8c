package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/render"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func transcriptCmd() *cobra.Command {
	var levelFlag string
	var asJSON bool
	var width int

	cmd := &cobra.Command{
		Use:   "transcript <file>",
		Short: "Print a session as a flat transcript at a view level",
		Long: `Print a session as a flat transcript.

Levels:
  full          every dialogue message
  conversation  drops reasoning, tool calls and tool results
  qa            question/answer pairs over the conversation level`,
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

			tr, err := a.parser.ParseTranscript(args[0], level)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(struct {
					Path     string               `json:"path"`
					Level    transcript.Level     `json:"level"`
					Messages []transcript.Message `json:"messages"`
					Pairs    []transcript.QAPair  `json:"pairs,omitempty"`
					Stats    any                  `json:"stats"`
				}{tr.Path, tr.Level, tr.Messages, tr.Pairs, tr.Stats})
			}

			opts := render.Options{
				Header:  fmt.Sprintf("%s [%s]", tr.Path, tr.Level),
				Width:   width,
				NoColor: !term.IsTerminal(int(os.Stdout.Fd())),
			}
			if level == transcript.QAPairs {
				fmt.Print(render.Pairs(tr.Pairs, opts))
			} else {
				out, _ := render.Transcript(tr.Messages, opts)
				fmt.Print(out)
			}
			fmt.Fprintf(os.Stderr, "%s\n", tr.Stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&levelFlag, "level", "", "View level: full, conversation or qa (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")

	return cmd
}
