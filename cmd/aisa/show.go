package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/jsonl"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/metadata"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/render"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func showCmd() *cobra.Command {
	var offset int64
	var length, line, width int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Re-read one record by byte span and print it with its metadata",
		Long: `Re-read a single record using the offset and length reported by
'aisa transcript --json'. Compressed sessions cannot be read this way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			rec, err := a.reader.ParseAt(args[0], jsonl.Span{Offset: offset, Length: length, Line: line})
			if err != nil {
				return err
			}

			p := rec.Payload
			parentID, _ := p.ParentID()
			node := &tree.Node{ID: p.ID(), ParentID: parentID, Role: p.Role(), Record: rec}
			md := metadata.New(metadata.WithLogger(a.logger)).ExtractNode(node)

			if asJSON {
				return writeJSON(struct {
					Line     int             `json:"line"`
					Offset   int64           `json:"offset"`
					Length   int             `json:"length"`
					Record   json.RawMessage `json:"record"`
					Metadata model.Metadata  `json:"metadata"`
				}{rec.Line, rec.Offset, rec.Length, p.Raw, md})
			}

			fmt.Print(render.Record(rec, &md, render.Options{
				Width:   width,
				NoColor: !term.IsTerminal(int(os.Stdout.Fd())),
			}))
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "Byte offset of the record")
	cmd.Flags().IntVar(&length, "length", 0, "Byte length of the record, newline included")
	cmd.Flags().IntVar(&line, "line", 0, "Line number, for messages only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.MarkFlagRequired("length")

	return cmd
}
