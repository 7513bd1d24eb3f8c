package main

import (
	"fmt"
	"os"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/model"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/render"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/tree"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type nodeJSON struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parentId,omitempty"`
	Role      string          `json:"role"`
	Depth     int             `json:"depth"`
	ThreadID  string          `json:"threadId,omitempty"`
	Synthetic bool            `json:"syntheticId,omitempty"`
	Line      int             `json:"line"`
	Metadata  *model.Metadata `json:"metadata,omitempty"`
	Children  []*nodeJSON     `json:"children"`
}

type forestJSON struct {
	Path        string             `json:"path"`
	TotalCount  int                `json:"totalCount"`
	MaxDepth    int                `json:"maxDepth"`
	ThreadCount int                `json:"threadCount"`
	Roots       []*nodeJSON        `json:"roots"`
	Dropped     []tree.DroppedRoot `json:"dropped,omitempty"`
	Unresolved  int                `json:"unresolved"`
	Unreachable int                `json:"unreachable"`
	Duplicates  int                `json:"duplicates"`
	Malformed   int                `json:"malformed"`
}

// toJSON mirrors the forest without recursion. Walk is preorder, so a
// parent is always converted before its children.
func toJSON(path string, f *tree.Forest, malformed int) forestJSON {
	out := forestJSON{
		Path:        path,
		TotalCount:  f.TotalCount,
		MaxDepth:    f.MaxDepth,
		ThreadCount: f.ThreadCount,
		Roots:       []*nodeJSON{},
		Dropped:     f.Dropped,
		Unresolved:  f.Unresolved,
		Unreachable: f.Unreachable,
		Duplicates:  f.Duplicates,
		Malformed:   malformed,
	}
	converted := make(map[*tree.Node]*nodeJSON, f.TotalCount)
	parents := make(map[*tree.Node]*tree.Node, f.TotalCount)
	f.Walk(func(n *tree.Node) bool {
		j := &nodeJSON{
			ID:        n.ID,
			ParentID:  n.ParentID,
			Role:      n.Role,
			Depth:     n.Depth,
			ThreadID:  n.ThreadID,
			Synthetic: n.Synthetic,
			Line:      n.Record.Line,
			Metadata:  n.Metadata,
			Children:  []*nodeJSON{},
		}
		converted[n] = j
		for _, c := range n.Children {
			parents[c] = n
		}
		if parent, ok := parents[n]; ok {
			pj := converted[parent]
			pj.Children = append(pj.Children, j)
		} else {
			out.Roots = append(out.Roots, j)
		}
		return true
	})
	return out
}

func treeCmd() *cobra.Command {
	var asJSON, keepNonUser bool
	var width int

	cmd := &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the conversation forest of a session with per-message metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []tree.Option
			if keepNonUser {
				opts = append(opts, tree.KeepNonUserRoots())
			}
			a, err := loadApp(opts...)
			if err != nil {
				return err
			}

			res, err := a.parser.ParseTree(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(toJSON(res.Path, res.Forest, res.Summary.Malformed))
			}

			fmt.Print(render.Tree(res.Forest, render.Options{
				Header:  res.Path,
				Width:   width,
				NoColor: !term.IsTerminal(int(os.Stdout.Fd())),
			}))
			for _, d := range res.Diagnostics {
				fmt.Fprintf(os.Stderr, "skipped %s\n", d)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	cmd.Flags().BoolVar(&keepNonUser, "keep-non-user-roots", false, "Keep trees whose root is not a user message")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")

	return cmd
}
