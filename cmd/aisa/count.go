package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func countCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "count <file>...",
		Short: "Validate session files line by line and print counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			type row struct {
				Path        string `json:"path"`
				Lines       int    `json:"lines"`
				Records     int    `json:"records"`
				Malformed   int    `json:"malformed"`
				Blank       int    `json:"blank"`
				Bytes       int64  `json:"bytes"`
				PartialTail bool   `json:"partialTail,omitempty"`
			}
			var rows []row
			for _, path := range args {
				sum, err := a.reader.Count(path)
				if err != nil {
					return err
				}
				rows = append(rows, row{path, sum.Lines, sum.Records, sum.Malformed, sum.Blank, sum.Bytes, sum.PartialTail})
			}

			if asJSON {
				return writeJSON(rows)
			}
			for _, r := range rows {
				tail := ""
				if r.PartialTail {
					tail = " partial_tail"
				}
				fmt.Printf("%s\tlines=%d records=%d malformed=%d blank=%d bytes=%d%s\n",
					r.Path, r.Lines, r.Records, r.Malformed, r.Blank, r.Bytes, tail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	return cmd
}
