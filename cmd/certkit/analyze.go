package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/certkit/scanner"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		templatePath string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Scan a template for placeholders and their styles",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(templatePath)
			if err != nil {
				return err
			}
			phs, err := scanner.ScanTemplate(data)
			if err != nil {
				return err
			}

			if asJSON {
				type entry struct {
					Name   string  `json:"name"`
					Page   int     `json:"page"`
					X      float64 `json:"x"`
					Y      float64 `json:"y"`
					Family string  `json:"font_family"`
					SizePt float64 `json:"font_size_pt"`
					Status string  `json:"extraction_status"`
				}
				out := make([]entry, len(phs))
				for i, p := range phs {
					out[i] = entry{
						Name:   p.Name,
						Page:   p.PageIndex,
						X:      p.BBox.X0,
						Y:      p.BBox.Y0,
						Family: p.Style.Family,
						SizePt: p.Style.SizePt,
						Status: p.Status.String(),
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if len(phs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no placeholders found; rendering will reduce to symbol stamping")
				return nil
			}
			for _, p := range phs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s page %d  %s %.1fpt  (%.1f, %.1f)  [%s]\n",
					p.Token(), p.PageIndex+1, p.Style.Family, p.Style.SizePt,
					p.BBox.X0, p.BBox.Y0, p.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "template PDF path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	cmd.MarkFlagRequired("template")
	return cmd
}
