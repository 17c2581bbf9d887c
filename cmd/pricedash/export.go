package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/guarzo/pkmpricedash/internal/dashboard"
	"github.com/guarzo/pkmpricedash/internal/report"
)

func (a *app) exportCmd() *cobra.Command {
	var state = dashboard.DefaultState()
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch prices once and write the filtered card list as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			page := a.loadPage(cmd.Context(), state)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if err := report.WriteCSV(w, page); err != nil {
				return fmt.Errorf("export csv: %w", err)
			}
			a.log.WithComponent("export").Infof("exported %d cards", len(page.Rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&state.Search, "search", "s", "", "only export cards whose name contains this text")
	cmd.Flags().StringVarP(&state.Rarity, "rarity", "r", dashboard.AllRarities, "only export cards of this rarity")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
