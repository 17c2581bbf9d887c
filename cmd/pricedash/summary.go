package main

import (
	"context"
	"fmt"
	"io"
	"os"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guarzo/pkmpricedash/internal/dashboard"
)

const defaultWidth = 100

func (a *app) summaryCmd() *cobra.Command {
	var state = dashboard.DefaultState()
	var maxRows int
	var noColor bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Fetch prices once and print the summary and card list",
		Example: `  pricedash summary
  pricedash summary --search char --rarity "Rare Holo"
  pricedash summary --mock --rows 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noColor {
				colorize.NoColor = true
			}
			page := a.loadPage(cmd.Context(), state)
			printPage(cmd.OutOrStdout(), page, maxRows, terminalWidth())
			return nil
		},
	}

	cmd.Flags().StringVarP(&state.Search, "search", "s", "", "only show cards whose name contains this text")
	cmd.Flags().StringVarP(&state.Rarity, "rarity", "r", dashboard.AllRarities, "only show cards of this rarity")
	cmd.Flags().IntVarP(&maxRows, "rows", "n", 0, "print at most this many cards (0 for all)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

// loadPage mounts a one-shot view, runs its acquisition and renders state.
func (a *app) loadPage(ctx context.Context, state dashboard.State) dashboard.Page {
	view := dashboard.NewView(a.provider(""), a.log)
	view.Load(ctx)
	return view.Render(state)
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func printPage(w io.Writer, page dashboard.Page, maxRows, width int) {
	title := colorize.New(colorize.Bold)
	stat := colorize.New(colorize.FgCyan)
	price := colorize.New(colorize.FgGreen)
	dim := colorize.New(colorize.Faint)

	title.Fprintln(w, "Pokémon Card Prices")
	fmt.Fprintf(w, "Total: %s | Avg: $%s | Median: $%s | Range: $%s\n",
		stat.Sprint(page.Summary.Total),
		stat.Sprint(page.Summary.Average),
		stat.Sprint(page.Summary.Median),
		stat.Sprint(page.Summary.Range))
	dim.Fprintf(w, "Search: %q | Rarity: %s | Rarities: %v\n\n", page.State.Search, page.State.Rarity, page.RarityOptions)

	nameWidth := width - 40
	if nameWidth < 12 {
		nameWidth = 12
	}

	rows := page.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s $%s\n", nameWidth, truncate(r.Name, nameWidth), price.Sprint(r.Price))
		dim.Fprintf(w, "    Rarity: %s | Set: %s\n", r.Rarity, r.SetName)
	}
	if len(rows) < len(page.Rows) {
		dim.Fprintf(w, "… %d more\n", len(page.Rows)-len(rows))
	}
	if len(page.Rows) == 0 {
		dim.Fprintln(w, "No cards match.")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
