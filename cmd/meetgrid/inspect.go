package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/karlla1220/meetgrid"
	"github.com/karlla1220/meetgrid/config"
	"github.com/karlla1220/meetgrid/model"
)

var inspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <document>",
	Short: "Show the cell map extracted from one document",
	Long: `Extracts one document and prints its blocks, its rooms per day and every
non-empty (day, room, block) cell. Use it to check how a new document's
tables are read before building with it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print the cells as JSON")
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func runInspect(cmd *cobra.Command, args []string) error {
	only := *cfg
	only.Sources = nil
	ex, warnings, err := meetgrid.FromConfig(&only).
		WithLogger(logger).
		Source(config.SourceConfig{Path: args[0]}).
		Extract()
	printWarnings(warnings)
	if err != nil {
		return err
	}
	res := ex[0].Result

	if inspectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			SourceID string                 `json:"source_id"`
			Blocks   []model.TimeBlock      `json:"blocks"`
			Rooms    map[model.Day][]string `json:"rooms"`
			Breaks   []model.NamedInterval  `json:"breaks,omitempty"`
			Cells    []model.RawCell        `json:"cells"`
		}{res.SourceID, res.Blocks, res.Rooms, res.Breaks, res.RawCells()})
	}

	fmt.Println(headingStyle.Render("Blocks"))
	for _, b := range res.Blocks {
		fmt.Printf("  TB%d  %s\n", b.Index, b.Interval())
	}
	for _, br := range res.Breaks {
		fmt.Printf("  %s  %s\n", dimStyle.Render("break"), br.Name+" "+br.Interval().String())
	}

	for _, d := range res.Days() {
		fmt.Println()
		fmt.Println(headingStyle.Render(d.String()) + "  " + dimStyle.Render(strings.Join(res.Rooms[d], " | ")))
		for _, rc := range res.RawCells() {
			if rc.Day != d {
				continue
			}
			text := strings.ReplaceAll(rc.Text, "\n", " / ")
			fmt.Printf("  TB%d %-16s %s\n", rc.Block, rc.Room, text)
		}
	}
	return nil
}
