package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/render"
)

var (
	previewSources sourceFlags
	previewFrom    string
	previewDays    []string
	previewWidth   int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Draw the schedule grid in the terminal",
	Long: `Draws each day's grid with one column per room. The schedule is built from
the given documents, or read from a document written by "meetgrid build"
with --from.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewSources.register(previewCmd)
	previewCmd.Flags().StringVar(&previewFrom, "from", "", "schedule document written by build")
	previewCmd.Flags().StringSliceVar(&previewDays, "day", nil, "days to draw (default: all)")
	previewCmd.Flags().IntVar(&previewWidth, "width", render.DefaultColumnWidth, "room column width")
}

func runPreview(cmd *cobra.Command, args []string) error {
	opts := render.PreviewOptions{ColumnWidth: previewWidth}
	for _, name := range previewDays {
		d, ok := model.ParseDay(name)
		if !ok {
			return fmt.Errorf("unknown day %q", name)
		}
		opts.Days = append(opts.Days, d)
	}

	var doc render.Document
	if previewFrom != "" {
		f, err := os.Open(previewFrom)
		if err != nil {
			return err
		}
		defer f.Close()
		decoded, err := render.Decode(f)
		if err != nil {
			return err
		}
		doc = *decoded
	} else {
		p, err := previewSources.pipeline()
		if err != nil {
			return err
		}
		res, warnings, err := p.Build(context.Background())
		printWarnings(warnings)
		if err != nil {
			return err
		}
		doc = res.Document()
	}
	return render.Preview(os.Stdout, doc.Schedule, doc.Grid, opts)
}
