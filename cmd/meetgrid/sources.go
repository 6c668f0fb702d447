package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/karlla1220/meetgrid"
)

// sourceFlags are the flags shared by the commands that run the pipeline.
type sourceFlags struct {
	primary     string
	details     []string
	meeting     string
	noLLM       bool
	noCache     bool
	concurrency int
	timeout     time.Duration
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.primary, "primary", "p", "", "primary schedule document")
	cmd.Flags().StringSliceVarP(&f.details, "detail", "d", nil, "detail schedule document (repeatable)")
	cmd.Flags().StringVar(&f.meeting, "meeting", "", "meeting name (default: from the primary file name)")
	cmd.Flags().BoolVar(&f.noLLM, "no-llm", false, "structure slots with text rules instead of Gemini")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "ignore the response cache")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "parallel gateway calls (default from config)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-slot gateway timeout (default from config)")
}

// pipeline builds the pipeline the flags and configuration describe. Flag
// sources are added after the configured ones.
func (f *sourceFlags) pipeline() (*meetgrid.Pipeline, error) {
	p := meetgrid.FromConfig(cfg).WithLogger(logger)
	if f.primary != "" {
		p = p.Primary(f.primary)
	}
	for _, d := range f.details {
		p = p.Detail(d)
	}
	if f.primary == "" && len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no primary document: use --primary or list sources in the configuration")
	}
	if f.meeting != "" {
		p = p.MeetingName(f.meeting)
	}
	if f.noLLM {
		p = p.Heuristic()
	}
	if f.noCache {
		p = p.NoCache()
	}
	if f.concurrency > 0 {
		p = p.Concurrency(f.concurrency)
	}
	if f.timeout > 0 {
		p = p.Timeout(f.timeout)
	}
	return p, nil
}

func printWarnings(warnings []meetgrid.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
