package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/karlla1220/meetgrid/publish"
)

var (
	buildSources sourceFlags
	buildOut     string
	buildPublish bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the schedule document",
	Long: `Builds the schedule and writes it as a JSON document holding the sessions,
the grid placements and a summary of what was excluded or flagged.

With --publish the document also goes to the sinks named in the
configuration's publish section (directory, S3 bucket, NATS subject).`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildSources.register(buildCmd)
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "output file, or - for stdout (default: <meeting>.json)")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "publish to the configured sinks")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := buildSources.pipeline()
	if err != nil {
		return err
	}
	res, warnings, err := p.Build(ctx)
	printWarnings(warnings)
	if err != nil {
		return err
	}

	artifact, err := res.Artifact()
	if err != nil {
		return err
	}

	out := buildOut
	if out == "" {
		out = artifact.Name
	}
	if out == "-" {
		if _, err := os.Stdout.Write(artifact.Data); err != nil {
			return err
		}
	} else {
		dir, name := filepath.Split(out)
		if dir == "" {
			dir = "."
		}
		named := artifact
		named.Name = name
		if err := (publish.File{Dir: dir}).Publish(ctx, named); err != nil {
			return err
		}
		s := res.Summary()
		fmt.Fprintf(os.Stderr, "wrote %s: %d sessions, %d excluded, %d unresolved slots\n",
			out, s.Sessions, s.Excluded, s.Unresolved)
	}

	if !buildPublish {
		return nil
	}
	sinks, closeSinks, err := configuredSinks(ctx)
	if err != nil {
		return err
	}
	defer closeSinks()
	if len(sinks) == 0 {
		logger.Warn("--publish given but no sinks are configured")
		return nil
	}
	if err := sinks.Publish(ctx, artifact); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	logger.Info("schedule published", zap.Int("sinks", len(sinks)), zap.String("name", artifact.Name))
	return nil
}

// configuredSinks opens the sinks of the configuration's publish section.
func configuredSinks(ctx context.Context) (publish.Multi, func(), error) {
	var (
		sinks   publish.Multi
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("closing sink", zap.Error(err))
			}
		}
	}

	pc := cfg.Publish
	if pc.Dir != "" {
		sinks = append(sinks, publish.File{Dir: pc.Dir})
	}
	if pc.S3.Bucket != "" {
		s3, err := publish.NewS3(ctx, publish.S3Options{
			Bucket:          pc.S3.Bucket,
			Prefix:          pc.S3.Prefix,
			Region:          pc.S3.Region,
			Endpoint:        pc.S3.Endpoint,
			AccessKeyID:     pc.S3.AccessKeyID,
			SecretAccessKey: pc.S3.SecretAccessKey,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, s3)
	}
	if pc.NATS.URL != "" {
		nc, err := publish.NewNATS(pc.NATS.URL, pc.NATS.Subject)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, nc)
		closers = append(closers, nc.Close)
	}
	return sinks, closeAll, nil
}
