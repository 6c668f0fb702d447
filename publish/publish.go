package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is one rendered document.
type Artifact struct {
	Name        string // file or object name, e.g. "RAN1-124.json"
	ContentType string
	Data        []byte

	MeetingName string
	RunID       string
	Sessions    int
	Unresolved  int
	CreatedAt   time.Time
}

// Sink receives artifacts.
type Sink interface {
	Publish(ctx context.Context, a Artifact) error
}

// Multi publishes to every sink in order and joins their errors. A failing
// sink does not stop the others.
type Multi []Sink

// Publish implements Sink.
func (m Multi) Publish(ctx context.Context, a Artifact) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// File writes artifacts into a directory.
type File struct {
	Dir string
}

// Publish implements Sink. The file is written next to its target and
// renamed into place so readers never see a partial document.
func (f File) Publish(_ context.Context, a Artifact) error {
	if a.Name == "" {
		return errors.New("artifact has no name")
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	target := filepath.Join(f.Dir, filepath.Base(a.Name))
	tmp, err := os.CreateTemp(f.Dir, ".meetgrid-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(a.Data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into %s: %w", target, err)
	}
	return nil
}
