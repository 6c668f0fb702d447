package meetgrid

import (
	"time"

	"go.uber.org/zap"

	"github.com/karlla1220/meetgrid/config"
	"github.com/karlla1220/meetgrid/gateway"
	"github.com/karlla1220/meetgrid/model"
)

// sourceSpec is one document of a run, given by path or already decoded.
type sourceSpec struct {
	id    string
	path  string
	doc   *model.Document
	role  model.Role
	hints map[string]string
}

// buildOptions holds the pipeline configuration.
type buildOptions struct {
	cfg     config.Config
	sources []sourceSpec

	// gateway replaces the configured provider when set.
	gateway gateway.Gateway
	// store replaces the configured cache when set.
	store   gateway.Store
	noCache bool

	logger *zap.Logger
	now    func() time.Time
	runID  string
}

// defaultOptions returns the standard meeting-day options.
func defaultOptions() buildOptions {
	return buildOptions{
		cfg:    *config.DefaultConfig(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
}

// clone creates a copy whose slices and maps can be changed without
// affecting o.
func (o buildOptions) clone() buildOptions {
	newOpts := o
	newOpts.sources = make([]sourceSpec, len(o.sources))
	for i, s := range o.sources {
		s.hints = copyMap(s.hints)
		newOpts.sources[i] = s
	}
	newOpts.cfg.Categories.Aliases = copyMap(o.cfg.Categories.Aliases)
	newOpts.cfg.Sources = append([]config.SourceConfig(nil), o.cfg.Sources...)
	return newOpts
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
