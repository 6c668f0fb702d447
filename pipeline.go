package meetgrid

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/karlla1220/meetgrid/assemble"
	"github.com/karlla1220/meetgrid/cache"
	"github.com/karlla1220/meetgrid/config"
	"github.com/karlla1220/meetgrid/docx"
	"github.com/karlla1220/meetgrid/format"
	"github.com/karlla1220/meetgrid/gateway"
	"github.com/karlla1220/meetgrid/htmldoc"
	"github.com/karlla1220/meetgrid/layout"
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/odt"
	"github.com/karlla1220/meetgrid/slots"
	"github.com/karlla1220/meetgrid/tables"
	"github.com/karlla1220/meetgrid/xlsx"
)

// ErrNoSources is returned by terminal operations of a pipeline without
// sources.
var ErrNoSources = errors.New("no sources specified")

// Pipeline provides a fluent interface for building a schedule.
// Each configuration method returns a new Pipeline instance, making it
// safe for concurrent use and allowing method chaining.
type Pipeline struct {
	options buildOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a copy of the Pipeline with a deep copy of options.
func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{options: p.options.clone(), err: p.err}
}

// ============================================================================
// Configuration Methods (return new Pipeline instance)
// ============================================================================

// Primary adds the document that defines the room layout and block table.
//
// Example:
//
//	res, _, err := meetgrid.New().Primary("main.docx").Build(ctx)
func (p *Pipeline) Primary(path string) *Pipeline {
	return p.Source(config.SourceConfig{Path: path, Role: model.RolePrimary})
}

// Detail adds a document that refines the primary's sessions.
func (p *Pipeline) Detail(path string) *Pipeline {
	return p.Source(config.SourceConfig{Path: path, Role: model.RoleDetail})
}

// DetailWithHints adds a detail document together with fixed mappings
// from its room labels to primary room labels.
//
// Example:
//
//	p := meetgrid.New().
//	    Primary("main.docx").
//	    DetailWithHints("vice.docx", map[string]string{"Room A": "Main Hall"})
func (p *Pipeline) DetailWithHints(path string, hints map[string]string) *Pipeline {
	return p.Source(config.SourceConfig{Path: path, Role: model.RoleDetail, Hints: hints})
}

// Source adds a configured document. Its id defaults to the file name
// without extension.
func (p *Pipeline) Source(src config.SourceConfig) *Pipeline {
	np := p.clone()
	if src.Path == "" {
		np.err = errors.Join(np.err, errors.New("source has no path"))
		return np
	}
	np.options.sources = append(np.options.sources, sourceSpec{
		id:    src.SourceID(),
		path:  src.Path,
		role:  src.Role,
		hints: copyMap(src.Hints),
	})
	return np
}

// FromDocument adds an already decoded document. Its id is doc.SourceID.
func (p *Pipeline) FromDocument(doc *model.Document, role model.Role) *Pipeline {
	np := p.clone()
	if doc == nil {
		np.err = errors.Join(np.err, errors.New("nil document"))
		return np
	}
	np.options.sources = append(np.options.sources, sourceSpec{
		id:   doc.SourceID,
		path: doc.Name,
		doc:  doc,
		role: role,
	})
	return np
}

// WithConfig replaces the configuration and adds the sources it lists.
func (p *Pipeline) WithConfig(cfg *config.Config) *Pipeline {
	np := p.clone()
	if cfg == nil {
		return np
	}
	np.options.cfg = *cfg
	np.options.cfg.Categories.Aliases = copyMap(cfg.Categories.Aliases)
	np.options.cfg.Sources = nil
	for _, src := range cfg.Sources {
		np = np.Source(src)
	}
	return np
}

// MeetingName sets the meeting name. Without one, it is taken from the
// primary's file name ("RAN1#124").
func (p *Pipeline) MeetingName(name string) *Pipeline {
	np := p.clone()
	np.options.cfg.Meeting.Name = name
	return np
}

// Timezone sets the IANA timezone the schedule's clock times are in.
func (p *Pipeline) Timezone(tz string) *Pipeline {
	np := p.clone()
	np.options.cfg.Meeting.Timezone = tz
	return np
}

// CategoryAliases maps category spellings to their canonical form.
func (p *Pipeline) CategoryAliases(aliases map[string]string) *Pipeline {
	np := p.clone()
	np.options.cfg.Categories.Aliases = copyMap(aliases)
	return np
}

// Concurrency bounds the gateway calls in flight.
func (p *Pipeline) Concurrency(n int) *Pipeline {
	np := p.clone()
	np.options.cfg.Gateway.Concurrency = n
	return np
}

// Timeout bounds each gateway call. A slot whose call times out renders as
// unresolved.
func (p *Pipeline) Timeout(d time.Duration) *Pipeline {
	np := p.clone()
	np.options.cfg.Gateway.Timeout = d
	return np
}

// Heuristic structures slots with the rule-based gateway instead of the
// configured model.
func (p *Pipeline) Heuristic() *Pipeline {
	np := p.clone()
	np.options.cfg.Gateway.Provider = config.ProviderHeuristic
	return np
}

// WithGateway structures slots with g.
func (p *Pipeline) WithGateway(g gateway.Gateway) *Pipeline {
	np := p.clone()
	np.options.gateway = g
	return np
}

// WithCache answers repeated slots from store instead of the configured
// cache database.
func (p *Pipeline) WithCache(store gateway.Store) *Pipeline {
	np := p.clone()
	np.options.store = store
	np.options.noCache = false
	return np
}

// NoCache sends every slot to the gateway.
func (p *Pipeline) NoCache() *Pipeline {
	np := p.clone()
	np.options.store = nil
	np.options.noCache = true
	return np
}

// WithLogger sets the logger used by every stage.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	np := p.clone()
	if logger == nil {
		logger = zap.NewNop()
	}
	np.options.logger = logger
	return np
}

// RunID fixes the run id instead of generating one.
func (p *Pipeline) RunID(id string) *Pipeline {
	np := p.clone()
	np.options.runID = id
	return np
}

func (p *Pipeline) withClock(now func() time.Time) *Pipeline {
	np := p.clone()
	np.options.now = now
	return np
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Extraction is one source's extracted cell map.
type Extraction struct {
	SourceID string
	Role     model.Role
	Result   *tables.Result
}

// Extract reads every source and returns its cell map. A source that
// cannot be read is skipped with a warning; when the primary is among
// them, the first extracted detail source takes its place.
//
// Example:
//
//	ex, warnings, err := meetgrid.New().Primary("main.docx").Extract()
func (p *Pipeline) Extract() ([]Extraction, []Warning, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.extract()
}

func (p *Pipeline) extract() ([]Extraction, []Warning, error) {
	o := p.options
	if len(o.sources) == 0 {
		return nil, nil, ErrNoSources
	}

	var (
		out      []Extraction
		warnings []Warning
		errs     []error
		primary  = -1
	)
	for _, s := range o.sources {
		res, err := p.extractSource(s)
		if err != nil {
			o.logger.Warn("source skipped", zap.String("source", s.id), zap.Error(err))
			warnings = append(warnings, Warning{Source: s.id, Message: err.Error()})
			errs = append(errs, fmt.Errorf("source %s: %w", s.id, err))
			continue
		}
		o.logger.Info("source extracted",
			zap.String("source", s.id),
			zap.Stringer("role", s.role),
			zap.Int("blocks", len(res.Blocks)),
			zap.Int("cells", len(res.RawCells())))
		for _, w := range res.Warnings {
			warnings = append(warnings, Warning{Source: s.id, Message: w})
		}
		if s.role == model.RolePrimary && primary < 0 {
			primary = len(out)
		}
		out = append(out, Extraction{SourceID: s.id, Role: s.role, Result: res})
	}
	if len(out) == 0 {
		return nil, warnings, fmt.Errorf("no source could be extracted: %w", errors.Join(errs...))
	}

	if primary < 0 && len(errs) > 0 {
		for i := range out {
			if out[i].Role == model.RoleDetail {
				out[i].Role = model.RolePrimary
				warnings = append(warnings, Warning{
					Source:  out[i].SourceID,
					Message: "primary source failed; using this detail source as primary",
				})
				break
			}
		}
	}
	return out, warnings, nil
}

func (p *Pipeline) extractSource(s sourceSpec) (*tables.Result, error) {
	doc := s.doc
	if doc == nil {
		var err error
		doc, err = readDocument(s.path, s.id)
		if err != nil {
			return nil, err
		}
	}
	return tables.Extract(doc, p.options.cfg.TableOptions(s.id, s.role))
}

// readDocument decodes the file at path with the reader for its format.
func readDocument(path, sourceID string) (*model.Document, error) {
	f, err := format.DetectFile(path)
	if err != nil {
		return nil, err
	}
	switch f {
	case format.DOCX:
		return docx.ReadDocument(path, sourceID)
	case format.XLSX:
		return xlsx.ReadDocument(path, sourceID)
	case format.HTML:
		return htmldoc.ReadDocument(path, sourceID)
	case format.ODT:
		return odt.ReadDocument(path, sourceID)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Base(path))
	}
}

// Collect extracts every source and buckets the cells into the primary's
// slots.
func (p *Pipeline) Collect() (*slots.Collection, []Warning, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.collect()
}

func (p *Pipeline) collect() (*slots.Collection, []Warning, error) {
	extracted, warnings, err := p.extract()
	if err != nil {
		return nil, warnings, err
	}
	hints := make(map[string]map[string]string, len(p.options.sources))
	for _, s := range p.options.sources {
		hints[s.id] = s.hints
	}
	sources := make([]slots.Source, 0, len(extracted))
	for _, ex := range extracted {
		sources = append(sources, slots.Source{
			ID:     ex.SourceID,
			Role:   ex.Role,
			Result: ex.Result,
			Hints:  hints[ex.SourceID],
		})
	}

	col, err := slots.Collect(sources)
	if err != nil {
		return nil, warnings, fmt.Errorf("collecting slots: %w", err)
	}
	for _, f := range col.Orphans {
		warnings = append(warnings, Warning{
			Source:  f.SourceID,
			Message: fmt.Sprintf("%s %q overlaps no primary block", f.Time, f.Text),
		})
	}
	p.options.logger.Info("slots collected",
		zap.Int("slots", len(col.Slots)),
		zap.Int("orphans", len(col.Orphans)))
	return col, warnings, nil
}

// Build runs the whole pipeline. Slots the gateway cannot structure and
// sessions that break the schedule's invariants are reported as warnings;
// the schedule is still built from everything else.
//
// Example:
//
//	res, warnings, err := meetgrid.New().
//	    Primary("main.docx").
//	    Detail("vice.docx").
//	    Concurrency(8).
//	    Timeout(time.Minute).
//	    Build(ctx)
func (p *Pipeline) Build(ctx context.Context) (*Result, []Warning, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	o := p.options
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	col, warnings, err := p.collect()
	if err != nil {
		return nil, warnings, err
	}

	gw, release, gwWarnings, err := p.structurer(ctx)
	if err != nil {
		return nil, warnings, err
	}
	defer release()
	warnings = append(warnings, gwWarnings...)

	dispatcher := &gateway.Dispatcher{
		Gateway:     gw,
		Concurrency: cfg.Gateway.Concurrency,
		Timeout:     cfg.Gateway.Timeout,
		Logger:      o.logger,
	}
	results := dispatcher.Dispatch(ctx, requests(col))

	runID := o.runID
	if runID == "" {
		runID, err = nanoid.New()
		if err != nil {
			return nil, warnings, fmt.Errorf("generating run id: %w", err)
		}
	}
	name := cfg.Meeting.Name
	if name == "" {
		name = meetingName(p.primaryPath(col.PrimaryID))
	}

	sched, report := assemble.Assemble(assemble.Input{
		MeetingName: name,
		Timezone:    cfg.Meeting.Timezone,
		RunID:       runID,
		Collection:  col,
		Results:     results,
		Aliases:     cfg.Categories.Aliases,
		Now:         o.now,
		Logger:      o.logger,
	})
	warnings = append(warnings, reportWarnings(report)...)

	palette := layout.NewPalette(cfg.Layout.Hues)
	engine := layout.NewEngineWithConfig(cfg.LayoutConfig(col.Breaks), o.logger)
	grid := engine.Layout(sched, palette)
	for _, c := range grid.Clipped {
		warnings = append(warnings, Warning{
			Source:  "layout",
			Message: fmt.Sprintf("%s %s %s outside the time axis", c.Day, c.Room, c.Time),
		})
	}
	for _, dg := range grid.Days {
		for _, pl := range dg.Placements {
			if pl.OverBreak == "" {
				continue
			}
			warnings = append(warnings, Warning{
				Source:  "layout",
				Message: fmt.Sprintf("%s %s session %s covers %s", dg.Day, dg.Columns[pl.Column].Room, pl.SessionID, pl.OverBreak),
			})
		}
	}

	o.logger.Info("schedule built",
		zap.String("meeting", name),
		zap.String("run_id", runID),
		zap.Int("sessions", sched.SessionCount()),
		zap.Int("unresolved", len(sched.Unresolved)),
		zap.Int("warnings", len(warnings)))

	return &Result{
		Schedule:   sched,
		Grid:       grid,
		Palette:    palette,
		Report:     report,
		Collection: col,
	}, warnings, nil
}

// structurer returns the gateway slots are sent to, wrapped in the cache
// when one is configured. release closes what it opened.
func (p *Pipeline) structurer(ctx context.Context) (gw gateway.Gateway, release func(), warnings []Warning, err error) {
	o := p.options
	release = func() {}

	gw = o.gateway
	if gw == nil {
		gw, warnings, err = p.provider(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	store := o.store
	if store == nil && !o.noCache && o.cfg.Cache.Enabled {
		db, err := cache.OpenSQLite(o.cfg.Cache.Path)
		if err != nil {
			warnings = append(warnings, Warning{Source: "gateway", Message: fmt.Sprintf("cache disabled: %v", err)})
		} else {
			release = func() {
				if err := db.Close(); err != nil {
					o.logger.Warn("closing cache", zap.Error(err))
				}
			}
			if o.cfg.Cache.MaxAge > 0 {
				pruned, err := db.Prune(ctx, o.now().Add(-o.cfg.Cache.MaxAge))
				if err != nil {
					o.logger.Warn("pruning cache", zap.Error(err))
				} else if pruned > 0 {
					o.logger.Debug("cache pruned", zap.Int64("entries", pruned))
				}
			}
			store = db
		}
	}
	if store != nil {
		gw = &gateway.Cached{Next: gw, Store: store, Logger: o.logger}
	}
	return gw, release, warnings, nil
}

func (p *Pipeline) provider(ctx context.Context) (gateway.Gateway, []Warning, error) {
	o := p.options
	if o.cfg.Gateway.Provider == config.ProviderHeuristic {
		return gateway.Heuristic{}, nil, nil
	}
	g, err := gateway.NewGemini(ctx, gateway.GeminiOptions{
		APIKey:   o.cfg.Gateway.APIKey,
		Model:    o.cfg.Gateway.Model,
		Interval: o.cfg.Gateway.Interval,
		Retries:  o.cfg.Gateway.Retries,
		Backoff:  o.cfg.Gateway.Backoff,
		Logger:   o.logger,
	})
	if errors.Is(err, gateway.ErrMissingAPIKey) {
		return gateway.Heuristic{}, []Warning{{
			Source:  "gateway",
			Message: "no Gemini API key; structuring slots heuristically",
		}}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return g, nil, nil
}

func (p *Pipeline) primaryPath(id string) string {
	for _, s := range p.options.sources {
		if s.id == id {
			return s.path
		}
	}
	return id
}

// requests builds one gateway request per collected slot, in slot order.
func requests(col *slots.Collection) []gateway.Request {
	keys := col.Slots.Keys()
	out := make([]gateway.Request, 0, len(keys))
	for _, k := range keys {
		b, ok := col.Block(k.Block)
		if !ok {
			continue
		}
		out = append(out, gateway.Request{
			Day:       k.Day,
			Block:     b,
			Fragments: col.Slots[k],
			Rooms:     col.Rooms[k.Day],
			Hint:      col.HintsFor(k),
		})
	}
	return out
}

func reportWarnings(r *assemble.Report) []Warning {
	var out []Warning
	for _, err := range r.Errors {
		out = append(out, Warning{Source: "assemble", Message: err.Error()})
	}
	for i := range r.Warnings {
		out = append(out, Warning{Source: "assemble", Message: r.Warnings[i].Error()})
	}
	for _, u := range r.UnmappedRooms {
		out = append(out, Warning{
			Source:  strings.Join(u.Sources, ","),
			Message: fmt.Sprintf("%s: room %q matches no primary room", u.Day, u.Label),
		})
	}
	return out
}

var meetingPattern = regexp.MustCompile(`RAN\d+#\d+`)

// meetingName derives the meeting name from a file name: the first
// "RAN<n>#<m>" in it, else the name without extension.
func meetingName(path string) string {
	base := filepath.Base(path)
	if m := meetingPattern.FindString(base); m != "" {
		return m
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
