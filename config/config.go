package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/karlla1220/meetgrid/layout"
	"github.com/karlla1220/meetgrid/model"
	"github.com/karlla1220/meetgrid/tables"
)

// Config holds everything a pipeline run can be tuned with.
type Config struct {
	Meeting    MeetingConfig  `yaml:"meeting" toml:"meeting"`
	Sources    []SourceConfig `yaml:"sources,omitempty" toml:"sources,omitempty"`
	Extract    ExtractConfig  `yaml:"extract" toml:"extract"`
	Layout     LayoutConfig   `yaml:"layout" toml:"layout"`
	Categories CategoryConfig `yaml:"categories" toml:"categories"`
	Gateway    GatewayConfig  `yaml:"gateway" toml:"gateway"`
	Cache      CacheConfig    `yaml:"cache" toml:"cache"`
	Publish    PublishConfig  `yaml:"publish" toml:"publish"`
	Logging    LoggingConfig  `yaml:"logging" toml:"logging"`
}

// MeetingConfig names the meeting.
type MeetingConfig struct {
	// Name is taken from the primary file name when empty.
	Name     string `yaml:"name,omitempty" toml:"name,omitempty"`
	Timezone string `yaml:"timezone" toml:"timezone"`
}

// SourceConfig is one schedule document.
type SourceConfig struct {
	ID   string     `yaml:"id,omitempty" toml:"id,omitempty"`
	Path string     `yaml:"path" toml:"path"`
	Role model.Role `yaml:"role" toml:"role"`

	// Hints maps this source's room labels to primary room labels.
	Hints map[string]string `yaml:"hints,omitempty" toml:"hints,omitempty"`
}

// ExtractConfig tunes table extraction.
type ExtractConfig struct {
	// Blocks complete start-only time labels.
	Blocks         []model.Interval  `yaml:"blocks" toml:"blocks"`
	RoomNames      []string          `yaml:"room_names,omitempty" toml:"room_names,omitempty"`
	Markers        map[string]string `yaml:"markers,omitempty" toml:"markers,omitempty"`
	FallbackPrefix string            `yaml:"fallback_prefix,omitempty" toml:"fallback_prefix,omitempty"`
	// MaxTables bounds the schedule tables read from the primary document;
	// the widest are kept. Detail documents are read in full.
	MaxTables int `yaml:"max_tables,omitempty" toml:"max_tables,omitempty"`
}

// BreakConfig is a break row of the grid.
type BreakConfig struct {
	Name  string      `yaml:"name" toml:"name"`
	Start model.Clock `yaml:"start" toml:"start"`
	End   model.Clock `yaml:"end" toml:"end"`
	Days  []model.Day `yaml:"days,omitempty" toml:"days,omitempty"`
}

// LayoutConfig is the grid geometry.
type LayoutConfig struct {
	AxisStart   model.Clock `yaml:"axis_start" toml:"axis_start"`
	AxisEnd     model.Clock `yaml:"axis_end" toml:"axis_end"`
	Granularity int         `yaml:"granularity" toml:"granularity"`
	Hues        int         `yaml:"hues" toml:"hues"`

	// Breaks default to the break rows found in the documents when empty.
	Breaks []BreakConfig `yaml:"breaks,omitempty" toml:"breaks,omitempty"`
}

// CategoryConfig normalises category spellings.
type CategoryConfig struct {
	Aliases map[string]string `yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}

// GatewayConfig selects and tunes the structuring gateway.
type GatewayConfig struct {
	// Provider is "gemini" or "heuristic".
	Provider    string        `yaml:"provider" toml:"provider"`
	APIKey      string        `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	Model       string        `yaml:"model" toml:"model"`
	Concurrency int           `yaml:"concurrency" toml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
	Interval    time.Duration `yaml:"interval" toml:"interval"`
	Retries     int           `yaml:"retries" toml:"retries"`
	Backoff     time.Duration `yaml:"backoff" toml:"backoff"`
}

// CacheConfig locates the gateway response cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
	// MaxAge prunes older entries on open; zero keeps everything.
	MaxAge time.Duration `yaml:"max_age,omitempty" toml:"max_age,omitempty"`
}

// PublishConfig lists the optional output sinks.
type PublishConfig struct {
	Dir  string     `yaml:"dir,omitempty" toml:"dir,omitempty"`
	S3   S3Config   `yaml:"s3,omitempty" toml:"s3,omitempty"`
	NATS NATSConfig `yaml:"nats,omitempty" toml:"nats,omitempty"`
}

// S3Config configures the object storage sink. It is off without a bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty" toml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" toml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" toml:"secret_access_key,omitempty"`
}

// NATSConfig configures the notification sink. It is off without a URL.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty" toml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty" toml:"subject,omitempty"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level    string `yaml:"level" toml:"level"`
	Encoding string `yaml:"encoding" toml:"encoding"` // "json" or "console"
}

// Gateway providers.
const (
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// DefaultMaxTables is the primary document's table bound. Main schedules
// carry one or two day grids, sometimes followed by summary tables.
const DefaultMaxTables = 2

// DefaultConfig returns the standard meeting-day configuration.
func DefaultConfig() *Config {
	geo := layout.DefaultConfig()
	return &Config{
		Meeting: MeetingConfig{Timezone: "UTC"},
		Extract: ExtractConfig{
			Blocks: []model.Interval{
				{Start: model.MustClock("08:30"), End: model.MustClock("10:30")},
				{Start: model.MustClock("11:00"), End: model.MustClock("13:00")},
				{Start: model.MustClock("14:30"), End: model.MustClock("16:30")},
				{Start: model.MustClock("17:00"), End: model.MustClock("19:30")},
			},
			FallbackPrefix: "Room",
			MaxTables:      DefaultMaxTables,
		},
		Layout: LayoutConfig{
			AxisStart:   geo.AxisStart,
			AxisEnd:     geo.AxisEnd,
			Granularity: geo.Granularity,
			Hues:        layout.DefaultHues,
		},
		Gateway: GatewayConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			Concurrency: 4,
			Timeout:     2 * time.Minute,
			Interval:    time.Second,
			Retries:     3,
			Backoff:     5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(".meetgrid", "cache.db"),
		},
		Logging: LoggingConfig{Level: "info", Encoding: "console"},
	}
}

// Load reads the configuration at path. A missing file, or an empty path,
// yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := cfg.decode(path, data); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), c)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown config keys: %v", undecoded)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

// Save writes the configuration to path in the format its extension names.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
	if v := os.Getenv("MEETGRID_MODEL"); v != "" {
		c.Gateway.Model = v
	}
	if v := os.Getenv("MEETGRID_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEETGRID_CONCURRENCY: %w", err)
		}
		c.Gateway.Concurrency = n
	}
	if v := os.Getenv("MEETGRID_CACHE"); v != "" {
		if strings.EqualFold(v, "off") {
			c.Cache.Enabled = false
		} else {
			c.Cache.Enabled = true
			c.Cache.Path = v
		}
	}
	if v := os.Getenv("MEETGRID_TIMEZONE"); v != "" {
		c.Meeting.Timezone = v
	}
	return nil
}

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Meeting.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("meeting.timezone: %w", err))
	}

	primaries := 0
	ids := make(map[string]bool)
	for i, s := range c.Sources {
		if s.Path == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: path is required", i))
		}
		if s.Role == model.RolePrimary {
			primaries++
		}
		id := s.SourceID()
		if ids[id] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate id %q", i, id))
		}
		ids[id] = true
	}
	if len(c.Sources) > 0 && primaries != 1 {
		errs = append(errs, fmt.Errorf("sources: %d primary sources, want exactly one", primaries))
	}

	for i, b := range c.Extract.Blocks {
		if b.Start >= b.End {
			errs = append(errs, fmt.Errorf("extract.blocks[%d]: %s is not before %s", i, b.Start, b.End))
		}
		if i > 0 && b.Start < c.Extract.Blocks[i-1].End {
			errs = append(errs, fmt.Errorf("extract.blocks[%d]: overlaps the previous block", i))
		}
	}

	if c.Layout.AxisStart >= c.Layout.AxisEnd {
		errs = append(errs, fmt.Errorf("layout: axis start %s is not before end %s", c.Layout.AxisStart, c.Layout.AxisEnd))
	}
	if c.Layout.Granularity <= 0 {
		errs = append(errs, errors.New("layout.granularity must be positive"))
	}
	if c.Layout.Hues <= 0 {
		errs = append(errs, errors.New("layout.hues must be positive"))
	}
	for i, b := range c.Layout.Breaks {
		if b.Start >= b.End {
			errs = append(errs, fmt.Errorf("layout.breaks[%d]: %s is not before %s", i, b.Start, b.End))
		}
	}

	switch c.Gateway.Provider {
	case ProviderGemini, ProviderHeuristic:
	default:
		errs = append(errs, fmt.Errorf("gateway.provider: unknown provider %q", c.Gateway.Provider))
	}
	if c.Extract.MaxTables < 0 {
		errs = append(errs, errors.New("extract.max_tables must not be negative"))
	}
	if c.Gateway.Concurrency < 0 {
		errs = append(errs, errors.New("gateway.concurrency must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, errors.New("cache.path is required when the cache is enabled"))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// SourceID returns the configured id, or the file name without extension.
func (s SourceConfig) SourceID() string {
	if s.ID != "" {
		return s.ID
	}
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Location returns the meeting timezone, or UTC when it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Meeting.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TableOptions returns the extraction options for one source. Only the
// primary is bounded by Extract.MaxTables.
func (c *Config) TableOptions(sourceID string, role model.Role) tables.Options {
	blocks := make([]model.TimeBlock, len(c.Extract.Blocks))
	for i, b := range c.Extract.Blocks {
		blocks[i] = model.TimeBlock{Index: i, Start: b.Start, End: b.End}
	}
	maxTables := 0
	if role == model.RolePrimary {
		maxTables = c.Extract.MaxTables
	}
	return tables.Options{
		SourceID:       sourceID,
		MaxTables:      maxTables,
		Blocks:         blocks,
		RoomNames:      c.Extract.RoomNames,
		Markers:        c.Extract.Markers,
		FallbackPrefix: c.Extract.FallbackPrefix,
	}
}

// LayoutConfig returns the grid geometry. Without configured breaks, the
// break rows detected in the documents are used, and without those the
// standard meeting-day breaks.
func (c *Config) LayoutConfig(detected []model.NamedInterval) layout.Config {
	geo := layout.Config{
		AxisStart:   c.Layout.AxisStart,
		AxisEnd:     c.Layout.AxisEnd,
		Granularity: c.Layout.Granularity,
	}
	switch {
	case len(c.Layout.Breaks) > 0:
		for _, b := range c.Layout.Breaks {
			geo.Breaks = append(geo.Breaks, layout.Break{Name: b.Name, Start: b.Start, End: b.End, Days: b.Days})
		}
	case len(detected) > 0:
		for _, b := range detected {
			geo.Breaks = append(geo.Breaks, layout.Break{Name: b.Name, Start: b.Start, End: b.End})
		}
	default:
		geo.Breaks = layout.DefaultConfig().Breaks
	}
	return geo
}
