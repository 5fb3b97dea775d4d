package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/mickamy/planview/internal/layout"
	"github.com/mickamy/planview/internal/view"
)

const (
	// EnvPrefix prefixes every environment override. Nested keys are joined
	// with "__", e.g. PLANVIEW_VIEW__NODE_SEP.
	EnvPrefix = "PLANVIEW_"
	// EnvConfigPath names the config file when --config is not given.
	EnvConfigPath = EnvPrefix + "CONFIG"
)

// Config holds every tunable of the tool.
type Config struct {
	View     ViewConfig    `koanf:"view" json:"view"`
	Render   RenderConfig  `koanf:"render" json:"render"`
	Insights InsightConfig `koanf:"insights" json:"insights"`
	Server   ServerConfig  `koanf:"server" json:"server"`
	Log      LogConfig     `koanf:"log" json:"log"`
}

// ViewConfig is the file form of view.Config.
type ViewConfig struct {
	Direction  string   `koanf:"direction" json:"direction"`
	Layout     string   `koanf:"layout" json:"layout"`
	NodeSep    float64  `koanf:"node_sep" json:"node_sep"`
	RankSep    float64  `koanf:"rank_sep" json:"rank_sep"`
	NodeWidth  float64  `koanf:"node_width" json:"node_width"`
	NodeHeight float64  `koanf:"node_height" json:"node_height"`
	Width      float64  `koanf:"width" json:"width"`
	Height     float64  `koanf:"height" json:"height"`
	FitView    bool     `koanf:"fit_view" json:"fit_view"`
	Animate    bool     `koanf:"animate" json:"animate"`
	Zoom       float64  `koanf:"zoom" json:"zoom"`
	ZoomFloor  float64  `koanf:"zoom_floor" json:"zoom_floor"`
	NodeKind   string   `koanf:"node_kind" json:"node_kind"`
	EdgeKind   string   `koanf:"edge_kind" json:"edge_kind"`
	Modes      []string `koanf:"modes" json:"modes"`
}

// RenderConfig controls labels and animation on every surface.
type RenderConfig struct {
	LabelMax     int  `koanf:"label_max" json:"label_max"`
	MaskLabelMax int  `koanf:"mask_label_max" json:"mask_label_max"`
	AnimationMS  int  `koanf:"animation_ms" json:"animation_ms"`
	Color        bool `koanf:"color" json:"color"`
}

// InsightConfig defines thresholds for badges, node colours and messages.
type InsightConfig struct {
	WarnPercent             float64 `koanf:"warn_percent" json:"warn_percent"`
	CriticalPercent         float64 `koanf:"critical_percent" json:"critical_percent"`
	HotspotWarningPercent   float64 `koanf:"hotspot_warning_percent" json:"hotspot_warning_percent"`
	HotspotCriticalPercent  float64 `koanf:"hotspot_critical_percent" json:"hotspot_critical_percent"`
	SeqScanBufferHint       int64   `koanf:"seq_scan_buffer_hint" json:"seq_scan_buffer_hint"`
	BufferWarningBlocks     int64   `koanf:"buffer_warning_blocks" json:"buffer_warning_blocks"`
	BufferCriticalBlocks    int64   `koanf:"buffer_critical_blocks" json:"buffer_critical_blocks"`
	NestedLoopWarnLoops     float64 `koanf:"nested_loop_warn_loops" json:"nested_loop_warn_loops"`
	NestedLoopCriticalLoops float64 `koanf:"nested_loop_critical_loops" json:"nested_loop_critical_loops"`
	EstimateWarnFactor      float64 `koanf:"estimate_warn_factor" json:"estimate_warn_factor"`
	EstimateCriticalFactor  float64 `koanf:"estimate_critical_factor" json:"estimate_critical_factor"`
	SpillBlocks             float64 `koanf:"spill_blocks" json:"spill_blocks"`
	ParallelLimitKeepRatio  float64 `koanf:"parallel_limit_keep_ratio" json:"parallel_limit_keep_ratio"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" json:"addr"`
	Watch           bool          `koanf:"watch" json:"watch"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

var (
	mu     sync.RWMutex
	active = Default()
)

// Default returns the built-in configuration.
func Default() Config {
	v := view.DefaultConfig()
	modes := make([]string, 0, len(v.Modes))
	for _, m := range v.Modes {
		modes = append(modes, string(m))
	}
	return Config{
		View: ViewConfig{
			Direction:  string(v.Direction),
			Layout:     v.Layout,
			NodeSep:    v.NodeSep,
			RankSep:    v.RankSep,
			NodeWidth:  v.NodeWidth,
			NodeHeight: v.NodeHeight,
			Width:      v.Width,
			Height:     v.Height,
			FitView:    true,
			Animate:    true,
			Zoom:       v.Zoom,
			ZoomFloor:  v.ZoomFloor,
			NodeKind:   string(v.NodeKind),
			EdgeKind:   string(v.EdgeKind),
			Modes:      modes,
		},
		Render: RenderConfig{
			LabelMax:     v.LabelMax,
			MaskLabelMax: v.MaskLabelMax,
			AnimationMS:  int(v.AnimationDuration / time.Millisecond),
			Color:        true,
		},
		Insights: InsightConfig{
			WarnPercent:             v.WarnPercent,
			CriticalPercent:         v.CriticalPercent,
			HotspotWarningPercent:   0.20,
			HotspotCriticalPercent:  0.40,
			SeqScanBufferHint:       5000,
			BufferWarningBlocks:     5000,
			BufferCriticalBlocks:    50000,
			NestedLoopWarnLoops:     100,
			NestedLoopCriticalLoops: 10000,
			EstimateWarnFactor:      2,
			EstimateCriticalFactor:  5,
			SpillBlocks:             100,
			ParallelLimitKeepRatio:  0.10,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Active returns the currently applied configuration.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// Use replaces the active configuration.
func Use(cfg Config) {
	mu.Lock()
	active = cfg
	mu.Unlock()
}

// Apply loads configuration from the provided path (YAML or JSON) on top of
// the defaults and the environment. Empty path skips the file.
func Apply(path string) error {
	cfg, err := Load(path, nil)
	if err != nil {
		return err
	}
	Use(cfg)
	return nil
}

// Path returns explicit when set, otherwise $PLANVIEW_CONFIG.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvConfigPath)
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"direction":  "view.direction",
	"layout":     "view.layout",
	"node-kind":  "view.node_kind",
	"edge-kind":  "view.edge_kind",
	"zoom":       "view.zoom",
	"fit-view":   "view.fit_view",
	"animate":    "view.animate",
	"label-max":  "render.label_max",
	"color":      "render.color",
	"addr":       "server.addr",
	"watch":      "server.watch",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Load layers defaults, the config file at path, PLANVIEW_ environment
// variables and the flags that were explicitly set, in that order.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		// JSON is a subset of YAML, so one parser reads both.
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// envKey turns PLANVIEW_VIEW__NODE_SEP into view.node_sep.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"view.direction":   d.View.Direction,
		"view.layout":      d.View.Layout,
		"view.node_sep":    d.View.NodeSep,
		"view.rank_sep":    d.View.RankSep,
		"view.node_width":  d.View.NodeWidth,
		"view.node_height": d.View.NodeHeight,
		"view.width":       d.View.Width,
		"view.height":      d.View.Height,
		"view.fit_view":    d.View.FitView,
		"view.animate":     d.View.Animate,
		"view.zoom":        d.View.Zoom,
		"view.zoom_floor":  d.View.ZoomFloor,
		"view.node_kind":   d.View.NodeKind,
		"view.edge_kind":   d.View.EdgeKind,
		"view.modes":       d.View.Modes,

		"render.label_max":      d.Render.LabelMax,
		"render.mask_label_max": d.Render.MaskLabelMax,
		"render.animation_ms":   d.Render.AnimationMS,
		"render.color":          d.Render.Color,

		"insights.warn_percent":               d.Insights.WarnPercent,
		"insights.critical_percent":           d.Insights.CriticalPercent,
		"insights.hotspot_warning_percent":    d.Insights.HotspotWarningPercent,
		"insights.hotspot_critical_percent":   d.Insights.HotspotCriticalPercent,
		"insights.seq_scan_buffer_hint":       d.Insights.SeqScanBufferHint,
		"insights.buffer_warning_blocks":      d.Insights.BufferWarningBlocks,
		"insights.buffer_critical_blocks":     d.Insights.BufferCriticalBlocks,
		"insights.nested_loop_warn_loops":     d.Insights.NestedLoopWarnLoops,
		"insights.nested_loop_critical_loops": d.Insights.NestedLoopCriticalLoops,
		"insights.estimate_warn_factor":       d.Insights.EstimateWarnFactor,
		"insights.estimate_critical_factor":   d.Insights.EstimateCriticalFactor,
		"insights.spill_blocks":               d.Insights.SpillBlocks,
		"insights.parallel_limit_keep_ratio":  d.Insights.ParallelLimitKeepRatio,

		"server.addr":             d.Server.Addr,
		"server.watch":            d.Server.Watch,
		"server.shutdown_timeout": d.Server.ShutdownTimeout.String(),

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,
	}
}

// ViewConfig converts the file form into a view configuration.
func (c Config) ViewConfig() view.Config {
	modes := make([]view.Mode, 0, len(c.View.Modes))
	for _, m := range c.View.Modes {
		modes = append(modes, view.Mode(m))
	}
	return view.Config{
		Direction:         layout.Direction(strings.ToUpper(c.View.Direction)),
		Layout:            c.View.Layout,
		NodeSep:           c.View.NodeSep,
		RankSep:           c.View.RankSep,
		NodeWidth:         c.View.NodeWidth,
		NodeHeight:        c.View.NodeHeight,
		Width:             c.View.Width,
		Height:            c.View.Height,
		FitView:           view.Bool(c.View.FitView),
		Animate:           view.Bool(c.View.Animate),
		Zoom:              c.View.Zoom,
		ZoomFloor:         c.View.ZoomFloor,
		Modes:             modes,
		NodeKind:          view.NodeKind(c.View.NodeKind),
		EdgeKind:          view.EdgeKind(c.View.EdgeKind),
		LabelMax:          c.Render.LabelMax,
		MaskLabelMax:      c.Render.MaskLabelMax,
		AnimationDuration: time.Duration(c.Render.AnimationMS) * time.Millisecond,
		WarnPercent:       c.Insights.WarnPercent,
		CriticalPercent:   c.Insights.CriticalPercent,
	}
}
