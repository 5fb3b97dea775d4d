package view

import (
	"fmt"
	"slices"
	"time"

	"dario.cat/mergo"

	"github.com/mickamy/planview/internal/layout"
)

// Mode is an enabled viewport interaction.
type Mode string

const (
	ModeZoomCanvas Mode = "zoom-canvas"
	ModeDragCanvas Mode = "drag-canvas"
)

// ZoomFloor is the lowest zoom the detail-level threshold can be fixed at.
const ZoomFloor = 0.5

// Config describes how a view lays out and draws its tree. Zero fields take
// the value from DefaultConfig; pointer fields distinguish an explicit false.
type Config struct {
	Direction  layout.Direction `json:"direction,omitempty"`
	Layout     string           `json:"layout,omitempty"`
	NodeSep    float64          `json:"node_sep,omitempty"`
	RankSep    float64          `json:"rank_sep,omitempty"`
	NodeWidth  float64          `json:"node_width,omitempty"`
	NodeHeight float64          `json:"node_height,omitempty"`
	Width      float64          `json:"width,omitempty"`
	Height     float64          `json:"height,omitempty"`
	FitView    *bool            `json:"fit_view,omitempty"`
	Zoom       float64          `json:"zoom,omitempty"`
	MinZoom    float64          `json:"min_zoom,omitempty"`
	MaxZoom    float64          `json:"max_zoom,omitempty"`
	ZoomFloor  float64          `json:"zoom_floor,omitempty"`
	Pan        layout.Point     `json:"pan"`
	Modes      []Mode           `json:"modes,omitempty"`
	Animate    *bool            `json:"animate,omitempty"`
	NodeKind   NodeKind         `json:"node_kind,omitempty"`
	EdgeKind   EdgeKind         `json:"edge_kind,omitempty"`
	// Padding is [vertical, horizontal] space kept around a fitted tree.
	Padding []float64 `json:"padding,omitempty"`

	LabelMax          int           `json:"label_max,omitempty"`
	MaskLabelMax      int           `json:"mask_label_max,omitempty"`
	AnimationDuration time.Duration `json:"animation_duration,omitempty"`
	CoefficientX      float64       `json:"coefficient_x,omitempty"`
	CoefficientY      float64       `json:"coefficient_y,omitempty"`
	WarnPercent       float64       `json:"warn_percent,omitempty"`
	CriticalPercent   float64       `json:"critical_percent,omitempty"`
}

// Bool returns a pointer to b for the optional Config fields.
func Bool(b bool) *bool { return &b }

// DefaultConfig returns the built-in view configuration.
func DefaultConfig() Config {
	return Config{
		Direction:         layout.LeftToRight,
		Layout:            "indented",
		NodeSep:           20,
		RankSep:           300,
		NodeWidth:         202,
		NodeHeight:        60,
		Width:             1200,
		Height:            800,
		FitView:           Bool(true),
		Zoom:              1,
		MinZoom:           0.1,
		MaxZoom:           10,
		ZoomFloor:         ZoomFloor,
		Modes:             []Mode{ModeZoomCanvas, ModeDragCanvas},
		Animate:           Bool(true),
		NodeKind:          KindFlowRect,
		EdgeKind:          EdgeFlowCubic,
		Padding:           []float64{20, 50},
		LabelMax:          28,
		MaskLabelMax:      16,
		AnimationDuration: 200 * time.Millisecond,
		CoefficientX:      0.5,
		CoefficientY:      0.5,
		WarnPercent:       20,
		CriticalPercent:   50,
	}
}

// Merge fills the unset fields of cfg from DefaultConfig.
func Merge(cfg Config) (Config, error) {
	merged := cfg
	merged.Modes = slices.Clone(cfg.Modes)
	merged.Padding = slices.Clone(cfg.Padding)
	if err := mergo.Merge(&merged, DefaultConfig(), mergo.WithoutDereference); err != nil {
		return Config{}, fmt.Errorf("merge view config: %w", err)
	}
	if len(merged.Padding) == 1 {
		merged.Padding = []float64{merged.Padding[0], merged.Padding[0]}
	}
	return merged, nil
}

// HasMode reports whether m is enabled.
func (c Config) HasMode(m Mode) bool {
	return slices.Contains(c.Modes, m)
}

func (c Config) fitView() bool { return c.FitView != nil && *c.FitView }

func (c Config) animate() bool { return c.Animate != nil && *c.Animate }
