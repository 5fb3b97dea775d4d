package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mickamy/planview/internal/config"
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/normalizer"
	"github.com/mickamy/planview/internal/view"
)

// addViewFlags registers the view settings shared by every command that mounts a view.
func addViewFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("direction", "", "Layout direction (LR|RL|TB|BT)")
	f.String("layout", "", "Layout engine (indented|dendrogram)")
	f.String("node-kind", "", "Node kind (flow-rect|rect)")
	f.String("edge-kind", "", "Edge kind (flow-cubic|cubic-horizontal)")
	f.Float64("zoom", 0, "Zoom to apply after the first render; below the threshold switches to compact labels")
	f.Bool("fit-view", true, "Fit the tree into the viewport on first render")
	f.Bool("animate", true, "Animate level changes")
	f.Int("label-max", 0, "Maximum label length before truncation")
}

func addCollapseFlag(cmd *cobra.Command) {
	cmd.Flags().IntSlice("collapse", nil, "Node IDs to collapse, e.g. 3,7")
}

// readPlan reads path, or stdin when path is "-".
func readPlan(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--input is required")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func loadPlan(data []byte) (*model.PlanNode, *model.PlanStats, error) {
	root, stats, err := normalizer.Load(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	if root == nil {
		return nil, nil, view.ErrEmptyPlan
	}
	return root, stats, nil
}

// mountView mounts the plan with the configured view settings, then applies
// --collapse and --zoom the way a user would: as events on the rendered view.
func mountView(cmd *cobra.Command, cfg config.Config, id string, root *model.PlanNode, stats *model.PlanStats) (*view.View, error) {
	vc := cfg.ViewConfig()
	zoomed := cmd.Flags().Changed("zoom")
	if zoomed {
		vc.FitView = view.Bool(false)
		vc.Zoom = config.Default().View.Zoom
	}

	v, err := view.NewHost(nil).Mount(&view.Container{ID: id}, vc, root, stats)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Lookup("collapse") != nil {
		ids, err := cmd.Flags().GetIntSlice("collapse")
		if err != nil {
			return nil, err
		}
		for _, nodeID := range ids {
			it, err := v.Item(nodeID)
			if err != nil {
				return nil, err
			}
			if !it.Collapsed {
				if err := v.Toggle(nodeID); err != nil {
					return nil, err
				}
			}
		}
	}
	if zoomed {
		if err := v.Zoom(cfg.View.Zoom); err != nil {
			return nil, err
		}
	}
	return v, nil
}
