// Package explore is a terminal browser over a plan view: move through the
// visible nodes, collapse branches and zoom between the detail levels.
package explore

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mickamy/planview/internal/format"
	"github.com/mickamy/planview/internal/insight"
	"github.com/mickamy/planview/internal/model"
	"github.com/mickamy/planview/internal/view"
)

const (
	zoomStep      = 1.25
	minListHeight = 5
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	detailBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true)
)

// Model is the bubbletea model of the explorer.
type Model struct {
	view      *view.View
	keys      keyMap
	badges    map[int][]insight.Badge
	cursor    int
	top       int
	height    int
	width     int
	zoom      float64
	detail    viewport.Model
	quitting  bool
	err       error
	listLines int
}

// New wraps a rendered view.
func New(v *view.View) Model {
	root := v.Tree()
	m := Model{
		view:      v,
		keys:      defaultKeys(),
		badges:    insight.BadgeMap(root.Node, v.Stats()),
		zoom:      v.ZoomLevel(),
		height:    24,
		width:     80,
		listLines: 14,
		detail:    viewport.New(80, 8),
	}
	m.detail.SetContent(m.details())
	return m
}

// Run starts the explorer on the terminal.
func Run(v *view.View, opts ...tea.ProgramOption) error {
	final, err := tea.NewProgram(New(v), append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...).Run()
	if err != nil {
		return fmt.Errorf("explore: %w", err)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.listLines = max(minListHeight, m.height*3/5-3)
		m.detail.Width = msg.Width
		m.detail.Height = max(3, m.height-m.listLines-4)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.view.Visible())-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Toggle):
			if it := m.selected(); it != nil {
				m.err = m.view.Toggle(it.ID)
			}
		case key.Matches(msg, m.keys.Collapse):
			m.collapseOrParent()
		case key.Matches(msg, m.keys.Expand):
			if it := m.selected(); it != nil && it.Collapsed {
				m.err = m.view.Toggle(it.ID)
			}
		case key.Matches(msg, m.keys.ZoomIn):
			m.setZoom(m.view.ZoomLevel() * zoomStep)
		case key.Matches(msg, m.keys.ZoomOut):
			m.setZoom(m.view.ZoomLevel() / zoomStep)
		case key.Matches(msg, m.keys.Reset):
			m.setZoom(m.zoom)
		default:
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		m.clampCursor()
	}

	m.detail.SetContent(m.details())
	return m, nil
}

func (m *Model) setZoom(z float64) {
	m.err = m.view.Zoom(z)
}

func (m *Model) collapseOrParent() {
	it := m.selected()
	if it == nil {
		return
	}
	if it.HasChildren() && !it.Collapsed {
		m.err = m.view.Toggle(it.ID)
		return
	}
	if it.Parent == nil {
		return
	}
	for i, v := range m.view.Visible() {
		if v.ID == it.Parent.ID {
			m.cursor = i
			return
		}
	}
}

func (m *Model) clampCursor() {
	visible := m.view.Visible()
	m.cursor = min(max(m.cursor, 0), max(len(visible)-1, 0))
	if m.cursor < m.top {
		m.top = m.cursor
	}
	if m.cursor >= m.top+m.listLines {
		m.top = m.cursor - m.listLines + 1
	}
}

func (m Model) selected() *view.Item {
	visible := m.view.Visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return nil
	}
	return visible[m.cursor]
}

// Selected is the ID of the node under the cursor.
func (m Model) Selected() int {
	if it := m.selected(); it != nil {
		return it.ID
	}
	return 0
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	stats := m.view.Stats()
	b.WriteString(titleStyle.Render(fmt.Sprintf("planview  exec %s  nodes %d", format.Duration(stats.ExecutionTime), stats.NodeCount)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  zoom %.2f  level %d", m.view.ZoomLevel(), m.view.Level())))
	b.WriteString("\n\n")

	cfg := m.view.Config()
	compact := m.view.Level() == view.LevelCompact
	visible := m.view.Visible()
	end := min(len(visible), m.top+m.listLines)
	for i := m.top; i < end; i++ {
		line := m.line(visible[i], cfg, compact)
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(detailBorder.Width(max(m.width, 1)).Render(m.detail.View()))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(helpLine(m.keys)))
	if m.err != nil {
		b.WriteString("\n" + m.err.Error())
	}
	return b.String()
}

func (m Model) line(it *view.Item, cfg view.Config, compact bool) string {
	depth := 0
	for p := it.Parent; p != nil; p = p.Parent {
		depth++
	}
	marker := "  "
	if it.HasChildren() {
		marker = "▾ "
		if it.Collapsed {
			marker = "▸ "
		}
	}
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(it.Status.Color())).Render("●")

	label := format.Abbreviate(it.Label(), cfg.LabelMax, cfg.MaskLabelMax)
	if !compact {
		label = fmt.Sprintf("%s  %s", format.Truncate(insight.NodeLabel(it.Node), cfg.LabelMax*2), format.Percent(it.Cost))
	}
	line := fmt.Sprintf("%s%s%s #%d %s", strings.Repeat("  ", depth), marker, dot, it.ID, label)
	if it.Collapsed && it.HasChildren() {
		line += mutedStyle.Render(fmt.Sprintf(" (%d hidden)", it.Descendants()))
	}
	return line
}

func (m Model) details() string {
	it := m.selected()
	if it == nil {
		return ""
	}
	node := it.Node
	lines := []string{
		titleStyle.Render(fmt.Sprintf("#%d %s", it.ID, insight.NodeLabel(node))),
		fmt.Sprintf("cost %s of max  self %s  total cost %s",
			format.Percent(it.Cost),
			format.Duration(node.Stats.Get(model.StatExclusiveDuration)),
			format.Cost(node.Stats.Get(model.StatTotalCost))),
		fmt.Sprintf("rows %s planned %s  loops %s",
			format.Number(node.Stats.Get(model.StatRows)),
			format.Number(node.Stats.Get(model.StatPlanRows)),
			format.Number(node.Stats.Get(model.StatActualLoops))),
	}
	for _, b := range m.badges[it.ID] {
		lines = append(lines, fmt.Sprintf("[%s] %s", b.Kind, b.Text))
	}
	for _, k := range slices.Sorted(maps.Keys(node.Props)) {
		lines = append(lines, fmt.Sprintf("%s: %v", k, node.Props[k]))
	}
	return strings.Join(lines, "\n")
}

func helpLine(k keyMap) string {
	parts := make([]string, 0, len(k.help()))
	for _, b := range k.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
