package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/netgraph/internal/engine"
	"github.com/user/netgraph/internal/model"
)

// Dashboard renders the engine state: a radial endpoint map, the rolling
// activity sparkline and the connection list. It holds no data of its own;
// everything is read from the engine each frame.
type Dashboard struct {
	eng       *engine.Engine
	width     int
	height    int
	mapHeight int
	listRows  int
}

// Rows of fixed chrome around the map: header, summary, sparkline, help.
const chromeRows = 4

// NewDashboard creates a dashboard bound to an engine.
func NewDashboard(eng *engine.Engine, width, height int) *Dashboard {
	d := &Dashboard{eng: eng}
	d.SetSize(width, height)
	return d
}

// SetSize splits the terminal between the map and the list and tells the
// engine the map canvas dimensions.
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height

	d.listRows = 9
	d.mapHeight = height - chromeRows - d.listRows
	if d.mapHeight < 10 {
		d.mapHeight = 10
	}
	d.eng.Resize(width, d.mapHeight)
}

// View renders one frame.
func (d *Dashboard) View() string {
	var sb strings.Builder

	sb.WriteString(d.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(d.renderSummary())
	sb.WriteString("\n")
	sb.WriteString(d.renderMap())
	sb.WriteString(d.renderSparkline())
	sb.WriteString("\n")
	sb.WriteString(d.renderList())
	sb.WriteString(d.renderHelp())

	return sb.String()
}

func (d *Dashboard) renderHeader() string {
	title := HeaderStyle.Render("netgraph")

	mode := "host"
	if d.eng.Mode() == engine.ModeProcess {
		p := d.eng.FocusedProcess()
		name := p.Name
		if name == "" {
			name = "?"
		}
		mode = fmt.Sprintf("%s (%d)", name, d.eng.FocusedPID())
		if p.AgeSec > 0 {
			mode += " up " + formatAge(p.AgeSec)
		}
	}

	intervals := DimStyle.Render(fmt.Sprintf("ui %v · scan %v",
		d.eng.UIInterval(), d.eng.DataInterval()))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		title, " ", ModeStyle.Render(mode), " ", intervals)
}

func (d *Dashboard) renderSummary() string {
	g := d.eng.Graph()
	if g == nil {
		return DimStyle.Render("waiting for first scan")
	}

	s := g.Summary
	parts := []string{
		LabelStyle.Render("conns ") + ValueStyle.Render(fmt.Sprintf("%d", s.TotalConns)),
		LabelStyle.Render("est ") + ValueStyle.Render(fmt.Sprintf("%d", s.ByState[model.StateEstablished])),
		LabelStyle.Render("listen ") + ValueStyle.Render(fmt.Sprintf("%d", s.ByState[model.StateListen])),
	}
	if s.Suspicious > 0 {
		parts = append(parts, SevHighStyle.Render(fmt.Sprintf("suspicious %d", s.Suspicious)))
	}
	if s.DistinctTags > 0 {
		parts = append(parts, LabelStyle.Render("tags ")+ValueStyle.Render(fmt.Sprintf("%d", s.DistinctTags)))
	}
	if g.Dropped > 0 {
		parts = append(parts, DimStyle.Render(fmt.Sprintf("+%d offscreen", g.Dropped)))
	}
	return strings.Join(parts, "  ")
}

// renderMap draws the center node and the placed endpoints onto a character
// grid. Coordinates come straight from the layout pass; the grid only clamps
// at its own edges.
func (d *Dashboard) renderMap() string {
	grid := make([][]string, d.mapHeight)
	for y := range grid {
		row := make([]string, d.width)
		for x := range row {
			row[x] = " "
		}
		grid[y] = row
	}

	g := d.eng.Graph()
	if g == nil {
		return strings.Repeat("\n", d.mapHeight)
	}

	lc := d.eng.Layout()
	cx, cy := int(lc.CenterX), int(lc.CenterY)
	d.put(grid, cx, cy, centerFrame(d.eng.PulsePhase()), CenterStyle)
	d.putText(grid, cx+2, cy, g.Center, CenterStyle)

	blink := d.eng.Blink()
	for _, ep := range g.Endpoints {
		x, y := int(ep.X), int(ep.Y)

		style := localityStyle(ep.Locality)
		if len(ep.Tags) > 0 {
			style = severityStyle(ep.MaxSeverity)
		}
		if ep.HeavyTalker {
			style = style.Copy().Bold(true)
		}

		marker := endpointMarker(ep)
		// Critical endpoints flash at the blink cadence.
		if len(ep.Tags) > 0 && ep.MaxSeverity == model.SeverityCritical && !blink {
			style = DimStyle
		}
		d.put(grid, x, y, marker, style)

		label := ep.Label
		if ep.ConnCount > 1 {
			label = fmt.Sprintf("%s x%d", label, ep.ConnCount)
		}
		d.putText(grid, x+2, y, label, style)
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(strings.Join(row, ""))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (d *Dashboard) put(grid [][]string, x, y int, ch string, style lipgloss.Style) {
	if y < 0 || y >= len(grid) || x < 0 || x >= d.width {
		return
	}
	grid[y][x] = style.Render(ch)
}

func (d *Dashboard) putText(grid [][]string, x, y int, text string, style lipgloss.Style) {
	for i, r := range []rune(text) {
		d.put(grid, x+i, y, string(r), style)
	}
}

// centerFrame cycles the center node glyph with the pulse phase.
var centerFrames = []string{"·", "○", "◎", "●", "◎", "○"}

func centerFrame(phase float64) string {
	idx := int(phase * float64(len(centerFrames)))
	if idx >= len(centerFrames) {
		idx = len(centerFrames) - 1
	}
	return centerFrames[idx]
}

func endpointMarker(ep model.Endpoint) string {
	switch {
	case ep.HeavyTalker:
		return "◆"
	case ep.Locality == model.LocalityListenOnly:
		return "◌"
	case ep.State == model.StateEstablished:
		return "●"
	default:
		return "○"
	}
}

func (d *Dashboard) renderSparkline() string {
	width := d.width - 10
	if width < 10 {
		width = 10
	}
	return LabelStyle.Render("activity ") + RenderSparkline(d.eng.Activity(), width)
}

// renderList shows the raw connections with the selection cursor, scrolled
// so the selected row stays visible.
func (d *Dashboard) renderList() string {
	conns := d.eng.Connections()
	selected := d.eng.Selected()

	var rows []string
	rows = append(rows, LabelStyle.Render(
		fmt.Sprintf("  %-5s %-21s %-21s %-12s %s", "PROTO", "LOCAL", "REMOTE", "STATE", "PROCESS")))

	visible := d.listRows - 1
	if visible < 1 {
		visible = 1
	}
	start := 0
	if selected >= visible {
		start = selected - visible + 1
	}
	end := start + visible
	if end > len(conns) {
		end = len(conns)
	}

	for i := start; i < end; i++ {
		c := conns[i]
		proc := "-"
		if c.PID > 0 {
			proc = fmt.Sprintf("%s (%d)", c.Process, c.PID)
		}
		line := fmt.Sprintf("%-5s %-21s %-21s %-12s %s",
			c.Proto,
			fmt.Sprintf("%s:%d", c.LocalAddr, c.LocalPort),
			fmt.Sprintf("%s:%d", c.RemoteAddr, c.RemotePort),
			c.State,
			proc)
		if i == selected {
			rows = append(rows, SelectedStyle.Render("▸ "+line))
		} else {
			rows = append(rows, RowStyle.Render("  "+line))
		}
	}
	if len(conns) == 0 {
		rows = append(rows, DimStyle.Render("  no connections"))
	}
	for len(rows) < d.listRows {
		rows = append(rows, "")
	}

	return strings.Join(rows, "\n") + "\n"
}

// formatAge renders a process age compactly: seconds under a minute,
// minutes under an hour, then hours and minutes.
func formatAge(sec int64) string {
	switch {
	case sec < 60:
		return fmt.Sprintf("%ds", sec)
	case sec < 3600:
		return fmt.Sprintf("%dm", sec/60)
	default:
		return fmt.Sprintf("%dh%02dm", sec/3600, (sec%3600)/60)
	}
}

func (d *Dashboard) renderHelp() string {
	return HelpStyle.Render(
		"↑/↓ select • p focus process • r rescan • +/- ui speed • [/] scan speed • q quit")
}
