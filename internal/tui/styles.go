package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/user/netgraph/internal/model"
)

var (
	// Colors
	Primary   = lipgloss.Color("205")
	Secondary = lipgloss.Color("86")
	Subtle    = lipgloss.Color("241")
	Success   = lipgloss.Color("46")
	Warning   = lipgloss.Color("214")
	Error     = lipgloss.Color("196")
	Critical  = lipgloss.Color("201")

	// Header styles
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Primary).
			Padding(0, 2)

	ModeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Secondary).
			Padding(0, 1)

	// Map node styles, keyed by endpoint locality
	LoopbackStyle = lipgloss.NewStyle().Foreground(Subtle)
	PrivateStyle  = lipgloss.NewStyle().Foreground(Secondary)
	PublicStyle   = lipgloss.NewStyle().Foreground(Warning)
	ListenStyle   = lipgloss.NewStyle().Foreground(Success)

	CenterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	HeavyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Warning)

	// Severity styles for tagged endpoints
	SevLowStyle      = lipgloss.NewStyle().Foreground(Secondary)
	SevMediumStyle   = lipgloss.NewStyle().Foreground(Warning)
	SevHighStyle     = lipgloss.NewStyle().Foreground(Error).Bold(true)
	SevCriticalStyle = lipgloss.NewStyle().Foreground(Critical).Bold(true)

	// Label and value styles
	LabelStyle = lipgloss.NewStyle().
			Foreground(Subtle)

	ValueStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// List styles
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(Subtle)

	RowStyle = lipgloss.NewStyle()

	// Dim style
	DimStyle = lipgloss.NewStyle().
			Foreground(Subtle).
			Italic(true)

	// Help style
	HelpStyle = lipgloss.NewStyle().
			Foreground(Subtle)

	// Loading style
	LoadingStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Padding(2, 4)

	// Error style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SparklineStyle = lipgloss.NewStyle().Foreground(Secondary)
)

// localityStyle picks the base style for an endpoint node.
func localityStyle(loc model.Locality) lipgloss.Style {
	switch loc {
	case model.LocalityLoopback:
		return LoopbackStyle
	case model.LocalityListenOnly:
		return ListenStyle
	case model.LocalityPrivate:
		return PrivateStyle
	default:
		return PublicStyle
	}
}

// severityStyle picks the style for a tagged endpoint, overriding locality.
func severityStyle(sev model.Severity) lipgloss.Style {
	switch sev {
	case model.SeverityCritical:
		return SevCriticalStyle
	case model.SeverityHigh:
		return SevHighStyle
	case model.SeverityMedium:
		return SevMediumStyle
	default:
		return SevLowStyle
	}
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline maps activity samples onto block runes across a fixed
// 0-100 scale so quiet and busy periods stay comparable.
func RenderSparkline(samples []int, width int) string {
	if width <= 0 || len(samples) == 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	out := make([]rune, len(samples))
	for i, s := range samples {
		if s < 0 {
			s = 0
		}
		if s > 100 {
			s = 100
		}
		idx := s * (len(sparkRunes) - 1) / 100
		out[i] = sparkRunes[idx]
	}
	return SparklineStyle.Render(string(out))
}
