package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

// Gauge is a horizontal fill bar. Mark, when positive, draws a tick at
// that fraction of the bar, e.g. the passing score.
type Gauge struct {
	Label   string
	Fill    float64
	Mark    float64
	Percent bool
	Width   int
}

func NewProgressBar(label string, fill float64, showPercent bool, width int) Gauge {
	return Gauge{Label: label, Fill: clampUnit(fill), Percent: showPercent, Width: width}
}

// ScoreGauge shows a percentage score against the passing score.
func ScoreGauge(score, passing, width int) Gauge {
	return Gauge{
		Fill:    clampUnit(float64(score) / 100),
		Mark:    clampUnit(float64(passing) / 100),
		Percent: true,
		Width:   width,
	}
}

func (g Gauge) View() string {
	var head string
	if g.Label != "" {
		head = theme.Body.Render(g.Label) + "  "
	}
	tail := ""
	if g.Percent {
		tail = lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("  %3d%%", int(g.Fill*100+0.5)))
	}

	cells := g.Width - lipgloss.Width(head) - lipgloss.Width(tail)
	if cells < 4 {
		cells = 4
	}
	filled := int(float64(cells) * g.Fill)
	mark := -1
	if g.Mark > 0 {
		mark = int(float64(cells)*g.Mark) - 1
		if mark < 0 {
			mark = 0
		}
	}

	var bar strings.Builder
	for i := 0; i < cells; i++ {
		style := theme.ProgressEmpty
		if i < filled {
			style = theme.ProgressFilled
		}
		if i == mark {
			bar.WriteString(style.Foreground(theme.Accent).Render("│"))
			continue
		}
		bar.WriteString(style.Render(" "))
	}
	return head + bar.String() + tail
}

func clampUnit(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
