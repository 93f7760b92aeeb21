// Package layout draws the frame around every screen: a header with the
// screen title and learner standing, and a footer of key hints.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

// The smallest frame the client draws in. Secure exams treat anything
// smaller as leaving fullscreen.
const (
	MinWidth  = 80
	MinHeight = 24

	HeaderHeight = 3
	FooterHeight = 3

	CompactHeightThreshold = 30
)

type KeyHint struct {
	Key         string
	Description string
}

func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// IsCompactHeight reports whether a content area of the given height
// belongs to a terminal in the compact range.
func IsCompactHeight(contentHeight int) bool {
	return contentHeight+HeaderHeight+FooterHeight < CompactHeightThreshold
}

func RenderMinSizeMessage(width, height int) string {
	text := fmt.Sprintf("The terminal is %d×%d.\n\nResize it to at least %d×%d to continue.\nSecure exams count a small terminal as leaving fullscreen.",
		width, height, MinWidth, MinHeight)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(theme.Text).Align(lipgloss.Center).Render(text))
}

var bar = lipgloss.NewStyle().
	Background(theme.BgCard).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(theme.Border)

// RenderHeader shows the app name, the screen title centered, and the
// learner's level and points on the right. An empty level hides the right
// side.
func RenderHeader(title, level string, points int, width int) string {
	left := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).Render("  tutorly")
	center := lipgloss.NewStyle().Foreground(theme.Text).Render(title)

	var right string
	if level != "" {
		right = theme.Level(level).Render(strings.ToUpper(level[:1])+level[1:]) +
			"   " +
			lipgloss.NewStyle().Foreground(theme.Accent).Render(fmt.Sprintf("★ %d pts  ", points))
	}

	inner := max(width-4, 0)
	leftGap := max((inner-lipgloss.Width(center))/2-lipgloss.Width(left), 1)
	rightGap := max(inner-lipgloss.Width(left)-leftGap-lipgloss.Width(center)-lipgloss.Width(right), 1)

	return bar.Width(width).Render(left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right)
}

func RenderFooter(hints []KeyHint, width int) string {
	key := lipgloss.NewStyle().Foreground(theme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(theme.TextDim)

	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = key.Render(h.Key) + " " + desc.Render(h.Description)
	}
	return bar.Width(width).Render("  " + strings.Join(parts, "   "))
}

// RenderFrame stacks header, body and footer. body is called with the
// height left between the two bars.
func RenderFrame(header, footer string, width, height int, body func(width, height int) string) string {
	h := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := lipgloss.NewStyle().Width(width).Height(h).MaxHeight(h).Render(body(width, h))
	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}
