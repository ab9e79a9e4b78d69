package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/whitebunny-cli/internal/application"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Title string
}

const barWidth = 24

func renderView(summary application.Summary, opts RenderOptions, s styles) string {
	title := opts.Title
	if title == "" {
		title = "White Bunny Run Summary"
	}

	lines := []string{
		s.title.Render(title),
		s.header.Render(headerLine(summary)),
	}

	if summary.HasPoints {
		lines = append(lines, s.section.Render(s.player.Render(playerLine(summary))))
	} else {
		lines = append(lines, s.section.Render(s.empty.Render("No point update received.")))
	}

	lines = append(lines,
		adsLine(summary, s),
		s.detail.Render(fmt.Sprintf("taps: %d sent, %d skipped", summary.TapsSent, summary.TapsSkipped)),
		s.detail.Render(fmt.Sprintf("connection: %d disconnects, %d restarts", summary.Disconnects, summary.Restarts)),
	)

	if summary.BatchesAborted > 0 {
		lines = append(lines, s.warning.Render(fmt.Sprintf("[%d batches aborted after consecutive failures]", summary.BatchesAborted)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(summary application.Summary) string {
	parts := []string{}
	if summary.Server != "" {
		parts = append(parts, "server: "+summary.Server)
	}
	if summary.State != "" {
		parts = append(parts, "state: "+summary.State)
	}
	parts = append(parts, "uptime: "+formatElapsed(summary.Elapsed))
	return strings.Join(parts, " | ")
}

func playerLine(summary application.Summary) string {
	name := strings.TrimSpace(summary.Player)
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s - Points: %d", name, summary.Points)
}

func adsLine(summary application.Summary, s styles) string {
	label := s.key.Render("ads:")
	if summary.AdsAttempted == 0 {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.empty.Render("none viewed"))
	}

	percent := successPercent(summary.AdsSucceeded, summary.AdsAttempted)
	meta := lipgloss.NewStyle().
		Foreground(interpolateColor(percent, 0, 100)).
		Render(fmt.Sprintf("%d/%d rewarded (%2.0f%%)", summary.AdsSucceeded, summary.AdsAttempted, percent))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		label,
		" ",
		renderProgressBar(percent, barWidth, s),
		" ",
		meta,
	)
}

func successPercent(succeeded, attempted int64) float64 {
	if attempted <= 0 {
		return 0
	}
	return clampPercent(float64(succeeded) * 100 / float64(attempted))
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Truncate(time.Second).String()
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, lo, hi float64) lipgloss.Color {
	if hi == lo {
		return lipgloss.Color("255")
	}

	normalized := (value - lo) / (hi - lo)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
