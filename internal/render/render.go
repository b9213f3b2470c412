// Package render draws dashboard pages as color-coded terminal output.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"snowdash/internal/dashboard"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess = colorFunc(ansi.Green)
	ColorError   = colorFunc(ansi.Red)
	ColorWarning = colorFunc(ansi.Yellow)
	ColorInfo    = colorFunc(ansi.Cyan)
	ColorBold    = colorFunc("default+b")
	ColorDim     = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// Renderer writes dashboard pages to a terminal
type Renderer struct {
	out      io.Writer
	useColor bool
}

// New creates a renderer for stdout
func New() *Renderer {
	return &Renderer{out: os.Stdout, useColor: supportsColor}
}

// NewWriter creates a renderer for an arbitrary writer, without color
func NewWriter(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Header draws a boxed section header
func (r *Renderer) Header(title string) {
	width := 60
	if len(title) > width-4 {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(r.out, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(r.out, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(r.out, "+"+strings.Repeat("-", width-2)+"+")
}

// Warnings prints fetch diagnostics below a section
func (r *Renderer) Warnings(warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(r.out, "%s %s\n", ColorWarning("WARNING:"), warning)
	}
}

// SourceNote flags degraded sections so stale or placeholder data is
// never mistaken for warehouse output.
func (r *Renderer) SourceNote(source dashboard.Source) {
	switch source {
	case dashboard.SourceFallback:
		fmt.Fprintf(r.out, "%s showing placeholder data\n", ColorWarning("FALLBACK:"))
	case dashboard.SourceEmpty:
		fmt.Fprintf(r.out, "%s no data available\n", ColorDim("EMPTY:"))
	}
}

// Metric prints a single labeled value, the terminal version of a
// dashboard metric card.
func (r *Renderer) Metric(label, value string) {
	fmt.Fprintf(r.out, "  %s %s\n", ColorDim(label+":"), ColorBold(value))
}

func statusColor(status string) func(string) string {
	switch strings.ToUpper(status) {
	case dashboard.StatusExcellent, "ENFORCED", "LOW", "STARTED":
		return ColorSuccess
	case dashboard.StatusGood:
		return ColorInfo
	case dashboard.StatusWarning, dashboard.GradeNeedsAttention, "MEDIUM", "PENDING":
		return ColorWarning
	case dashboard.StatusCritical, "HIGH", "VIOLATED":
		return ColorError
	default:
		return ColorDim
	}
}

func tierColor(tier string) func(string) string {
	switch strings.ToUpper(tier) {
	case "PLATINUM", "ELITE":
		return ColorInfo
	case "GOLD":
		return ColorWarning
	case "SILVER":
		return ColorDim
	default:
		return ColorBold
	}
}

func money(amount float64) string {
	return "$" + groupDigits(fmt.Sprintf("%.0f", amount))
}

// groupDigits inserts thousands separators into a formatted integer
func groupDigits(s string) string {
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}

func percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
