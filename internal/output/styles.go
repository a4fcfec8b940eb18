package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette (256-color codes).
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the styles used by Writer.
type Styles struct {
	Header lipgloss.Style
	Dim    lipgloss.Style
	Label  lipgloss.Style

	// Relevance badges
	High   lipgloss.Style
	Medium lipgloss.Style
	Low    lipgloss.Style
}

// DefaultStyles returns the colored styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		High:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Medium: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Low:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle(),
		Label:  lipgloss.NewStyle(),
		High:   lipgloss.NewStyle(),
		Medium: lipgloss.NewStyle(),
		Low:    lipgloss.NewStyle(),
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
