package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const (
	colorError   lipgloss.Color = "1"
	colorSuccess lipgloss.Color = "2"
	colorWarning lipgloss.Color = "3"
)

func ParseColorMode(value string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(value)); mode {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown color mode: %s (expected auto, always or never)", value)
	}
}

// Styles renders semantic styles for one writer. In auto mode colour is used
// only when the writer is a terminal and NO_COLOR is unset.
type Styles struct {
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
}

func NewStyles(w io.Writer, mode string) *Styles {
	renderer := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		renderer.SetColorProfile(termenv.ANSI)
	case ColorNever:
		renderer.SetColorProfile(termenv.Ascii)
	default:
		if os.Getenv("NO_COLOR") != "" {
			renderer.SetColorProfile(termenv.Ascii)
		}
	}
	return &Styles{
		errorStyle:   renderer.NewStyle().Foreground(colorError),
		successStyle: renderer.NewStyle().Foreground(colorSuccess),
		warningStyle: renderer.NewStyle().Foreground(colorWarning),
	}
}

func (s *Styles) Error(text string) string {
	if s == nil {
		return text
	}
	return s.errorStyle.Render(text)
}

func (s *Styles) Success(text string) string {
	if s == nil {
		return text
	}
	return s.successStyle.Render(text)
}

func (s *Styles) Warning(text string) string {
	if s == nil {
		return text
	}
	return s.warningStyle.Render(text)
}

// WriteError prints the "Error: <msg>" line shown for every failed command.
func WriteError(w io.Writer, styles *Styles, err error) {
	_, _ = fmt.Fprintln(w, styles.Error("Error: "+err.Error()))
}
