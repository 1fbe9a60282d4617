package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ANSI palette: red for errors and missing profiles, yellow for warnings and
// empty results, green for progress and success
var (
	colorRed    = lipgloss.Color("1")
	colorGreen  = lipgloss.Color("2")
	colorYellow = lipgloss.Color("3")
)

// Terminal prints colour-coded status lines
type Terminal struct {
	out     io.Writer
	quiet   bool
	mu      sync.Mutex
	red     lipgloss.Style
	yellow  lipgloss.Style
	green   lipgloss.Style
	fillChr string
}

// NewTerminal writes to out. Colours are dropped when out is not a terminal.
// In quiet mode only errors and warnings are printed.
func NewTerminal(out io.Writer, quiet bool) *Terminal {
	r := lipgloss.NewRenderer(out)
	green := r.NewStyle().Foreground(colorGreen)
	return &Terminal{
		out:     out,
		quiet:   quiet,
		red:     r.NewStyle().Foreground(colorRed),
		yellow:  r.NewStyle().Foreground(colorYellow),
		green:   green,
		fillChr: green.Render("="),
	}
}

func (t *Terminal) println(style *lipgloss.Style, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if style != nil {
		msg = style.Render(msg)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, msg)
}

// Error prints a red line
func (t *Terminal) Error(format string, args ...interface{}) {
	t.println(&t.red, format, args...)
}

// Warning prints a yellow line
func (t *Terminal) Warning(format string, args ...interface{}) {
	t.println(&t.yellow, format, args...)
}

// Success prints a green line
func (t *Terminal) Success(format string, args ...interface{}) {
	if t.quiet {
		return
	}
	t.println(&t.green, format, args...)
}

// Info prints an uncoloured line
func (t *Terminal) Info(format string, args ...interface{}) {
	if t.quiet {
		return
	}
	t.println(nil, format, args...)
}

// Blank prints an empty line
func (t *Terminal) Blank() {
	if t.quiet {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out)
}

// NewProgressBar starts a progress bar for total items. Quiet terminals get
// a bar that draws nothing.
func (t *Terminal) NewProgressBar(label string, total int) *ProgressBar {
	out := t.out
	if t.quiet {
		out = io.Discard
	}
	return newProgressBar(out, &t.mu, label, total, t.fillChr)
}
