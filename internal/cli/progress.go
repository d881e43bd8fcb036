package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
)

// Printer writes status lines, colored when the target is a terminal.
type Printer struct {
	w        io.Writer
	colorize bool
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, colorize: isTerminal(w)}
}

func (p *Printer) line(color, mark, message string) {
	if p.colorize {
		fmt.Fprintf(p.w, "%s%s%s %s\n", color, mark, ColorReset, message)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", mark, message)
}

// Success prints a success message
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(ColorGreen, "✓", fmt.Sprintf(format, args...))
}

// Error prints an error message
func (p *Printer) Error(format string, args ...interface{}) {
	p.line(ColorRed, "✗", fmt.Sprintf(format, args...))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...interface{}) {
	p.line(ColorYellow, "⚠", fmt.Sprintf(format, args...))
}

// Info prints an info message
func (p *Printer) Info(format string, args ...interface{}) {
	p.line(ColorBlue, "ℹ", fmt.Sprintf(format, args...))
}

// ProgressBar renders import progress on a single line.
type ProgressBar struct {
	mu       sync.Mutex
	w        io.Writer
	total    int
	current  int
	width    int
	prefix   string
	colorize bool
}

// NewProgressBar creates a bar for total steps.
func (p *Printer) NewProgressBar(total int, prefix string) *ProgressBar {
	return &ProgressBar{w: p.w, total: total, width: 30, prefix: prefix, colorize: p.colorize}
}

// Increment advances the bar by one step.
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.current < pb.total {
		pb.current++
	}
	pb.render()
}

// Finish fills the bar and ends the line.
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = pb.total
	pb.render()
	fmt.Fprintln(pb.w)
}

func (pb *ProgressBar) render() {
	percent := 1.0
	if pb.total > 0 {
		percent = float64(pb.current) / float64(pb.total)
	}
	filled := int(float64(pb.width) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.width-filled)
	if pb.colorize {
		color := ColorCyan
		if percent >= 1.0 {
			color = ColorGreen
		}
		bar = color + bar + ColorReset
	}
	fmt.Fprintf(pb.w, "\r%s [%s] %d/%d", pb.prefix, bar, pb.current, pb.total)
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
