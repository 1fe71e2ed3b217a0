package ui

import (
	"fmt"
	"io"
	"os"
)

type color string

const (
	colorCyan    color = "\033[36m"
	colorYellow  color = "\033[33m"
	colorRed     color = "\033[31m"
	colorGreen   color = "\033[32m"
	colorMagenta color = "\033[35m"
	colorReset   color = "\033[0m"
)

// Console writes user-facing status lines. It is separate from the
// structured log: the log records what happened for later inspection,
// the console tells the person at the terminal how the crawl is going.
type Console struct {
	out      io.Writer
	useColor bool
}

// NewConsole creates a console writing to out. When color is false the
// output carries no ANSI escapes, for pipes and dumb terminals.
func NewConsole(out io.Writer, useColor bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, useColor: useColor}
}

func (c *Console) paint(col color, text string) string {
	if !c.useColor {
		return text
	}
	return string(col) + text + string(colorReset)
}

// Infof prints a labeled value line.
func (c *Console) Infof(label, format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s: %s\n", c.paint(colorCyan, label),
		c.paint(colorYellow, fmt.Sprintf(format, args...)))
}

// Successf prints a green status line.
func (c *Console) Successf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.paint(colorGreen, fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow status line.
func (c *Console) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.paint(colorYellow, fmt.Sprintf(format, args...)))
}

// Errorf prints a red status line.
func (c *Console) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.paint(colorRed, fmt.Sprintf(format, args...)))
}

// Headerf prints a magenta section header.
func (c *Console) Headerf(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.paint(colorMagenta, fmt.Sprintf(format, args...)))
}
