package main

import (
	"fmt"
	"io"
	"os"
)

// Status lines go to stderr so command results on stdout stay pipeable.
// statusOut is a variable so tests can capture the output.
var statusOut io.Writer = os.Stderr

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// report writes one colored, prefixed status line.
func report(color, prefix, format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(color, prefix+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { report(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { report(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { report(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { report(colorCyan, "→", format, args...) }

// printStatus renders one "Label: value" line of the status display.
func printStatus(label, format string, args ...any) {
	fmt.Fprintf(statusOut, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
