package cmd

import (
	"fmt"
	"os"
)

// Shared line helpers so every command prints with the same icons and
// indentation.
//
// Icon semantics:
//   ✓  success / healthy
//   ✗  error / failure   (stderr)
//   ⚠  warning
//   ○  skipped
//   -  missing
//   ~  neutral info

func printSection(title string) {
	fmt.Printf("\n=== %s ===\n", title)
}

// line prints one status line. A non-empty name becomes a [name] tag
// between the icon and the message.
func line(w *os.File, icon, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  %s  %s\n", icon, msg)
		return
	}
	fmt.Fprintf(w, "  %s  [%s] %s\n", icon, name, msg)
}

func printOK(name, msg string)   { line(os.Stdout, "✓", name, msg) }
func printErr(name, msg string)  { line(os.Stderr, "✗", name, msg) }
func printWarn(name, msg string) { line(os.Stdout, "⚠", name, msg) }
func printSkip(name, msg string) { line(os.Stdout, "○", name, msg) }
func printMiss(name, msg string) { line(os.Stdout, "-", name, msg) }
func printInfo(name, msg string) { line(os.Stdout, "~", name, msg) }
