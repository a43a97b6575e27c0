package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// colorEnabled reports whether stdout is a color-capable terminal, the gate
// every style in this file is built behind so piped output stays plain.
var colorEnabled = termenv.EnvColorProfile() != termenv.Ascii && isatty(os.Stdout)

func isatty(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func plainOr(s lipgloss.Style) lipgloss.Style {
	if !colorEnabled {
		return lipgloss.NewStyle()
	}
	return s
}

var (
	titleStyle   = plainOr(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")))
	errorStyle   = plainOr(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")))
	okStyle      = plainOr(lipgloss.NewStyle().Foreground(lipgloss.Color("10")))
	mutedStyle   = plainOr(lipgloss.NewStyle().Foreground(lipgloss.Color("8")))
	fieldStyle   = plainOr(lipgloss.NewStyle().Foreground(lipgloss.Color("14")))
)
