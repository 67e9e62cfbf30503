package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

// printer writes aligned label/value lines.
type printer struct {
	w io.Writer
}

func (p printer) header(title string) {
	fmt.Fprintln(p.w, headerStyle.Render("❯ "+title))
}

func (p printer) field(label string, value any) {
	fmt.Fprintln(p.w, labelStyle.Render(label)+valueStyle.Render(fmt.Sprint(value)))
}

func (p printer) count(label string, n int) {
	fmt.Fprintln(p.w, labelStyle.Render(label)+countStyle.Render(fmt.Sprint(n)))
}

func (p printer) path(label, path string) {
	fmt.Fprintln(p.w, labelStyle.Render(label)+pathStyle.Render(path))
}
