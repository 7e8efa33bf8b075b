// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders importgraph CLI results for terminals, pipes and
// scripts.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text, borders

	ColorWarning = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconArrow, IconBullet:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes results in one Mode.
//
// Results go to out; Error and Warning go to errOut. In ModeJSON only
// Emit writes to out, so stdout stays a single parseable document.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
}

// NewPrinter creates a Printer.
func NewPrinter(out, errOut io.Writer, mode Mode) *Printer {
	return &Printer{out: out, errOut: errOut, mode: mode}
}

// Mode returns the printer's mode.
func (p *Printer) Mode() Mode {
	return p.mode
}

// Emit writes v as indented JSON in ModeJSON and calls render otherwise.
func (p *Printer) Emit(v any, render func(p *Printer)) error {
	if p.mode == ModeJSON {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render(p)
	return nil
}

// Title prints a heading.
func (p *Printer) Title(text string) {
	switch p.mode {
	case ModeJSON:
	case ModePlain:
		fmt.Fprintf(p.out, "%s\n", text)
	default:
		fmt.Fprintln(p.out, Styles.Title.Render(text))
	}
}

// Items prints one item per line, or a muted placeholder when empty.
func (p *Printer) Items(items []string) {
	if p.mode == ModeJSON {
		return
	}
	if len(items) == 0 {
		p.Muted("(none)")
		return
	}
	for _, item := range items {
		if p.mode == ModePlain {
			fmt.Fprintln(p.out, item)
			continue
		}
		fmt.Fprintf(p.out, "  %s %s\n", IconBullet.Render(), item)
	}
}

// Chain prints a chain of modules joined by arrows.
func (p *Printer) Chain(chain []string) {
	switch p.mode {
	case ModeJSON:
	case ModePlain:
		fmt.Fprintln(p.out, strings.Join(chain, " -> "))
	default:
		parts := make([]string, len(chain))
		for i, m := range chain {
			if i == 0 || i == len(chain)-1 {
				parts[i] = Styles.Highlight.Render(m)
			} else {
				parts[i] = m
			}
		}
		fmt.Fprintf(p.out, "  %s\n", strings.Join(parts, " "+IconArrow.Render()+" "))
	}
}

// KeyValue prints a "key: value" line.
func (p *Printer) KeyValue(key string, value any) {
	switch p.mode {
	case ModeJSON:
	case ModePlain:
		fmt.Fprintf(p.out, "%s: %v\n", key, value)
	default:
		fmt.Fprintf(p.out, "%s %v\n", Styles.Muted.Render(key+":"), Styles.Bold.Render(fmt.Sprint(value)))
	}
}

// Answer prints a yes/no result with a label.
func (p *Printer) Answer(ok bool, label string) {
	switch p.mode {
	case ModeJSON:
	case ModePlain:
		fmt.Fprintf(p.out, "%t\n", ok)
	default:
		if ok {
			fmt.Fprintf(p.out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(label))
		} else {
			fmt.Fprintf(p.out, "%s %s\n", IconError.Render(), Styles.Muted.Render(label))
		}
	}
}

// Box prints text in a rounded box. Plain mode prints a heading line.
func (p *Printer) Box(title, content string) {
	switch p.mode {
	case ModeJSON:
	case ModePlain:
		fmt.Fprintf(p.out, "%s\n%s\n", title, content)
	default:
		fmt.Fprintln(p.out, Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
	}
}

// Muted prints secondary text.
func (p *Printer) Muted(text string) {
	switch p.mode {
	case ModeJSON:
	case ModePlain:
		fmt.Fprintln(p.out, text)
	default:
		fmt.Fprintln(p.out, Styles.Muted.Render(text))
	}
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.mode == ModeStyled {
		fmt.Fprintf(p.errOut, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
		return
	}
	fmt.Fprintf(p.errOut, "WARN: %s\n", text)
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.mode == ModeStyled {
		fmt.Fprintf(p.errOut, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
		return
	}
	fmt.Fprintf(p.errOut, "ERROR: %s\n", text)
}
