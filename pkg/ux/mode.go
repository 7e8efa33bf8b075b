// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Mode controls how a Printer renders output.
type Mode string

const (
	// ModeStyled renders colors, icons and boxes. Used on terminals.
	ModeStyled Mode = "styled"

	// ModePlain renders unadorned text suitable for pipes and grep.
	ModePlain Mode = "plain"

	// ModeJSON renders each result as one JSON document.
	ModeJSON Mode = "json"
)

// DetectMode picks the output mode for w.
//
// JSON wins when requested. Otherwise output is styled only when w is a
// terminal and NO_COLOR is unset.
func DetectMode(w io.Writer, jsonOutput bool) Mode {
	if jsonOutput {
		return ModeJSON
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModePlain
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return ModeStyled
		}
	}
	return ModePlain
}
