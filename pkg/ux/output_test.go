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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(mode Mode) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, mode), &out, &errOut
}

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeJSON, DetectMode(&buf, true))
	assert.Equal(t, ModePlain, DetectMode(&buf, false))

	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, ModePlain, DetectMode(&buf, false))
	assert.Equal(t, ModeJSON, DetectMode(&buf, true))
}

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconArrow, IconBullet} {
		assert.Contains(t, icon.Render(), string(icon))
	}
}

func TestPrinter_Plain(t *testing.T) {
	p, out, _ := newTestPrinter(ModePlain)

	p.Title("Downstream of a")
	p.Items([]string{"b", "c"})
	p.Items(nil)
	p.Chain([]string{"a", "b", "c"})
	p.KeyValue("modules", 3)
	p.Answer(true, "a imports b")
	p.Box("Summary", "3 modules")

	assert.Equal(t,
		"Downstream of a\nb\nc\n(none)\na -> b -> c\nmodules: 3\ntrue\nSummary\n3 modules\n",
		out.String())
}

func TestPrinter_Styled(t *testing.T) {
	p, out, _ := newTestPrinter(ModeStyled)

	p.Chain([]string{"a", "b", "c"})
	p.Items([]string{"x"})

	got := out.String()
	assert.Contains(t, got, "a")
	assert.Contains(t, got, "b")
	assert.Contains(t, got, string(IconArrow))
	assert.Contains(t, got, string(IconBullet))
}

func TestPrinter_JSON(t *testing.T) {
	p, out, _ := newTestPrinter(ModeJSON)

	rendered := false
	err := p.Emit(map[string]any{"modules": []string{"a", "b"}}, func(p *Printer) {
		rendered = true
		p.Title("ignored")
	})
	require.NoError(t, err)
	assert.False(t, rendered)

	// Non-Emit helpers stay silent so stdout remains one document.
	p.Title("x")
	p.Items([]string{"y"})
	p.KeyValue("k", "v")

	var decoded map[string][]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []string{"a", "b"}, decoded["modules"])
}

func TestPrinter_EmitRenders(t *testing.T) {
	p, out, _ := newTestPrinter(ModePlain)

	err := p.Emit([]string{"a"}, func(p *Printer) { p.Items([]string{"a"}) })
	require.NoError(t, err)
	assert.Equal(t, "a\n", out.String())
}

func TestPrinter_Diagnostics(t *testing.T) {
	p, out, errOut := newTestPrinter(ModeJSON)

	p.Warning("slow")
	p.Error("boom")

	assert.Empty(t, out.String())
	assert.Equal(t, "WARN: slow\nERROR: boom\n", errOut.String())
}
