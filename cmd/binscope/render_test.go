package main

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ochairo/binscope/internal/domain/entities"
)

func TestEntropyBar(t *testing.T) {
	tests := []struct {
		value  float64
		filled int
	}{
		{0, 0},
		{4, 20},
		{7.99, 39},
		{8, 40},
		{9, 40},
		{-1, 0},
	}
	for _, tt := range tests {
		bar := entropyBar(tt.value)
		if n := utf8.RuneCountInString(bar); n != entropyBarWidth {
			t.Errorf("entropyBar(%v) width = %d", tt.value, n)
		}
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("entropyBar(%v) filled = %d, want %d", tt.value, got, tt.filled)
		}
	}
}

func TestRenderText_PackedHint(t *testing.T) {
	report := &entities.AnalysisReport{
		File:        entities.BinaryFile{Path: "/x", Format: entities.FormatPE, Size: 10},
		Entropy:     entities.EntropyProfile{Value: 7.8, Bucket: entities.EntropyVeryHigh},
		Security:    entities.NewSecurityProfile(),
		ImportCount: entities.Some(3),
	}
	report.Security.Set(entities.FeatureDEP, entities.Enabled)
	report.Security.Set(entities.FeatureASLR, entities.Disabled)

	var buf bytes.Buffer
	if err := renderText(&buf, report); err != nil {
		t.Fatalf("renderText() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"possibly packed (high entropy)", "Very High (Possibly packed/encrypted)", "Architecture:  Unknown", "Imports:       3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "ASLR") > strings.Index(out, "DEP") {
		t.Error("ASLR should be listed before DEP")
	}
}

func TestRenderText_Unsupported(t *testing.T) {
	report := &entities.AnalysisReport{
		File:         entities.BinaryFile{Path: "/notes", Format: entities.FormatUnknown},
		StringsCount: entities.Some(3),
	}
	var buf bytes.Buffer
	if err := renderText(&buf, report); err != nil {
		t.Fatalf("renderText() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Packer Detection") || strings.Contains(out, "Security Checks") {
		t.Errorf("format-gated sections shown:\n%s", out)
	}
	if !strings.Contains(out, "Strings:") {
		t.Errorf("output missing strings count:\n%s", out)
	}
}

func TestRenderText_UnknownEntropy(t *testing.T) {
	report := &entities.AnalysisReport{
		File:     entities.BinaryFile{Path: "/big", Format: entities.FormatELF, Size: 1 << 30},
		Entropy:  entities.UnknownEntropy(),
		Security: entities.NewSecurityProfile(),
	}
	var buf bytes.Buffer
	if err := renderText(&buf, report); err != nil {
		t.Fatalf("renderText() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Entropy:     Unknown\n", "Assessment:  Could not calculate\n", "Packer:  none detected\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Graph:") || strings.Contains(out, "Imports:") {
		t.Errorf("unexpected rows:\n%s", out)
	}
}
