package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ochairo/binscope/internal/domain/entities"
)

const (
	entropyBarWidth = 40
	divider         = "============================================================"
)

// featureOrder lists the security checks in display order
var featureOrder = []entities.Feature{
	entities.FeatureNX,
	entities.FeaturePIE,
	entities.FeatureRELRO,
	entities.FeatureCanary,
	entities.FeatureASLR,
	entities.FeatureDEP,
	entities.FeatureCFG,
	entities.FeatureSafeSEH,
}

// renderText writes the human-readable report
func renderText(w io.Writer, r *entities.AnalysisReport) error {
	doc := r.Document()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	section(tw, "Basic Information")
	row(tw, "Path", doc.Path)
	row(tw, "Type", string(doc.Type))
	row(tw, "Size", fmt.Sprintf("%d bytes", doc.Size))
	row(tw, "Architecture", known(doc.Architecture))
	row(tw, "Bits", known(doc.Bits))
	row(tw, "Object type", known(doc.ObjectType))
	row(tw, "Stripped", knownBool(doc.Stripped))
	row(tw, "Sections", known(doc.SectionCount))
	row(tw, "Strings", known(doc.StringsCount))
	if doc.ImportCount != nil {
		row(tw, "Imports", known(*doc.ImportCount))
	}
	row(tw, "Interpreter", known(doc.Interpreter))
	row(tw, "SHA-256", known(doc.SHA256))
	row(tw, "XXH3", known(doc.XXH3))
	row(tw, "ssdeep", known(doc.SSDeep))

	if len(doc.Security) > 0 {
		section(tw, "Security Checks")
		for _, f := range orderedFeatures(doc.Security) {
			row(tw, string(f), string(doc.Security[f]))
		}
	}

	section(tw, "Entropy Analysis")
	if value, ok := doc.Entropy.Get(); ok {
		row(tw, "Entropy", fmt.Sprintf("%.4f / %.3f", value, entities.MaxEntropy))
		row(tw, "Assessment", doc.EntropyAssessment)
		row(tw, "Graph", "["+entropyBar(value)+"]")
	} else {
		row(tw, "Entropy", "Unknown")
		row(tw, "Assessment", doc.EntropyAssessment)
	}

	if doc.Type != entities.FormatUnknown {
		section(tw, "Packer Detection")
		switch {
		case doc.PackerName != "":
			row(tw, "Packer", fmt.Sprintf("%s (confidence %d%%)", doc.PackerName, doc.PackerConfidence))
		case doc.PackedHint != "":
			row(tw, "Packer", "none detected, possibly packed ("+doc.PackedHint+")")
		default:
			row(tw, "Packer", "none detected")
		}
	}

	if len(doc.Sections) > 0 {
		section(tw, "Section Table")
		_, _ = fmt.Fprintln(tw, "Name\tOffset\tSize\tExec\tEntropy")
		for _, s := range doc.Sections {
			exec := ""
			if s.Executable {
				exec = "x"
			}
			_, _ = fmt.Fprintf(tw, "%s\t0x%x\t%d\t%s\t%.2f\n", s.Name, s.Offset, s.Size, exec, s.Entropy)
		}
	}

	return tw.Flush()
}

func section(w io.Writer, title string) {
	_, _ = fmt.Fprintf(w, "\n%s\n%s\n", title, divider)
}

func row(w io.Writer, label, value string) {
	_, _ = fmt.Fprintf(w, "%s:\t%s\n", label, value)
}

func known[T any](k entities.Known[T]) string {
	v, ok := k.Get()
	if !ok {
		return "Unknown"
	}
	return fmt.Sprint(v)
}

func knownBool(k entities.Known[bool]) string {
	v, ok := k.Get()
	switch {
	case !ok:
		return "Unknown"
	case v:
		return "Yes"
	default:
		return "No"
	}
}

// orderedFeatures returns the known checks first in display order, then
// any others by name
func orderedFeatures(checks map[entities.Feature]entities.CheckResult) []entities.Feature {
	out := make([]entities.Feature, 0, len(checks))
	seen := make(map[entities.Feature]bool, len(checks))
	for _, f := range featureOrder {
		if _, ok := checks[f]; ok {
			out = append(out, f)
			seen[f] = true
		}
	}
	var rest []entities.Feature
	for f := range checks {
		if !seen[f] {
			rest = append(rest, f)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}

// entropyBar fills cells in proportion to entropy over the 8-bit maximum
func entropyBar(value float64) string {
	filled := int(value / entities.MaxEntropy * entropyBarWidth)
	filled = max(0, min(filled, entropyBarWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", entropyBarWidth-filled)
}
