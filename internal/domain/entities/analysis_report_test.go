package entities

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestPackedHint(t *testing.T) {
	high := EntropyProfile{Value: 7.9, Bucket: EntropyVeryHigh}
	tests := []struct {
		name   string
		format Format
		ent    EntropyProfile
		packer *PackerMatch
		want   string
	}{
		{"ELF above threshold", FormatELF, high, nil, PackedHint},
		{"PE above threshold", FormatPE, high, nil, PackedHint},
		{"unrecognized format", FormatUnknown, high, nil, ""},
		{"signature matched", FormatPE, high, &PackerMatch{Name: "UPX", Confidence: 90}, ""},
		{"below threshold", FormatELF, EntropyProfile{Value: 7.2, Bucket: EntropyHigh}, nil, ""},
		{"entropy not measured", FormatELF, UnknownEntropy(), nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &AnalysisReport{File: BinaryFile{Format: tt.format}, Entropy: tt.ent, Packer: tt.packer}
			if got := r.PackedHint(); got != tt.want {
				t.Errorf("PackedHint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_UnknownFormatHasNoHint(t *testing.T) {
	r := &AnalysisReport{
		File:    BinaryFile{Path: "/tmp/random.bin", Format: FormatUnknown},
		Entropy: EntropyProfile{Value: 7.99, Bucket: EntropyVeryHigh},
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if bytes.Contains(out, []byte("packed_hint")) {
		t.Errorf("unrecognized file carries a packed hint: %s", out)
	}
}

func TestDocument_Entropy(t *testing.T) {
	tests := []struct {
		name           string
		ent            EntropyProfile
		wantEntropy    string
		wantAssessment string
	}{
		{"measured", EntropyProfile{Value: 6.5, Bucket: EntropyMedium}, `"entropy":6.5`, "Medium (Normal compiled binary)"},
		{"not measured", UnknownEntropy(), `"entropy":null`, "Could not calculate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &AnalysisReport{File: BinaryFile{Format: FormatELF}, Entropy: tt.ent}
			if got := r.Document().EntropyAssessment; got != tt.wantAssessment {
				t.Errorf("EntropyAssessment = %q, want %q", got, tt.wantAssessment)
			}
			out, err := json.Marshal(r)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if !bytes.Contains(out, []byte(tt.wantEntropy)) {
				t.Errorf("document missing %s: %s", tt.wantEntropy, out)
			}
		})
	}
}

func TestDocument_ImportCount(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		imports Known[int]
		want    string
	}{
		{"PE with imports", FormatPE, Some(4), `"import_count":4`},
		{"PE not inspected", FormatPE, Unknown[int](), `"import_count":null`},
		{"ELF", FormatELF, Unknown[int](), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &AnalysisReport{File: BinaryFile{Format: tt.format}, ImportCount: tt.imports}
			out, err := json.Marshal(r)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if tt.want == "" {
				if bytes.Contains(out, []byte("import_count")) {
					t.Errorf("non-PE document has import_count: %s", out)
				}
				return
			}
			if !bytes.Contains(out, []byte(tt.want)) {
				t.Errorf("document missing %s: %s", tt.want, out)
			}
		})
	}
}

func TestEncodeDecodeReport_UnknownEntropy(t *testing.T) {
	r := &AnalysisReport{
		File:        BinaryFile{Path: "/bin/app", Format: FormatPE},
		Entropy:     UnknownEntropy(),
		ImportCount: Some(7),
	}
	raw, err := EncodeReport(r)
	if err != nil {
		t.Fatalf("EncodeReport() error = %v", err)
	}
	got, err := DecodeReport(raw)
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	if got.Entropy.IsKnown() {
		t.Errorf("Entropy = %+v, want unknown", got.Entropy)
	}
	if n, ok := got.ImportCount.Get(); !ok || n != 7 {
		t.Errorf("ImportCount = %d (known %v), want 7", n, ok)
	}
}
