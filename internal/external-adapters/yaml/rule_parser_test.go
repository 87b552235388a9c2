package yaml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ochairo/binscope/internal/domain/entities"
)

const mpressRule = `id: mpress
name: MPRESS
formats: [PE]
threshold: 50
signals:
  - kind: bytes
    mode: any
    window: 4096
    patterns:
      - text: ".MPRESS1"
      - hex: "2e 4d 50 52 45 53 53 32"
    weight: 60
  - kind: entropy
    min: 7.0
    weight: 20
  - kind: size
    min: 100000
    weight: 5
`

func TestRuleParser_Parse_Valid(t *testing.T) {
	rule, err := NewRuleParser().Parse([]byte(mpressRule))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if rule.ID != "mpress" || rule.Name != "MPRESS" {
		t.Errorf("ID/Name = %s/%s", rule.ID, rule.Name)
	}
	if len(rule.Formats) != 1 || rule.Formats[0] != entities.FormatPE {
		t.Errorf("Formats = %v, want [PE]", rule.Formats)
	}
	if rule.Threshold != 50 {
		t.Errorf("Threshold = %d, want 50", rule.Threshold)
	}
	if len(rule.Signals) != 3 {
		t.Fatalf("Signals = %d, want 3", len(rule.Signals))
	}

	byteSig := rule.Signals[0]
	if byteSig.Window != 4096 || byteSig.Mode != entities.MatchAny {
		t.Errorf("bytes signal = %+v", byteSig)
	}
	if !bytes.Equal(byteSig.Patterns[1], []byte(".MPRESS2")) {
		t.Errorf("hex pattern = %q, want .MPRESS2", byteSig.Patterns[1])
	}
	if rule.Signals[1].MinEntropy != 7.0 {
		t.Errorf("entropy min = %v", rule.Signals[1].MinEntropy)
	}
	if rule.Signals[2].MinSize != 100000 {
		t.Errorf("size min = %v", rule.Signals[2].MinSize)
	}
}

func TestRuleParser_Parse_DefaultMode(t *testing.T) {
	rule, err := NewRuleParser().Parse([]byte(`id: x
name: X
threshold: 10
signals:
  - kind: bytes
    patterns: [{text: "XPACK"}]
    weight: 10
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if rule.Signals[0].Mode != entities.MatchAny {
		t.Errorf("Mode = %q, want any", rule.Signals[0].Mode)
	}
	if len(rule.Formats) != 0 {
		t.Errorf("Formats = %v, want all", rule.Formats)
	}
}

func TestRuleParser_Parse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing id",
			yaml:    "name: X\nthreshold: 10\n",
			wantErr: "rule must have an id",
		},
		{
			name:    "unknown format",
			yaml:    "id: x\nname: X\nformats: [MachO]\nthreshold: 10\n",
			wantErr: "unknown format",
		},
		{
			name:    "bad hex",
			yaml:    "id: x\nname: X\nthreshold: 10\nsignals:\n  - kind: bytes\n    patterns: [{hex: zz}]\n    weight: 5\n",
			wantErr: "invalid hex",
		},
		{
			name:    "text and hex",
			yaml:    "id: x\nname: X\nthreshold: 10\nsignals:\n  - kind: bytes\n    patterns: [{text: a, hex: \"61\"}]\n    weight: 5\n",
			wantErr: "not both",
		},
		{
			name:    "threshold out of range",
			yaml:    "id: x\nname: X\nthreshold: 101\nsignals:\n  - kind: size\n    min: 10\n    weight: 5\n",
			wantErr: "threshold",
		},
		{
			name:    "unknown kind",
			yaml:    "id: x\nname: X\nthreshold: 10\nsignals:\n  - kind: imports\n    weight: 5\n",
			wantErr: "unknown kind",
		},
		{
			name:    "negative window",
			yaml:    "id: x\nname: X\nthreshold: 10\nsignals:\n  - kind: bytes\n    window: -1\n    patterns: [{text: a}]\n    weight: 5\n",
			wantErr: "window",
		},
		{
			name:    "broken yaml",
			yaml:    "id: x\n  name: [broken\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleParser().Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should return an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
