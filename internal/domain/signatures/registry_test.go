package signatures

import (
	"testing"

	"github.com/ochairo/binscope/internal/domain/entities"
)

func TestDefaultRegistryOrder(t *testing.T) {
	r := NewDefaultRegistry()
	want := []string{"upx", "themida", "aspack", "pecompact"}
	got := r.Modules()
	if len(got) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.ID() != want[i] {
			t.Errorf("module %d = %s, want %s", i, m.ID(), want[i])
		}
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewUPX()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(NewUPX()); err == nil {
		t.Error("Register() duplicate should fail")
	}
	if err := r.Register(nil); err == nil {
		t.Error("Register(nil) should fail")
	}
	if _, ok := r.Get("upx"); !ok {
		t.Error("Get(upx) not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) should not be found")
	}
}

func TestRegistryFingerprint(t *testing.T) {
	a := NewDefaultRegistry()
	b := NewDefaultRegistry()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same modules should give the same fingerprint")
	}

	rule := testRule()
	m, err := NewRuleModule(rule)
	if err != nil {
		t.Fatalf("NewRuleModule() error = %v", err)
	}
	if err := b.Register(m); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	withRule := b.Fingerprint()
	if withRule == a.Fingerprint() {
		t.Error("adding a rule should change the fingerprint")
	}

	edited := testRule()
	edited.Threshold = 90
	c := NewDefaultRegistry()
	m2, _ := NewRuleModule(edited)
	_ = c.Register(m2)
	if c.Fingerprint() == withRule {
		t.Error("editing a rule should change the fingerprint")
	}

	reordered := NewRegistry()
	for _, m := range []Module{NewThemida(), NewUPX(), NewASPack(), NewPECompact()} {
		_ = reordered.Register(m)
	}
	if reordered.Fingerprint() == a.Fingerprint() {
		t.Error("module order should change the fingerprint")
	}
}

func testRule() *entities.SignatureRule {
	return &entities.SignatureRule{
		ID:        "mpress",
		Name:      "MPRESS",
		Formats:   []entities.Format{entities.FormatPE},
		Threshold: 50,
		Signals: []entities.Signal{
			{Kind: entities.SignalBytes, Mode: entities.MatchAny, Patterns: [][]byte{[]byte(".MPRESS1"), []byte(".MPRESS2")}, Weight: 60},
			{Kind: entities.SignalEntropy, MinEntropy: 7.0, Weight: 20},
		},
	}
}
