package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// minimalELF is a 64-bit PIE with a single non-executable stack header
func minimalELF() []byte {
	le := binary.LittleEndian
	buf := make([]byte, 64+56)
	copy(buf, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	le.PutUint16(buf[0x10:], 3)
	le.PutUint16(buf[0x12:], 0x3E)
	le.PutUint32(buf[0x14:], 1)
	le.PutUint64(buf[0x20:], 64)
	le.PutUint16(buf[0x34:], 64)
	le.PutUint16(buf[0x36:], 56)
	le.PutUint16(buf[0x38:], 1)
	le.PutUint32(buf[64:], 0x6474E551)
	le.PutUint32(buf[68:], 6)
	return append(buf, []byte("\x00hello from binscope\x00")...)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app", minimalELF())

	stdout, _, err := execute(t, "analyze", "--json", path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if doc["type"] != "ELF" || doc["architecture"] != "x86-64" {
		t.Errorf("type/architecture = %v/%v", doc["type"], doc["architecture"])
	}
	sum := sha256.Sum256(minimalELF())
	if doc["sha256"] != hex.EncodeToString(sum[:]) {
		t.Errorf("sha256 = %v", doc["sha256"])
	}
	security, _ := doc["security"].(map[string]interface{})
	if security["NX"] != "Enabled" || security["PIE"] != "Enabled" {
		t.Errorf("security = %v", security)
	}
	if doc["ssdeep"] != nil {
		t.Errorf("ssdeep = %v, want null for a tiny file", doc["ssdeep"])
	}
	if _, ok := doc["packer_name"]; ok {
		t.Error("packer_name should be omitted without a match")
	}
}

func TestAnalyze_JSONDeterministic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app", minimalELF())

	first, _, err := execute(t, "analyze", "--json", path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	second, _, err := execute(t, "analyze", "--json", path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if first != second {
		t.Errorf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestAnalyze_Text(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app", minimalELF())

	stdout, _, err := execute(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	for _, want := range []string{"Basic Information", "Security Checks", "Entropy Analysis", "Packer Detection", "none detected", "x86-64"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestAnalyze_Failures(t *testing.T) {
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.txt", []byte("just some text\n"))

	tests := []struct {
		name   string
		args   []string
		stderr string
		stdout string
	}{
		{
			name:   "missing file",
			args:   []string{"analyze", filepath.Join(dir, "missing")},
			stderr: "file not found",
		},
		{
			name:   "unsupported format",
			args:   []string{"analyze", notes},
			stderr: "unsupported format",
			stdout: "Type:",
		},
		{
			name:   "batch with one missing",
			args:   []string{"analyze", writeFile(t, dir, "ok", minimalELF()), filepath.Join(dir, "gone")},
			stderr: "gone: file not found",
			stdout: "x86-64",
		},
		{
			name:   "digest mismatch",
			args:   []string{"analyze", "--expect-sha256", strings.Repeat("0", 64), writeFile(t, dir, "app", minimalELF())},
			stderr: "checksum mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := execute(t, tt.args...)
			var exit *exitError
			if !errors.As(err, &exit) {
				t.Fatalf("error = %v, want exitError", err)
			}
			if !strings.Contains(stderr, tt.stderr) {
				t.Errorf("stderr = %q, want %q", stderr, tt.stderr)
			}
			if tt.stdout != "" && !strings.Contains(stdout, tt.stdout) {
				t.Errorf("stdout = %q, want %q", stdout, tt.stdout)
			}
		})
	}
}

func TestAnalyze_ExpectSHA256Match(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app", minimalELF())
	sum := sha256.Sum256(minimalELF())

	if _, _, err := execute(t, "analyze", "--expect-sha256", strings.ToUpper(hex.EncodeToString(sum[:])), path); err != nil {
		t.Errorf("analyze error = %v", err)
	}
}

func TestAnalyze_BatchJSON(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", minimalELF())
	b := writeFile(t, dir, "b", minimalELF())

	stdout, _, err := execute(t, "analyze", "--json", a, b)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &docs); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(docs) != 2 || docs[0]["path"] != a || docs[1]["path"] != b {
		t.Errorf("docs = %v", docs)
	}
}

func TestCache_AnalyzeAndClear(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	path := writeFile(t, dir, "app", minimalELF())

	first, _, err := execute(t, "analyze", "--json", "--cache-dir", cacheDir, path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	second, _, err := execute(t, "analyze", "--json", "--cache-dir", cacheDir, path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if first != second {
		t.Errorf("cached output differs:\n%s\n%s", first, second)
	}

	stdout, _, err := execute(t, "cache", "clear", "--cache-dir", cacheDir)
	if err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	if !strings.Contains(stdout, "Removed 1 cached reports") {
		t.Errorf("stdout = %q", stdout)
	}

	if _, _, err := execute(t, "cache", "clear"); err == nil {
		t.Error("cache clear without a directory should fail")
	}
}

const testRule = "id: %s\nname: %s\nthreshold: 10\nsignals:\n  - kind: bytes\n    patterns: [{text: hello}]\n    weight: 40\n"

func ruleFile(id string) []byte {
	return []byte(fmt.Sprintf(testRule, id, id))
}

func TestRules_ListFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	fromConfig := filepath.Join(dir, "config-rules")
	fromFlag := filepath.Join(dir, "flag-rules")
	for _, d := range []string{fromConfig, fromFlag} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, fromConfig, "a.yml", ruleFile("config-rule"))
	writeFile(t, fromFlag, "b.yml", ruleFile("flag-rule"))
	cfg := writeFile(t, dir, "binscope.yml", []byte("rules_dir: "+fromConfig+"\n"))

	stdout, _, err := execute(t, "rules", "list", "--config", cfg)
	if err != nil {
		t.Fatalf("rules list error = %v", err)
	}
	if !strings.Contains(stdout, "config-rule") || !strings.Contains(stdout, "upx") {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, err = execute(t, "rules", "list", "--config", cfg, "--rules-dir", fromFlag)
	if err != nil {
		t.Fatalf("rules list error = %v", err)
	}
	if strings.Contains(stdout, "config-rule") || !strings.Contains(stdout, "flag-rule") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRules_RuleMatchesInAnalyze(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules")
	if err := os.Mkdir(rules, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, rules, "hello.yml", ruleFile("hellopack"))
	path := writeFile(t, dir, "app", minimalELF())

	stdout, _, err := execute(t, "analyze", "--json", "--rules-dir", rules, path)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatal(err)
	}
	if doc["packer_name"] != "hellopack" || doc["packer_confidence"] != float64(40) {
		t.Errorf("packer = %v/%v", doc["packer_name"], doc["packer_confidence"])
	}
}

func TestRules_Verify(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yml", ruleFile("good"))
	writeFile(t, dir, "bad.yml", []byte("id: bad\nname: bad\nthreshold: 500\n"))

	stdout, _, err := execute(t, "rules", "verify", "--rules-dir", dir)
	var exit *exitError
	if !errors.As(err, &exit) {
		t.Fatalf("error = %v, want exitError", err)
	}
	if !strings.Contains(stdout, "OK    "+filepath.Join(dir, "good.yml")) || !strings.Contains(stdout, "FAIL  "+filepath.Join(dir, "bad.yml")) {
		t.Errorf("stdout = %q", stdout)
	}

	if _, _, err := execute(t, "rules", "verify"); err == nil {
		t.Error("rules verify without a directory should fail")
	}
}

func TestConfig_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "app", minimalELF())
	if _, _, err := execute(t, "analyze", "--workers", "0", path); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("error = %v, want invalid configuration", err)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if stdout != "binscope dev\n" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestAnalyze_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "dist")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	a := writeFile(t, sub, "a", minimalELF())
	b := writeFile(t, sub, "b", minimalELF())

	stdout, _, err := execute(t, "analyze", "--json", "-r", sub)
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	var docs []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &docs); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(docs) != 2 || docs[0]["path"] != a || docs[1]["path"] != b {
		t.Errorf("docs = %v", docs)
	}

	empty := filepath.Join(dir, "empty")
	if err := os.Mkdir(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "analyze", "-r", empty); err == nil || !strings.Contains(err.Error(), "no files found") {
		t.Errorf("error = %v, want no files found", err)
	}
}
