// Package yaml provides YAML-based config loading and signature rule parsing.
package yaml

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/signatures"
	"gopkg.in/yaml.v3"
)

// yamlRule represents the raw YAML structure of a rule file
type yamlRule struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	Formats   []string     `yaml:"formats"`
	Threshold int          `yaml:"threshold"`
	Signals   []yamlSignal `yaml:"signals"`
}

type yamlSignal struct {
	Kind       string        `yaml:"kind"`
	Mode       string        `yaml:"mode"`
	Patterns   []yamlPattern `yaml:"patterns"`
	Window     int           `yaml:"window"`
	MinMatches int           `yaml:"min_matches"`
	Min        float64       `yaml:"min"`
	Weight     int           `yaml:"weight"`
}

// yamlPattern is a byte pattern given either as text or as hex
type yamlPattern struct {
	Text string `yaml:"text"`
	Hex  string `yaml:"hex"`
}

// RuleParser parses YAML signature rule files
type RuleParser struct{}

// NewRuleParser creates a new YAML rule parser
func NewRuleParser() *RuleParser {
	return &RuleParser{}
}

// ParseFile parses a YAML rule file into a SignatureRule entity
func (p *RuleParser) ParseFile(filePath string) (*entities.SignatureRule, error) {
	//nolint:gosec // G304: filePath comes from the configured rules directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	rule, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	rule.Source = filePath
	return rule, nil
}

// Parse parses YAML bytes into a validated SignatureRule entity
func (p *RuleParser) Parse(data []byte) (*entities.SignatureRule, error) {
	var yamlDef yamlRule
	if err := yaml.Unmarshal(data, &yamlDef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if yamlDef.ID == "" {
		return nil, fmt.Errorf("rule must have an id")
	}

	formats, err := convertFormats(yamlDef.Formats)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", yamlDef.ID, err)
	}

	rule := &entities.SignatureRule{
		ID:        yamlDef.ID,
		Name:      yamlDef.Name,
		Formats:   formats,
		Threshold: yamlDef.Threshold,
		Signals:   make([]entities.Signal, 0, len(yamlDef.Signals)),
	}
	for i, ys := range yamlDef.Signals {
		sig, err := convertSignal(ys)
		if err != nil {
			return nil, fmt.Errorf("rule %s signal %d: %w", yamlDef.ID, i, err)
		}
		rule.Signals = append(rule.Signals, sig)
	}

	if err := signatures.ValidateRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func convertFormats(names []string) ([]entities.Format, error) {
	formats := make([]entities.Format, 0, len(names))
	for _, name := range names {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "ELF":
			formats = append(formats, entities.FormatELF)
		case "PE":
			formats = append(formats, entities.FormatPE)
		default:
			return nil, fmt.Errorf("unknown format %q", name)
		}
	}
	return formats, nil
}

func convertSignal(ys yamlSignal) (entities.Signal, error) {
	sig := entities.Signal{
		Kind:       entities.SignalKind(ys.Kind),
		Mode:       entities.MatchMode(ys.Mode),
		Window:     ys.Window,
		MinMatches: ys.MinMatches,
		Weight:     ys.Weight,
	}
	if ys.Window < 0 {
		return sig, fmt.Errorf("window must not be negative")
	}

	switch sig.Kind {
	case entities.SignalBytes:
		if sig.Mode == "" {
			sig.Mode = entities.MatchAny
		}
		for j, yp := range ys.Patterns {
			pattern, err := convertPattern(yp)
			if err != nil {
				return sig, fmt.Errorf("pattern %d: %w", j, err)
			}
			sig.Patterns = append(sig.Patterns, pattern)
		}
	case entities.SignalEntropy:
		sig.MinEntropy = ys.Min
	case entities.SignalSize:
		sig.MinSize = int64(ys.Min)
	}
	return sig, nil
}

func convertPattern(yp yamlPattern) ([]byte, error) {
	switch {
	case yp.Text != "" && yp.Hex != "":
		return nil, fmt.Errorf("set either text or hex, not both")
	case yp.Text != "":
		return []byte(yp.Text), nil
	case yp.Hex != "":
		raw, err := hex.DecodeString(strings.ReplaceAll(yp.Hex, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("pattern is empty")
	}
}
