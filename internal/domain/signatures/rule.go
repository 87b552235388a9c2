package signatures

import (
	"fmt"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// ruleModule evaluates a declarative SignatureRule
type ruleModule struct {
	rule *entities.SignatureRule
}

// NewRuleModule wraps a signature rule as a module
func NewRuleModule(rule *entities.SignatureRule) (Module, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	return &ruleModule{rule: rule}, nil
}

// ValidateRule checks that a rule can be evaluated
func ValidateRule(rule *entities.SignatureRule) error {
	if rule == nil {
		return fmt.Errorf("rule is nil")
	}
	if rule.ID == "" {
		return fmt.Errorf("rule must have an id")
	}
	if rule.Name == "" {
		return fmt.Errorf("rule %s must have a name", rule.ID)
	}
	if rule.Threshold < 1 || rule.Threshold > entities.MaxConfidence {
		return fmt.Errorf("rule %s: threshold %d outside 1-%d", rule.ID, rule.Threshold, entities.MaxConfidence)
	}
	if len(rule.Signals) == 0 {
		return fmt.Errorf("rule %s has no signals", rule.ID)
	}
	for i, sig := range rule.Signals {
		if sig.Weight <= 0 {
			return fmt.Errorf("rule %s signal %d: weight must be positive", rule.ID, i)
		}
		switch sig.Kind {
		case entities.SignalBytes:
			if len(sig.Patterns) == 0 {
				return fmt.Errorf("rule %s signal %d: bytes signal without patterns", rule.ID, i)
			}
			for j, p := range sig.Patterns {
				if len(p) == 0 {
					return fmt.Errorf("rule %s signal %d: pattern %d is empty", rule.ID, i, j)
				}
			}
			switch sig.Mode {
			case entities.MatchEach, entities.MatchAny:
			case entities.MatchMinMatches:
				if sig.MinMatches < 1 || sig.MinMatches > len(sig.Patterns) {
					return fmt.Errorf("rule %s signal %d: min_matches must be 1-%d", rule.ID, i, len(sig.Patterns))
				}
			default:
				return fmt.Errorf("rule %s signal %d: unknown mode %q", rule.ID, i, sig.Mode)
			}
		case entities.SignalEntropy:
			if sig.MinEntropy <= 0 || sig.MinEntropy > entities.MaxEntropy {
				return fmt.Errorf("rule %s signal %d: entropy min must be in (0, 8]", rule.ID, i)
			}
		case entities.SignalSize:
			if sig.MinSize <= 0 {
				return fmt.Errorf("rule %s signal %d: size min must be positive", rule.ID, i)
			}
		default:
			return fmt.Errorf("rule %s signal %d: unknown kind %q", rule.ID, i, sig.Kind)
		}
	}
	return nil
}

func (m *ruleModule) ID() string { return m.rule.ID }

func (m *ruleModule) Evaluate(data []byte, format entities.Format, entropy float64) (*entities.PackerMatch, error) {
	if !m.rule.AppliesTo(format) {
		return nil, nil
	}

	var s score
	for _, sig := range m.rule.Signals {
		s.add(evaluateSignal(sig, data, entropy))
	}

	if s.capped() < m.rule.Threshold {
		return nil, nil
	}
	return &entities.PackerMatch{Name: m.rule.Name, Confidence: s.capped()}, nil
}

func evaluateSignal(sig entities.Signal, data []byte, entropy float64) int {
	switch sig.Kind {
	case entities.SignalBytes:
		window := head(data, sig.Window)
		switch sig.Mode {
		case entities.MatchEach:
			return sig.Weight * countPresent(window, sig.Patterns...)
		case entities.MatchAny:
			if containsAny(window, sig.Patterns...) {
				return sig.Weight
			}
		case entities.MatchMinMatches:
			if countPresent(window, sig.Patterns...) >= sig.MinMatches {
				return sig.Weight
			}
		}
	case entities.SignalEntropy:
		if entropy >= sig.MinEntropy {
			return sig.Weight
		}
	case entities.SignalSize:
		if int64(len(data)) >= sig.MinSize {
			return sig.Weight
		}
	}
	return 0
}
