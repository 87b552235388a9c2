package yaml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	"github.com/ochairo/binscope/internal/domain/interfaces/gateways"
	"github.com/ochairo/binscope/internal/domain/interfaces/repositories"
)

// SignatureSuffix is appended to a rule file name to find its detached signature
const SignatureSuffix = ".asc"

// ErrUnsigned is returned for a rule file without a detached signature
var ErrUnsigned = errors.New("rule file is not signed")

// RuleRepository implements repositories.RuleRepository using YAML files.
// With a verifier, each file's detached signature is checked; when signatures
// are required, unsigned or badly signed files are rejected.
type RuleRepository struct {
	rulesDir      string
	parser        *RuleParser
	verifier      gateways.RuleVerifier
	requireSigned bool
	logger        interfaces.Logger
}

var _ repositories.RuleRepository = (*RuleRepository)(nil)

// NewRuleRepository creates a new YAML-based rule repository.
// verifier may be nil to skip signature checks.
func NewRuleRepository(rulesDir string, verifier gateways.RuleVerifier, requireSigned bool, logger interfaces.Logger) *RuleRepository {
	return &RuleRepository{
		rulesDir:      rulesDir,
		parser:        NewRuleParser(),
		verifier:      verifier,
		requireSigned: requireSigned,
		logger:        interfaces.OrNoOp(logger),
	}
}

// RuleFile is the load outcome of one rule file
type RuleFile struct {
	Path string
	Rule *entities.SignatureRule
	Err  error
}

// LoadFiles loads every rule file in the directory, in file name order,
// and reports each outcome separately
func (r *RuleRepository) LoadFiles(ctx context.Context) ([]RuleFile, error) {
	paths, err := r.rulePaths()
	if err != nil {
		return nil, err
	}

	files := make([]RuleFile, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		rule, err := r.LoadFile(ctx, path)
		files = append(files, RuleFile{Path: path, Rule: rule, Err: err})
	}
	return files, nil
}

// LoadFile parses one rule file and checks its signature
func (r *RuleRepository) LoadFile(ctx context.Context, path string) (*entities.SignatureRule, error) {
	rule, err := r.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	if r.verifier == nil {
		return rule, nil
	}
	if err := r.verify(ctx, path); err != nil {
		if r.requireSigned {
			return nil, err
		}
		r.logger.Warn("loading rule without a valid signature",
			interfaces.F("path", path),
			interfaces.F("error", err.Error()))
		return rule, nil
	}
	rule.Signed = true
	return rule, nil
}

func (r *RuleRepository) verify(ctx context.Context, path string) error {
	sigPath := path + SignatureSuffix
	if _, err := os.Stat(sigPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrUnsigned, path)
		}
		return fmt.Errorf("failed to stat signature %s: %w", sigPath, err)
	}
	return r.verifier.VerifyDetached(ctx, path, sigPath)
}

// ListRules returns every loadable rule, in file name order.
// Files that fail to load are logged and skipped; duplicate IDs keep the first.
func (r *RuleRepository) ListRules(ctx context.Context) ([]*entities.SignatureRule, error) {
	files, err := r.LoadFiles(ctx)
	if err != nil {
		return nil, err
	}

	rules := make([]*entities.SignatureRule, 0, len(files))
	seen := make(map[string]string)
	for _, f := range files {
		if f.Err != nil {
			r.logger.Warn("skipping rule file",
				interfaces.F("path", f.Path),
				interfaces.F("error", f.Err.Error()))
			continue
		}
		if first, dup := seen[f.Rule.ID]; dup {
			r.logger.Warn("skipping duplicate rule id",
				interfaces.F("path", f.Path),
				interfaces.F("id", f.Rule.ID),
				interfaces.F("first", first))
			continue
		}
		seen[f.Rule.ID] = f.Path
		rules = append(rules, f.Rule)
	}
	return rules, nil
}

// GetRule retrieves a rule by ID
func (r *RuleRepository) GetRule(ctx context.Context, id string) (*entities.SignatureRule, error) {
	rules, err := r.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("rule not found: %s", id)
}

// rulePaths lists .yml and .yaml files; os.ReadDir sorts by name
func (r *RuleRepository) rulePaths() ([]string, error) {
	if r.rulesDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) {
			continue
		}
		paths = append(paths, filepath.Join(r.rulesDir, name))
	}
	return paths, nil
}
