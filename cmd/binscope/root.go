package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/binscope/internal/domain-adapters/gateways"
	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	domainGateways "github.com/ochairo/binscope/internal/domain/interfaces/gateways"
	"github.com/ochairo/binscope/internal/domain/interfaces/repositories"
	"github.com/ochairo/binscope/internal/domain/signatures"
	"github.com/ochairo/binscope/internal/external-adapters/logging"
	"github.com/ochairo/binscope/internal/external-adapters/yaml"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath    string
	logLevel      string
	rulesDir      string
	keyring       string
	requireSigned bool
	cacheDir      string
	minLength     int
	maxFileSize   int64
	workers       int
	timeout       time.Duration
	logOutput     io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{logOutput: os.Stderr}

	cmd := &cobra.Command{
		Use:   "binscope",
		Short: "Static inspection of ELF and PE executables",
		Long: `Inspect ELF and PE executables without running them.

binscope reports format and header details, content digests, printable
string count, entropy, security hardening features and known packers.

Configuration Priority:
  1. Command line flags (highest)
  2. Config file given with --config
  3. Built-in defaults`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.rulesDir, "rules-dir", "", "Directory of YAML signature rules")
	f.StringVar(&opts.keyring, "keyring", "", "Armored or binary OpenPGP keyring for rule signatures")
	f.BoolVar(&opts.requireSigned, "require-signed", false, "Reject rule files without a valid signature")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "Directory of the report cache (empty disables it)")
	f.IntVar(&opts.minLength, "min-length", 0, "Minimum printable run counted as a string")
	f.Int64Var(&opts.maxFileSize, "max-file-size", 0, "Bytes kept in memory for header, security and packer analysis")
	f.IntVar(&opts.workers, "workers", 0, "Concurrent analyses per file")
	f.DurationVar(&opts.timeout, "timeout", 0, "Timeout for ELF and PE introspection")

	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newRulesCmd(opts))
	cmd.AddCommand(newCacheCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig applies defaults, then the config file, then changed flags
func (o *globalOptions) loadConfig(cmd *cobra.Command) (entities.Config, error) {
	cfg := entities.DefaultConfig()
	if o.configPath != "" {
		loaded, err := yaml.NewConfigLoader().LoadFile(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("rules-dir") {
		cfg.RulesDir = o.rulesDir
	}
	if flags.Changed("keyring") {
		cfg.KeyringPath = o.keyring
	}
	if flags.Changed("require-signed") {
		cfg.RequireSignedRules = o.requireSigned
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = o.cacheDir
	}
	if flags.Changed("min-length") {
		cfg.MinStringLength = o.minLength
	}
	if flags.Changed("max-file-size") {
		cfg.MaxFileSize = o.maxFileSize
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("timeout") {
		cfg.InspectorTimeout = o.timeout
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *globalOptions) newLogger(cfg entities.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: o.logOutput,
	})
}

// newRuleRepository opens the configured rules directory, verifying rule
// signatures when a keyring is set
func newRuleRepository(cfg entities.Config, logger interfaces.Logger) (*yaml.RuleRepository, error) {
	var verifier domainGateways.RuleVerifier
	if cfg.KeyringPath != "" {
		v, err := gateways.NewGPGVerifier(cfg.KeyringPath)
		if err != nil {
			return nil, err
		}
		verifier = v
	}
	return yaml.NewRuleRepository(cfg.RulesDir, verifier, cfg.RequireSignedRules, logger), nil
}

// buildRegistry registers the built-in modules followed by the rule files
// of the configured rules directory
func buildRegistry(ctx context.Context, cfg entities.Config, logger interfaces.Logger) (*signatures.Registry, error) {
	if cfg.RulesDir == "" {
		return signatures.NewDefaultRegistry(), nil
	}
	repo, err := newRuleRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	return registryFromRules(ctx, repo, logger)
}

// registryFromRules registers the built-in modules, then every rule repo
// lists. Rules that fail validation or reuse an id are skipped.
func registryFromRules(ctx context.Context, repo repositories.RuleRepository, logger interfaces.Logger) (*signatures.Registry, error) {
	registry := signatures.NewDefaultRegistry()
	rules, err := repo.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		m, err := signatures.NewRuleModule(rule)
		if err == nil {
			err = registry.Register(m)
		}
		if err != nil {
			logger.Warn("skipping rule",
				interfaces.F("path", rule.Source),
				interfaces.F("error", err.Error()))
			continue
		}
		logger.Debug("rule loaded",
			interfaces.F("id", rule.ID),
			interfaces.F("signed", rule.Signed))
	}
	return registry, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the binscope version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "binscope %s\n", version)
			return err
		},
	}
}
