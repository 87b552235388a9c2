package yaml

import (
	"fmt"
	"os"
	"time"

	"github.com/ochairo/binscope/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors the config file. Pointers tell an absent key apart
// from an explicit zero, so only keys present in the file override defaults.
type yamlConfig struct {
	MinStringLength    *int    `yaml:"min_string_length"`
	MaxFileSize        *int64  `yaml:"max_file_size"`
	ChunkSize          *int    `yaml:"chunk_size"`
	InspectorTimeout   *string `yaml:"inspector_timeout"`
	Workers            *int    `yaml:"workers"`
	RulesDir           *string `yaml:"rules_dir"`
	Keyring            *string `yaml:"keyring"`
	RequireSignedRules *bool   `yaml:"require_signed_rules"`
	CacheDir           *string `yaml:"cache_dir"`
	Log                yamlLog `yaml:"log"`
}

type yamlLog struct {
	Level  *string `yaml:"level"`
	Pretty *bool   `yaml:"pretty"`
}

// ConfigLoader loads analysis settings from YAML
type ConfigLoader struct{}

// NewConfigLoader creates a new YAML config loader
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

// LoadFile reads a config file over the defaults
func (l *ConfigLoader) LoadFile(filePath string) (entities.Config, error) {
	//nolint:gosec // G304: filePath is the user-supplied config path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return entities.Config{}, fmt.Errorf("failed to read config %s: %w", filePath, err)
	}
	cfg, err := l.Parse(data)
	if err != nil {
		return entities.Config{}, fmt.Errorf("%s: %w", filePath, err)
	}
	return cfg, nil
}

// Parse applies YAML bytes over the defaults and validates the result
func (l *ConfigLoader) Parse(data []byte) (entities.Config, error) {
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return entities.Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := entities.DefaultConfig()
	setIf(&cfg.MinStringLength, yc.MinStringLength)
	setIf(&cfg.MaxFileSize, yc.MaxFileSize)
	setIf(&cfg.ChunkSize, yc.ChunkSize)
	setIf(&cfg.Workers, yc.Workers)
	setIf(&cfg.RulesDir, yc.RulesDir)
	setIf(&cfg.KeyringPath, yc.Keyring)
	setIf(&cfg.RequireSignedRules, yc.RequireSignedRules)
	setIf(&cfg.CacheDir, yc.CacheDir)
	setIf(&cfg.Log.Level, yc.Log.Level)
	setIf(&cfg.Log.Pretty, yc.Log.Pretty)

	if yc.InspectorTimeout != nil {
		d, err := time.ParseDuration(*yc.InspectorTimeout)
		if err != nil {
			return entities.Config{}, fmt.Errorf("inspector_timeout: %w", err)
		}
		cfg.InspectorTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return entities.Config{}, err
	}
	return cfg, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
