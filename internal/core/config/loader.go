package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateReports(&cfg); err != nil {
		return nil, err
	}
	if err := validateProject(&cfg); err != nil {
		return nil, err
	}
	if err := validateThresholds(&cfg); err != nil {
		return nil, err
	}
	if err := validateHealth(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig when the file does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Project) == "" {
		cfg.Project = "default"
	}

	if strings.TrimSpace(cfg.Reports.Pattern) == "" {
		cfg.Reports.Pattern = DefaultReportPattern
	}
	if strings.TrimSpace(cfg.Reports.Encoding) == "" {
		cfg.Reports.Encoding = "UTF-8"
	}
	if cfg.Reports.Workers <= 0 {
		cfg.Reports.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Reports.DetectModules == nil {
		enabled := true
		cfg.Reports.DetectModules = &enabled
	}

	if len(cfg.Sources.Roots) == 0 {
		cfg.Sources.Roots = []string{"."}
	}

	if cfg.Fingerprint.Enabled == nil {
		enabled := true
		cfg.Fingerprint.Enabled = &enabled
	}
	if cfg.Fingerprint.Persist == nil {
		enabled := true
		cfg.Fingerprint.Persist = &enabled
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".checkdelta/history.db"
	}
}

func normalize(cfg *Config) {
	cfg.Project = strings.TrimSpace(cfg.Project)
	cfg.Reports.Pattern = strings.TrimSpace(cfg.Reports.Pattern)
	cfg.Reports.Encoding = strings.TrimSpace(cfg.Reports.Encoding)
	cfg.Reports.Module = strings.TrimSpace(cfg.Reports.Module)
	cfg.Reports.Exclude = trimAll(cfg.Reports.Exclude)
	cfg.Sources.Roots = trimAll(cfg.Sources.Roots)
	cfg.Health.MinimumPriority = strings.ToLower(strings.TrimSpace(cfg.Health.MinimumPriority))
	cfg.History.Path = strings.TrimSpace(cfg.History.Path)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	cfg.Observability.MetricsFile = strings.TrimSpace(cfg.Observability.MetricsFile)
	cfg.Rules.DescriptionsFile = strings.TrimSpace(cfg.Rules.DescriptionsFile)
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
