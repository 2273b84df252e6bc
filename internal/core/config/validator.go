package config

import (
	"fmt"
	"os"
	"strings"

	"checkdelta/internal/engine/threshold"

	"github.com/gobwas/glob"
	"golang.org/x/text/encoding/htmlindex"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateReports(cfg *Config) error {
	patterns := append([]string{cfg.Reports.Pattern}, cfg.Reports.Exclude...)
	for _, pattern := range patterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("reports pattern %q is invalid: %w", pattern, err)
		}
	}
	if _, err := htmlindex.Get(cfg.Reports.Encoding); err != nil {
		return fmt.Errorf("reports.encoding %q is not a known encoding", cfg.Reports.Encoding)
	}
	if cfg.Reports.Workers < 1 {
		return fmt.Errorf("reports.workers must be >= 1, got %d", cfg.Reports.Workers)
	}
	return nil
}

func validateProject(cfg *Config) error {
	if strings.ContainsAny(cfg.Project, "\n\t") {
		return fmt.Errorf("project %q must be a single line", cfg.Project)
	}
	return nil
}

func validateThresholds(cfg *Config) error {
	_, err := threshold.ParseThresholds(cfg.Thresholds)
	return err
}

func validateHealth(cfg *Config) error {
	_, err := threshold.ParseHealth(cfg.Health.Healthy, cfg.Health.Unhealthy, cfg.Health.MinimumPriority)
	return err
}

func validateHistory(cfg *Config) error {
	if cfg.History.Path == "" {
		return fmt.Errorf("history.path must not be empty")
	}
	return nil
}

func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateReports(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateProject(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateThresholds(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateHealth(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateHistory(cfg); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, validatePaths(cfg)...)

	return errs
}

func validatePaths(cfg *Config) []error {
	var errs []error

	if cfg.Rules.DescriptionsFile != "" {
		if _, err := os.Stat(cfg.Rules.DescriptionsFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("rules.descriptions_file %q does not exist", cfg.Rules.DescriptionsFile))
		}
	}

	if info, err := os.Stat(cfg.History.Path); err == nil && info.IsDir() {
		errs = append(errs, fmt.Errorf("history.path %q is a directory", cfg.History.Path))
	}

	return errs
}
