package config

import (
	"checkdelta/internal/engine/threshold"
)

// DefaultFile is the configuration file looked up in the workspace.
const DefaultFile = "checkdelta.toml"

// DefaultReportPattern matches the report written by the Maven Checkstyle
// plugin.
const DefaultReportPattern = "**/checkstyle-result.xml"

type Config struct {
	Version       int                  `toml:"version"`
	Project       string               `toml:"project"`
	Reports       Reports              `toml:"reports"`
	Sources       Sources              `toml:"sources"`
	Reference     Reference            `toml:"reference"`
	Thresholds    threshold.Thresholds `toml:"thresholds"`
	Health        Health               `toml:"health"`
	Fingerprint   Fingerprint          `toml:"fingerprint"`
	History       History              `toml:"history"`
	Observability Observability        `toml:"observability"`
	Rules         Rules                `toml:"rules"`
}

type Reports struct {
	Pattern       string   `toml:"pattern"`
	Exclude       []string `toml:"exclude"`
	Encoding      string   `toml:"encoding"`
	Module        string   `toml:"module"`
	DetectModules *bool    `toml:"detect_modules"`
	FailOnMissing bool     `toml:"fail_on_missing"`
	Workers       int      `toml:"workers"`
}

type Sources struct {
	Roots []string `toml:"roots"`
}

type Reference struct {
	UsePreviousBuild    bool `toml:"use_previous_build"`
	UseOnlyStableBuilds bool `toml:"use_only_stable_builds"`
}

type Health struct {
	Healthy         string `toml:"healthy"`
	Unhealthy       string `toml:"unhealthy"`
	MinimumPriority string `toml:"minimum_priority"`
}

type Fingerprint struct {
	Enabled *bool `toml:"enabled"`
	Persist *bool `toml:"persist"`
}

type History struct {
	Path string `toml:"path"`
}

type Observability struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	MetricsFile  string `toml:"metrics_file"`
}

type Rules struct {
	DescriptionsFile string `toml:"descriptions_file"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func (r Reports) ModulesDetected() bool {
	return r.DetectModules == nil || *r.DetectModules
}

func (f Fingerprint) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

func (f Fingerprint) Persisted() bool {
	return f.IsEnabled() && (f.Persist == nil || *f.Persist)
}
