package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CHECKDELTA_[SECTION]_[KEY] (e.g., CHECKDELTA_HISTORY_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Project, "CHECKDELTA_PROJECT")

	// Reports
	setEnvString(&cfg.Reports.Pattern, "CHECKDELTA_REPORTS_PATTERN")
	setEnvString(&cfg.Reports.Encoding, "CHECKDELTA_REPORTS_ENCODING")
	setEnvString(&cfg.Reports.Module, "CHECKDELTA_REPORTS_MODULE")
	setEnvBool(&cfg.Reports.FailOnMissing, "CHECKDELTA_REPORTS_FAIL_ON_MISSING")
	setEnvInt(&cfg.Reports.Workers, "CHECKDELTA_REPORTS_WORKERS")

	// Reference
	setEnvBool(&cfg.Reference.UsePreviousBuild, "CHECKDELTA_REFERENCE_USE_PREVIOUS_BUILD")
	setEnvBool(&cfg.Reference.UseOnlyStableBuilds, "CHECKDELTA_REFERENCE_USE_ONLY_STABLE_BUILDS")

	// History
	setEnvString(&cfg.History.Path, "CHECKDELTA_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.OTLPEndpoint, "CHECKDELTA_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.MetricsFile, "CHECKDELTA_OBSERVABILITY_METRICS_FILE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}
