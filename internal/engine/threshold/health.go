package threshold

import (
	"fmt"
	"strconv"
	"strings"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
)

// Health maps an issue count onto a 0..100 score: Healthy or fewer issues
// score 100, more than Unhealthy score 0.
type Health struct {
	Healthy         int
	Unhealthy       int
	MinimumPriority model.Priority
	enabled         bool
}

// ParseHealth builds a Health from configuration strings. Empty bounds, or
// an unhealthy bound not above the healthy one, disable health reporting.
func ParseHealth(healthy, unhealthy, minimumPriority string) (Health, error) {
	h := Health{MinimumPriority: model.PriorityLow}
	if strings.TrimSpace(minimumPriority) != "" {
		p, err := model.ParsePriority(minimumPriority)
		if err != nil {
			return Health{}, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeThresholdConfig, "invalid health minimum priority"),
				coreerrors.CtxField, "minimum_priority")
		}
		h.MinimumPriority = p
	}

	if strings.TrimSpace(healthy) == "" || strings.TrimSpace(unhealthy) == "" {
		return h, nil
	}
	var err error
	if h.Healthy, err = parseBound("healthy", healthy); err != nil {
		return Health{}, err
	}
	if h.Unhealthy, err = parseBound("unhealthy", unhealthy); err != nil {
		return Health{}, err
	}
	h.enabled = h.Unhealthy > h.Healthy
	return h, nil
}

func parseBound(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err == nil && n >= 0 {
		return n, nil
	}
	if err == nil {
		err = fmt.Errorf("negative bound %d", n)
	}
	return 0, coreerrors.AddContext(
		coreerrors.Wrap(err, coreerrors.CodeThresholdConfig,
			fmt.Sprintf("health %s must be a non-negative integer, got %q", field, value)),
		coreerrors.CtxField, field)
}

func (h Health) Enabled() bool {
	return h.enabled
}

// Score returns the health percentage for counts, counting only issues at
// or above the minimum priority. ok is false when health is disabled.
func (h Health) Score(counts model.Counts) (score int, ok bool) {
	if !h.enabled {
		return -1, false
	}
	count := counts.AtLeast(h.MinimumPriority)
	switch {
	case count <= h.Healthy:
		return 100, true
	case count > h.Unhealthy:
		return 0, true
	}
	score = 100 - (count-h.Healthy)*100/(h.Unhealthy-h.Healthy)
	return min(100, max(0, score)), true
}

// Describe is the one-line health text for a build with total issues.
func Describe(total int) string {
	switch total {
	case 0:
		return "Checkstyle: no warnings found."
	case 1:
		return "Checkstyle: 1 warning found."
	default:
		return fmt.Sprintf("Checkstyle: %d warnings found.", total)
	}
}
