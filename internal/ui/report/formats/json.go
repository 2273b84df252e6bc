package formats

import (
	"encoding/json"

	"checkdelta/internal/core/ports"
)

// GenerateJSON renders the whole analysis result.
func GenerateJSON(res ports.AnalyzeResult) ([]byte, error) {
	if res.VerdictName == "" {
		res.VerdictName = res.Verdict.String()
	}
	return json.MarshalIndent(res, "", "  ")
}
