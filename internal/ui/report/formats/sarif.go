package formats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/shared/version"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"
)

// sarifReport is the top-level SARIF document.
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
	Properties       *sarifRuleProperties   `json:"properties,omitempty"`
}

type sarifRuleProperties struct {
	Category string `json:"category,omitempty"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF builds a SARIF v2.1.0 document for issues, normally the new
// issues of a build. All file URIs are made relative to projectRoot;
// absolute paths are never included so that reports are safe to share.
func GenerateSARIF(projectRoot string, issues []model.Issue, rules ports.RuleMetadataProvider) ([]byte, error) {
	issues = sortedIssues(issues)
	sarifRules, index := buildSARIFRules(issues, rules)

	results := make([]sarifResult, 0, len(issues))
	for _, issue := range issues {
		result := sarifResult{
			RuleID:    issue.Type,
			RuleIndex: index[issue.Type],
			Level:     priorityLevel(issue.Priority),
			Message:   sarifMessage{Text: issue.Message},
		}
		if issue.FileName != "" {
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{
						URI:       relativeURI(projectRoot, issue.FileName),
						URIBaseID: "%SRCROOT%",
					},
				},
			}
			if issue.LineStart > 0 {
				region := &sarifRegion{StartLine: issue.LineStart, StartColumn: issue.Column}
				if issue.LineEnd > issue.LineStart {
					region.EndLine = issue.LineEnd
				}
				loc.PhysicalLocation.Region = region
			}
			result.Locations = []sarifLocation{loc}
		}
		if issue.HasFingerprint() {
			result.PartialFingerprints = map[string]string{"scopeDigest/v1": issue.Fingerprint}
		}
		results = append(results, result)
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "checkdelta",
						Version: version.Version,
						Rules:   sarifRules,
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildSARIFRules returns one rule per issue type in the results, sorted by
// name, and the index of each rule.
func buildSARIFRules(issues []model.Issue, rules ports.RuleMetadataProvider) ([]sarifRule, map[string]int) {
	levels := make(map[string]model.Priority)
	categories := make(map[string]string)
	for _, issue := range issues {
		if p, ok := levels[issue.Type]; !ok || issue.Priority < p {
			levels[issue.Type] = issue.Priority
		}
		if categories[issue.Type] == "" {
			categories[issue.Type] = issue.Category
		}
	}
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]sarifRule, 0, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		desc := ""
		if rules != nil {
			desc = rules.Description(name)
		}
		if desc == "" {
			desc = fmt.Sprintf("Checkstyle rule %s.", name)
		}
		rule := sarifRule{
			ID:               name,
			Name:             name,
			ShortDescription: sarifMessage{Text: desc},
			DefaultConfig:    sarifRuleDefaultConfig{Level: priorityLevel(levels[name])},
		}
		if categories[name] != "" {
			rule.Properties = &sarifRuleProperties{Category: categories[name]}
		}
		index[name] = i
		out = append(out, rule)
	}
	return out, index
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot. If the path is already relative or projectRoot is
// empty, the original path (with forward slashes) is returned.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		rel, err := filepath.Rel(projectRoot, filePath)
		if err == nil {
			filePath = rel
		}
	}
	// SARIF URIs use forward slashes.
	return filepath.ToSlash(filePath)
}
