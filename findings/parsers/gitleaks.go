package parsers

import (
	"encoding/json"

	"github.com/chetanran/devsecops-sec-dashboard/findings"
	"github.com/chetanran/devsecops-sec-dashboard/internal/utils"
	"github.com/pkg/errors"
)

// Standard Gitleaks output: a list of individual leaks at the root or
// under a "findings" key.
type gitleaksLeak struct {
	RuleID      string `json:"RuleID"`
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	Commit      string `json:"Commit"`
	Author      string `json:"Author"`
	Date        string `json:"Date"`
	Secret      string `json:"Secret"`
}

// Deduplicated format: unique secrets grouped with their locations,
// produced by the org's dedup post-processor.
type dedupReport struct {
	Secrets      []dedupSecret `json:"secrets"`
	ScanMetadata *scanMetadata `json:"scan_metadata"`
	RepoName     string        `json:"repo_name"`
}

type scanMetadata struct {
	RepoName string `json:"repo_name"`
	ScanDate string `json:"scan_date"`
}

type dedupSecret struct {
	SecretID      string          `json:"secret_id"`
	SecretType    string          `json:"secret_type"`
	Severity      string          `json:"severity"`
	SecretDisplay string          `json:"secret_display"`
	Occurrences   int             `json:"occurrences"`
	Status        string          `json:"status"`
	RepoName      string          `json:"repo_name"`
	Locations     []dedupLocation `json:"locations"`
}

type dedupLocation struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// ParseGitleaks converts Gitleaks JSON output into secret findings.
// Both the standard list format and the deduplicated grouped format
// are supported; the deduplicated format yields one finding per
// location of each unique secret.
func ParseGitleaks(data []byte) ([]findings.SecretFinding, error) {
	if report, ok := decodeDedupReport(data); ok {
		return parseDeduplicated(report), nil
	}
	return parseStandard(data)
}

func decodeDedupReport(data []byte) (*dedupReport, bool) {
	var report dedupReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false
	}
	if report.Secrets == nil || report.ScanMetadata == nil {
		return nil, false
	}
	return &report, true
}

func parseDeduplicated(report *dedupReport) []findings.SecretFinding {
	repoName := report.ScanMetadata.RepoName
	if repoName == "" {
		repoName = orDefault(report.RepoName, "Unknown")
	}

	var parsed []findings.SecretFinding
	for _, secret := range report.Secrets {
		ruleID := orDefault(secret.SecretID, "UNKNOWN")
		if len(ruleID) > 16 {
			ruleID = ruleID[:16]
		}
		secretType := orDefault(secret.SecretType, "Unknown Secret Type")
		secretRepo := orDefault(secret.RepoName, repoName)
		occurrences := secret.Occurrences
		if occurrences == 0 {
			occurrences = 1
		}

		for _, location := range secret.Locations {
			parsed = append(parsed, findings.SecretFinding{
				RuleID:      ruleID,
				Description: secretType,
				Severity:    orDefault(secret.Severity, findings.SeverityHigh),
				FilePath:    location.File,
				LineNumber:  location.Line,
				Date:        utils.Ptr(report.ScanMetadata.ScanDate),
				Match:       orDefault(secret.SecretDisplay, redactedPlaceholder),
				Status:      utils.Ptr(orDefault(secret.Status, "open")),
				SecretType:  utils.Ptr(secretType),
				RepoName:    utils.Ptr(secretRepo),
				Occurrences: utils.Ptr(occurrences),
			})
		}
	}
	return parsed
}

func parseStandard(data []byte) ([]findings.SecretFinding, error) {
	var leaks []gitleaksLeak
	if err := json.Unmarshal(data, &leaks); err != nil {
		var wrapped struct {
			Findings []gitleaksLeak `json:"findings"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, errors.Wrap(err, "[ParseGitleaks] Unmarshal")
		}
		leaks = wrapped.Findings
	}

	parsed := make([]findings.SecretFinding, 0, len(leaks))
	for _, leak := range leaks {
		finding := findings.SecretFinding{
			RuleID:      orDefault(leak.RuleID, "UNKNOWN"),
			Description: orDefault(leak.Description, "Secret detected"),
			// All raw leaks are treated as HIGH until triaged.
			Severity:   findings.SeverityHigh,
			FilePath:   leak.File,
			LineNumber: leak.StartLine,
			Match:      RedactSecret(leak.Secret),
		}
		if leak.Commit != "" {
			commit := leak.Commit
			if len(commit) > 8 {
				commit = commit[:8]
			}
			finding.Commit = utils.Ptr(commit)
		}
		if leak.Author != "" {
			finding.Author = utils.Ptr(leak.Author)
		}
		if leak.Date != "" {
			finding.Date = utils.Ptr(leak.Date)
		}
		parsed = append(parsed, finding)
	}
	return parsed, nil
}
