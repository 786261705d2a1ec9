// Package findings holds the security findings the dashboard serves:
// cloud misconfigurations, leaked secrets, and IaC issues uploaded
// from scanner output.
package findings

import "strings"

// Category identifies which store a finding belongs to.
type Category string

const (
	CategoryCloud   Category = "cloud"
	CategorySecrets Category = "secrets"
	CategoryIaC     Category = "iac"
)

// Severity levels shared by every scanner after normalization.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityInfo     = "INFO"
)

// CloudFinding is a cloud security misconfiguration finding.
type CloudFinding struct {
	CheckID       string  `json:"check_id"`
	CheckName     string  `json:"check_name"`
	Severity      string  `json:"severity"`
	Resource      string  `json:"resource"`
	FilePath      string  `json:"file_path"`
	LineNumber    *int    `json:"line_number,omitempty"`
	Description   string  `json:"description"`
	Remediation   *string `json:"remediation,omitempty"`
	ScanTimestamp *string `json:"scan_timestamp,omitempty"`
	Status        *string `json:"status,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// SecretFinding is a secret detected in code. Match is always the
// redacted display form, never the raw secret.
type SecretFinding struct {
	RuleID      string  `json:"rule_id"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	FilePath    string  `json:"file_path"`
	LineNumber  int     `json:"line_number"`
	Commit      *string `json:"commit,omitempty"`
	Author      *string `json:"author,omitempty"`
	Date        *string `json:"date,omitempty"`
	Match       string  `json:"match"`
	Status      *string `json:"status,omitempty"`
	SecretType  *string `json:"secret_type,omitempty"`
	RepoName    *string `json:"repo_name,omitempty"`
	Occurrences *int    `json:"occurrences,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// IaCFinding is an Infrastructure as Code security finding.
type IaCFinding struct {
	CheckID      string   `json:"check_id"`
	CheckName    string   `json:"check_name"`
	Severity     string   `json:"severity"`
	ResourceType string   `json:"resource_type"`
	ResourceName string   `json:"resource_name"`
	FilePath     string   `json:"file_path"`
	LineRange    []int    `json:"line_range,omitempty"`
	Description  string   `json:"description"`
	Remediation  *string  `json:"remediation,omitempty"`
	References   []string `json:"references,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
}

// SeveritySummary is the severity breakdown across every store.
type SeveritySummary struct {
	Critical int `json:"CRITICAL"`
	High     int `json:"HIGH"`
	Medium   int `json:"MEDIUM"`
	Low      int `json:"LOW"`
	Info     int `json:"INFO"`
}

// Add counts one severity value, case-insensitively. An empty
// severity counts as INFO; unrecognized values are not counted.
func (s *SeveritySummary) Add(severity string) {
	switch normalizeSeverity(severity) {
	case SeverityCritical:
		s.Critical++
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	case SeverityLow:
		s.Low++
	case SeverityInfo:
		s.Info++
	}
}

// FindingUpdate carries the only fields a dashboard user may edit on
// an existing finding.
type FindingUpdate struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

func normalizeSeverity(severity string) string {
	if severity == "" {
		return SeverityInfo
	}
	switch upper := strings.ToUpper(severity); upper {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return upper
	}
	return ""
}
