package parsers

import (
	"encoding/json"
	"time"

	"github.com/chetanran/devsecops-sec-dashboard/findings"
	"github.com/chetanran/devsecops-sec-dashboard/internal/utils"
	"github.com/pkg/errors"
)

type checkovReport struct {
	Results struct {
		FailedChecks []checkovCheck `json:"failed_checks"`
	} `json:"results"`
}

type checkovCheck struct {
	CheckID       string `json:"check_id"`
	CheckName     string `json:"check_name"`
	Severity      string `json:"severity"`
	Resource      string `json:"resource"`
	FilePath      string `json:"file_path"`
	FileLineRange []int  `json:"file_line_range"`
	Description   string `json:"description"`
	Guideline     string `json:"guideline"`
}

// ParseCheckov converts Checkov JSON output into cloud findings. Only
// failed checks are reported; passed and skipped checks are ignored.
func ParseCheckov(data []byte) ([]findings.CloudFinding, error) {
	var report checkovReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "[ParseCheckov] Unmarshal")
	}

	scanTimestamp := NowTimeFunc().Format(time.RFC3339)
	parsed := make([]findings.CloudFinding, 0, len(report.Results.FailedChecks))
	for _, check := range report.Results.FailedChecks {
		finding := findings.CloudFinding{
			CheckID:       orDefault(check.CheckID, "UNKNOWN"),
			CheckName:     orDefault(check.CheckName, "Unknown Check"),
			Severity:      mapCheckovSeverity(check.Severity),
			Resource:      orDefault(check.Resource, "unknown"),
			FilePath:      check.FilePath,
			Description:   check.Description,
			ScanTimestamp: utils.Ptr(scanTimestamp),
		}
		if len(check.FileLineRange) > 0 {
			finding.LineNumber = utils.Ptr(check.FileLineRange[0])
		}
		if check.Guideline != "" {
			finding.Remediation = utils.Ptr(check.Guideline)
		}
		parsed = append(parsed, finding)
	}
	return parsed, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
