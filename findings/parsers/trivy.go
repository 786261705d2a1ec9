package parsers

import (
	"encoding/json"
	"strings"

	"github.com/chetanran/devsecops-sec-dashboard/findings"
	"github.com/chetanran/devsecops-sec-dashboard/internal/utils"
	"github.com/pkg/errors"
)

type trivyReport struct {
	Results []trivyResult `json:"Results"`
}

type trivyResult struct {
	Target            string           `json:"Target"`
	Misconfigurations []trivyMisconfig `json:"Misconfigurations"`
}

type trivyMisconfig struct {
	ID            string             `json:"ID"`
	Title         string             `json:"Title"`
	Severity      string             `json:"Severity"`
	Type          string             `json:"Type"`
	PrimaryURL    string             `json:"PrimaryURL"`
	Description   string             `json:"Description"`
	Resolution    string             `json:"Resolution"`
	References    []string           `json:"References"`
	CauseMetadata trivyCauseMetadata `json:"CauseMetadata"`
}

type trivyCauseMetadata struct {
	StartLine int `json:"StartLine"`
	EndLine   int `json:"EndLine"`
}

// ParseTrivy converts Trivy config-scan JSON output into IaC findings.
// Each result target contributes one finding per misconfiguration.
func ParseTrivy(data []byte) ([]findings.IaCFinding, error) {
	var report trivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "[ParseTrivy] Unmarshal")
	}

	var parsed []findings.IaCFinding
	for _, result := range report.Results {
		for _, misconfig := range result.Misconfigurations {
			finding := findings.IaCFinding{
				CheckID:      orDefault(misconfig.ID, "UNKNOWN"),
				CheckName:    orDefault(misconfig.Title, "Unknown Issue"),
				Severity:     strings.ToUpper(orDefault(misconfig.Severity, findings.SeverityMedium)),
				ResourceType: orDefault(misconfig.Type, "unknown"),
				ResourceName: misconfig.PrimaryURL,
				FilePath:     result.Target,
				LineRange:    []int{misconfig.CauseMetadata.StartLine, misconfig.CauseMetadata.EndLine},
				Description:  misconfig.Description,
				References:   misconfig.References,
			}
			if misconfig.Resolution != "" {
				finding.Remediation = utils.Ptr(misconfig.Resolution)
			}
			parsed = append(parsed, finding)
		}
	}
	return parsed, nil
}
