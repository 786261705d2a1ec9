package findings

// Repo stores findings per category. Updates are addressed by index
// within a category, matching how the dashboard's tables reference
// rows.
type Repo interface {
	AddCloud(findings ...CloudFinding) error
	AddSecrets(findings ...SecretFinding) error
	AddIaC(findings ...IaCFinding) error

	Cloud() ([]CloudFinding, error)
	Secrets() ([]SecretFinding, error)
	IaC() ([]IaCFinding, error)

	UpdateCloud(index int, update FindingUpdate) (*CloudFinding, error)
	UpdateSecret(index int, update FindingUpdate) (*SecretFinding, error)
	UpdateIaC(index int, update FindingUpdate) (*IaCFinding, error)

	// Clear removes every finding from every category.
	Clear() error
}
