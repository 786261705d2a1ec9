package findings

import (
	"sync"

	dberrors "github.com/chetanran/devsecops-sec-dashboard/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo. A
// database-backed repo can replace it behind the same interface.
type InMemoryRepo struct {
	mu      sync.RWMutex
	cloud   []CloudFinding
	secrets []SecretFinding
	iac     []IaCFinding
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates an empty in-memory findings repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

func (r *InMemoryRepo) AddCloud(findings ...CloudFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cloud = append(r.cloud, findings...)
	return nil
}

func (r *InMemoryRepo) AddSecrets(findings ...SecretFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets = append(r.secrets, findings...)
	return nil
}

func (r *InMemoryRepo) AddIaC(findings ...IaCFinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iac = append(r.iac, findings...)
	return nil
}

func (r *InMemoryRepo) Cloud() ([]CloudFinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]CloudFinding(nil), r.cloud...), nil
}

func (r *InMemoryRepo) Secrets() ([]SecretFinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]SecretFinding(nil), r.secrets...), nil
}

func (r *InMemoryRepo) IaC() ([]IaCFinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]IaCFinding(nil), r.iac...), nil
}

func (r *InMemoryRepo) UpdateCloud(index int, update FindingUpdate) (*CloudFinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.cloud) {
		return nil, dberrors.ErrFindingNotFound
	}
	applyUpdate(update, &r.cloud[index].Status, &r.cloud[index].Notes)
	finding := r.cloud[index]
	return &finding, nil
}

func (r *InMemoryRepo) UpdateSecret(index int, update FindingUpdate) (*SecretFinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.secrets) {
		return nil, dberrors.ErrFindingNotFound
	}
	applyUpdate(update, &r.secrets[index].Status, &r.secrets[index].Notes)
	finding := r.secrets[index]
	return &finding, nil
}

func (r *InMemoryRepo) UpdateIaC(index int, update FindingUpdate) (*IaCFinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.iac) {
		return nil, dberrors.ErrFindingNotFound
	}
	applyUpdate(update, &r.iac[index].Status, &r.iac[index].Notes)
	finding := r.iac[index]
	return &finding, nil
}

func (r *InMemoryRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cloud = nil
	r.secrets = nil
	r.iac = nil
	return nil
}

// applyUpdate writes only the allowed fields, leaving absent ones
// untouched.
func applyUpdate(update FindingUpdate, status, notes **string) {
	if update.Status != nil {
		*status = update.Status
	}
	if update.Notes != nil {
		*notes = update.Notes
	}
}
