// Package repofakes provides a scriptable findings.Repo for tests.
package repofakes

import (
	"sync"

	"github.com/chetanran/devsecops-sec-dashboard/findings"
)

// FakeRepo wraps an in-memory repo and lets tests force failures.
type FakeRepo struct {
	mu      sync.Mutex
	inner   *findings.InMemoryRepo
	failErr error
}

var _ findings.Repo = (*FakeRepo)(nil)

func New() *FakeRepo {
	return &FakeRepo{inner: findings.NewInMemoryRepo()}
}

// FailWith makes every subsequent call return err. Pass nil to
// restore normal behaviour.
func (f *FakeRepo) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

func (f *FakeRepo) forcedErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failErr
}

func (f *FakeRepo) AddCloud(cloudFindings ...findings.CloudFinding) error {
	if err := f.forcedErr(); err != nil {
		return err
	}
	return f.inner.AddCloud(cloudFindings...)
}

func (f *FakeRepo) AddSecrets(secretFindings ...findings.SecretFinding) error {
	if err := f.forcedErr(); err != nil {
		return err
	}
	return f.inner.AddSecrets(secretFindings...)
}

func (f *FakeRepo) AddIaC(iacFindings ...findings.IaCFinding) error {
	if err := f.forcedErr(); err != nil {
		return err
	}
	return f.inner.AddIaC(iacFindings...)
}

func (f *FakeRepo) Cloud() ([]findings.CloudFinding, error) {
	if err := f.forcedErr(); err != nil {
		return nil, err
	}
	return f.inner.Cloud()
}

func (f *FakeRepo) Secrets() ([]findings.SecretFinding, error) {
	if err := f.forcedErr(); err != nil {
		return nil, err
	}
	return f.inner.Secrets()
}

func (f *FakeRepo) IaC() ([]findings.IaCFinding, error) {
	if err := f.forcedErr(); err != nil {
		return nil, err
	}
	return f.inner.IaC()
}

func (f *FakeRepo) UpdateCloud(index int, update findings.FindingUpdate) (*findings.CloudFinding, error) {
	if err := f.forcedErr(); err != nil {
		return nil, err
	}
	return f.inner.UpdateCloud(index, update)
}

func (f *FakeRepo) UpdateSecret(index int, update findings.FindingUpdate) (*findings.SecretFinding, error) {
	if err := f.forcedErr(); err != nil {
		return nil, err
	}
	return f.inner.UpdateSecret(index, update)
}

func (f *FakeRepo) UpdateIaC(index int, update findings.FindingUpdate) (*findings.IaCFinding, error) {
	if err := f.forcedErr(); err != nil {
		return nil, err
	}
	return f.inner.UpdateIaC(index, update)
}

func (f *FakeRepo) Clear() error {
	if err := f.forcedErr(); err != nil {
		return err
	}
	return f.inner.Clear()
}
