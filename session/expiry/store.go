package expiry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store persists a single expiry timestamp (epoch milliseconds).
// Implementations must be readable by every dashboard process of the
// same user so that one process clearing the store is observable by
// the others.
type Store interface {
	// Load returns the persisted expiry and whether one is present.
	Load() (expiresAtMs int64, ok bool, err error)

	// Save overwrites the persisted expiry.
	Save(expiresAtMs int64) error

	// Clear removes the persisted expiry. Clearing an empty store is
	// a no-op.
	Clear() error
}

const sessionFileName = "session.json"

type sessionRecord struct {
	ExpiresAtMs int64 `json:"expires_at_ms"`
}

// FileStore keeps the expiry in a small JSON file under the user's
// state folder, the closest analogue to same-origin browser storage.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at folder, creating the
// folder if needed.
func NewFileStore(folder string) (*FileStore, error) {
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] MkdirAll")
	}
	return &FileStore{path: filepath.Join(folder, sessionFileName)}, nil
}

func (s *FileStore) Load() (int64, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "[FileStore.Load] ReadFile")
	}
	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return 0, false, errors.Wrap(err, "[FileStore.Load] Unmarshal")
	}
	return record.ExpiresAtMs, true, nil
}

func (s *FileStore) Save(expiresAtMs int64) error {
	data, err := json.Marshal(sessionRecord{ExpiresAtMs: expiresAtMs})
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] Marshal")
	}
	// Write through a temp file so a concurrent reader never sees a
	// partial record.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] WriteFile")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[FileStore.Save] Rename")
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] Remove")
	}
	return nil
}
