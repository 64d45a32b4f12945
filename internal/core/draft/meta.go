package draft

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Meta is the sync index stored next to the draft. It remembers the hash of
// the draft content last synced and, per file, which comment targets the
// draft was responsible for. Only those targets may be deleted by a later
// sync; comments added through other surfaces are never draft casualties.
type Meta struct {
	DraftHash string              `json:"draft_hash"`
	Synced    map[string][]string `json:"synced,omitempty"`
}

// NewMeta returns an empty index.
func NewMeta() *Meta {
	return &Meta{Synced: map[string][]string{}}
}

// ContentHash hashes draft bytes for the change check.
func ContentHash(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ShouldSync reports whether the draft content differs from the last synced
// state. It costs one hash of the draft, nothing proportional to the
// repository.
func (m *Meta) ShouldSync(data []byte) bool {
	return m.DraftHash != ContentHash(data)
}

// SetSynced records the targets the draft now owns for path, sorted for
// stable output. An empty set drops the entry.
func (m *Meta) SetSynced(path string, targets []string) {
	if m.Synced == nil {
		m.Synced = map[string][]string{}
	}
	if len(targets) == 0 {
		delete(m.Synced, path)
		return
	}
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)
	m.Synced[path] = sorted
}

// WasSynced reports whether target was draft-owned for path at last sync.
func (m *Meta) WasSynced(path, target string) bool {
	for _, t := range m.Synced[path] {
		if t == target {
			return true
		}
	}
	return false
}

// LoadMeta reads the index, returning an empty one when the file is absent.
func LoadMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewMeta(), nil
		}
		return nil, fmt.Errorf("read draft meta: %w", err)
	}
	m := NewMeta()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse draft meta: %w", err)
	}
	return m, nil
}

// SaveMeta writes the index, creating the draft directory if needed.
func SaveMeta(path string, m *Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft meta: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write draft meta: %w", err)
	}
	return nil
}
