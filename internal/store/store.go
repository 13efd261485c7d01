// Package store reads and writes the JSON documents under the mcpswap
// configuration tree: server definitions, profiles, the loaded-profile
// marker, and the rollback snapshot. All writes are atomic (temp file in
// the same directory, then rename) so a crash mid-write never corrupts
// the original.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"mcpswap/internal/model"
	"mcpswap/internal/paths"
)

// ErrNotFound indicates a requested document does not exist on disk.
var ErrNotFound = errors.New("not found")

// ErrInvalidJSON indicates a document exists but is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Store accesses the documents under a single configuration root.
type Store struct {
	root string
}

// New returns a store rooted at the given configuration directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the configuration directory this store operates on.
func (s *Store) Root() string {
	return s.root
}

// ServerPath returns the path of a server definition file.
func (s *Store) ServerPath(name string) string {
	return filepath.Join(paths.ServersDir(s.root), name+".json")
}

// ProfilePath returns the path of a profile file.
func (s *Store) ProfilePath(name string) string {
	return filepath.Join(paths.ProfilesDir(s.root), name+".json")
}

// MarkerPath returns the path of the loaded-profile marker.
func (s *Store) MarkerPath() string {
	return paths.MarkerPath(s.root)
}

// SnapshotPath returns the path of the rollback snapshot.
func (s *Store) SnapshotPath() string {
	return paths.SnapshotPath(s.root)
}

// ReadDocument reads a JSON file and validates that it contains a single
// JSON object. Returns ErrNotFound or ErrInvalidJSON (both carrying the
// path) on failure.
func ReadDocument(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, path)
	}
	return json.RawMessage(data), nil
}

// WriteDocument writes data to path atomically: the bytes land in a temp
// file in the destination directory first, then a rename swaps it in.
func WriteDocument(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()[:8]))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s into place: %w", tmp, err)
	}
	return nil
}

// LoadProfile loads a named profile.
func (s *Store) LoadProfile(name string) (*model.Profile, error) {
	fp := s.ProfilePath(name)
	raw, err := ReadDocument(fp)
	if err != nil {
		return nil, err
	}

	var p model.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, fp)
	}
	if p.Servers == nil {
		p.Servers = []string{}
	}
	return &p, nil
}

// SaveProfile persists a profile under the given name.
func (s *Store) SaveProfile(name string, p *model.Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", name, err)
	}
	return WriteDocument(s.ProfilePath(name), append(data, '\n'))
}

// DeleteProfile removes a profile file.
func (s *Store) DeleteProfile(name string) error {
	fp := s.ProfilePath(name)
	if err := os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, fp)
		}
		return fmt.Errorf("failed to remove %s: %w", fp, err)
	}
	return nil
}

// ListProfiles returns the names of all stored profiles, sorted. Non-.json
// files and the reserved "last" name are skipped.
func (s *Store) ListProfiles() ([]string, error) {
	return listJSONNames(paths.ProfilesDir(s.root))
}

// LoadServer loads a named server definition. The body is validated as a
// JSON object but otherwise kept verbatim.
func (s *Store) LoadServer(name string) (model.ServerDefinition, error) {
	raw, err := ReadDocument(s.ServerPath(name))
	if err != nil {
		return model.ServerDefinition{}, err
	}
	return model.ServerDefinition{Name: name, Raw: raw}, nil
}

// SaveServer persists a server definition body under the given name.
// The body must be a JSON object.
func (s *Store) SaveServer(name string, body json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return fmt.Errorf("%w: server %s body is not a JSON object", ErrInvalidJSON, name)
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal server %s: %w", name, err)
	}
	return WriteDocument(s.ServerPath(name), append(data, '\n'))
}

// DeleteServer removes a server definition file.
func (s *Store) DeleteServer(name string) error {
	fp := s.ServerPath(name)
	if err := os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, fp)
		}
		return fmt.Errorf("failed to remove %s: %w", fp, err)
	}
	return nil
}

// ListServers returns the names of all stored server definitions, sorted.
func (s *Store) ListServers() ([]string, error) {
	return listJSONNames(paths.ServersDir(s.root))
}

// LoadedProfile reads the loaded-profile marker. Returns "" if no marker
// has been written yet.
func (s *Store) LoadedProfile() string {
	data, err := os.ReadFile(s.MarkerPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetLoadedProfile records name as the currently active profile.
func (s *Store) SetLoadedProfile(name string) error {
	return WriteDocument(s.MarkerPath(), []byte(name+"\n"))
}

// LoadSnapshot reads the rollback snapshot: the managed-key object as it
// existed before the most recent activation.
func (s *Store) LoadSnapshot() (json.RawMessage, error) {
	return ReadDocument(s.SnapshotPath())
}

// SaveSnapshot overwrites the rollback snapshot.
func (s *Store) SaveSnapshot(content json.RawMessage) error {
	var buf map[string]json.RawMessage
	if err := json.Unmarshal(content, &buf); err != nil {
		return fmt.Errorf("%w: snapshot content is not a JSON object", ErrInvalidJSON)
	}
	data, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return WriteDocument(s.SnapshotPath(), append(data, '\n'))
}

func listJSONNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if name == model.ReservedSnapshotName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
