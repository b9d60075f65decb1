package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/legal-updates/app/updates"
)

const fileStoreName = "legal-updates.json"

// FileStore keeps every record in one pretty-printed JSON array.
// It assumes a single writing process.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{
		path: filepath.Join(dataDir, fileStoreName),
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *FileStore) Backend() string { return "file" }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) InsertIfNew(_ context.Context, in updates.Input) (updates.LegalUpdate, bool, error) {
	in, err := validateInput(in)
	if err != nil {
		return updates.LegalUpdate{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return updates.LegalUpdate{}, false, err
	}

	hash := in.Hash()
	slugs := make(map[string]struct{}, len(records))
	for _, record := range records {
		if recordHash(record) == hash {
			return record, false, nil
		}
		slugs[record.Slug] = struct{}{}
	}

	slug, err := updates.UniqueSlug(in.Slug, func(candidate string) (bool, error) {
		_, ok := slugs[candidate]
		return ok, nil
	})
	if err != nil {
		return updates.LegalUpdate{}, false, err
	}

	record := updates.NewRecord(uuid.NewString(), in, s.now())
	record.Slug = slug
	records = append(records, record)

	if err := s.save(records); err != nil {
		return updates.LegalUpdate{}, false, err
	}
	return record, true, nil
}

func (s *FileStore) List(_ context.Context, filters updates.UpdateFilters) ([]updates.LegalUpdate, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	return filters.Apply(records), nil
}

func (s *FileStore) GetBySlug(_ context.Context, slug string) (updates.LegalUpdate, error) {
	records, err := s.read()
	if err != nil {
		return updates.LegalUpdate{}, err
	}
	for _, record := range records {
		if record.Slug == slug {
			return record, nil
		}
	}
	return updates.LegalUpdate{}, ErrNotFound
}

func (s *FileStore) UpdateStatus(_ context.Context, id string, status updates.Status) (updates.LegalUpdate, error) {
	if !status.Valid() {
		return updates.LegalUpdate{}, fmt.Errorf("%w: %q", updates.ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return updates.LegalUpdate{}, err
	}

	for i := range records {
		if records[i].ID != id {
			continue
		}
		if !updates.CanTransition(records[i].Status, status) {
			return updates.LegalUpdate{}, fmt.Errorf("%w: cannot move from %s to %s", updates.ErrInvalidStatus, records[i].Status, status)
		}
		records[i].Status = status
		records[i].UpdatedAt = s.now()
		if err := s.save(records); err != nil {
			return updates.LegalUpdate{}, err
		}
		return records[i], nil
	}

	return updates.LegalUpdate{}, ErrNotFound
}

func (s *FileStore) Hashes(_ context.Context) (map[string]struct{}, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]struct{}, len(records))
	for _, record := range records {
		hashes[recordHash(record)] = struct{}{}
	}
	return hashes, nil
}

func (s *FileStore) Count(_ context.Context) (int, error) {
	records, err := s.read()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() ([]updates.LegalUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load must be called with mu held. A missing file is created as an empty array.
func (s *FileStore) load() ([]updates.LegalUpdate, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.save([]updates.LegalUpdate{}); err != nil {
			return nil, err
		}
		return []updates.LegalUpdate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var records []updates.LegalUpdate
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *FileStore) save(records []updates.LegalUpdate) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Records written before the hash field existed are keyed on the fly.
func recordHash(record updates.LegalUpdate) string {
	if record.Hash != "" {
		return record.Hash
	}
	return updates.GenerateUpdateHash(record.Title, record.PublishedAt)
}
