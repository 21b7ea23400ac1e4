package watermark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists a single Record
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
}

// FileStore keeps the record as a JSON document on local disk
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the record
func (s *FileStore) Load(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return rec, nil
}

// Save writes the record through a temp file and rename so a crash mid-write
// never leaves a truncated document behind
func (s *FileStore) Save(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore is an in-process Store, used in tests and dry runs
type MemoryStore struct {
	mu      sync.Mutex
	rec     *Record
	saves   int
	LoadErr error
	SaveErr error
}

// NewMemoryStore returns a store holding rec, or an empty store when rec is nil
func NewMemoryStore(rec *Record) *MemoryStore {
	s := &MemoryStore{}
	if rec != nil {
		cp := copyRecord(*rec)
		s.rec = &cp
	}
	return s
}

// Load returns the held record, or an error when empty
func (s *MemoryStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return Record{}, s.LoadErr
	}
	if s.rec == nil {
		return Record{}, fmt.Errorf("no record stored")
	}
	return copyRecord(*s.rec), nil
}

// Save replaces the held record
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	cp := copyRecord(rec)
	s.rec = &cp
	s.saves++
	return nil
}

// Saves returns how many successful saves happened
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Snapshot returns the held record and whether one exists
func (s *MemoryStore) Snapshot() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Record{}, false
	}
	return copyRecord(*s.rec), true
}

func copyRecord(rec Record) Record {
	if rec.LastProcessedID != nil {
		id := *rec.LastProcessedID
		rec.LastProcessedID = &id
	}
	return rec
}
