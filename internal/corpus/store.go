package corpus

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/spigell/hh-matcher/internal/record"
)

// Store holds the embeddings of one collection. IDs[i] is the record of Embeddings[i].
type Store struct {
	Collection record.Kind
	Model      string
	Dimensions int
	CreatedAt  time.Time
	IDs        []string
	Embeddings [][]float32
}

// NewEmptyStore returns a store with no rows.
func NewEmptyStore(kind record.Kind, model string) *Store {
	return &Store{
		Collection: kind,
		Model:      model,
		CreatedAt:  time.Now().UTC(),
		IDs:        []string{},
		Embeddings: [][]float32{},
	}
}

func (s *Store) Len() int { return len(s.IDs) }

// Row returns the embedding of id.
func (s *Store) Row(id string) ([]float32, bool) {
	for i, storedID := range s.IDs {
		if storedID == id {
			return s.Embeddings[i], true
		}
	}
	return nil, false
}

func (s *Store) validate() error {
	if len(s.IDs) != len(s.Embeddings) {
		return fmt.Errorf("%s store has %d ids and %d embeddings", s.Collection, len(s.IDs), len(s.Embeddings))
	}
	for i, row := range s.Embeddings {
		if len(row) != s.Dimensions {
			return fmt.Errorf("%s store row %d has dimension %d, expected %d", s.Collection, i, len(row), s.Dimensions)
		}
	}
	return nil
}

// SaveStore writes the store atomically, creating parent directories.
func SaveStore(path string, s *Store) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode %s store: %w", s.Collection, err)
	}
	return writeAtomic(path, buf.Bytes())
}

// LoadStore reads a store written by SaveStore.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var s Store
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", path, err)
	}
	if s.IDs == nil {
		s.IDs = []string{}
	}
	if s.Embeddings == nil {
		s.Embeddings = [][]float32{}
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	return &s, nil
}

// SaveTable writes a flattened record table as JSON.
func SaveTable(path string, records []*record.Record) error {
	if records == nil {
		records = []*record.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}
	return writeAtomic(path, data)
}

// LoadTable reads a table written by SaveTable.
func LoadTable(path string) ([]*record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	var records []*record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode table %s: %w", path, err)
	}
	for i, r := range records {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("table %s: record %d has no id", path, i)
		}
	}
	return records, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
