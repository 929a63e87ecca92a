package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// RawEntry is one top-level member of a raw input file.
type RawEntry struct {
	ID    string
	Value any
}

// ReadRaw reads a JSON object keyed by record id. Entries are returned in
// file order so that builds are reproducible.
func ReadRaw(path string) ([]RawEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raw input: %w", err)
	}
	defer f.Close()

	entries, err := decodeRaw(f)
	if err != nil {
		return nil, fmt.Errorf("read raw input %s: %w", path, err)
	}
	return entries, nil
}

func decodeRaw(r io.Reader) ([]RawEntry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object keyed by id, got %v", tok)
	}

	var entries []RawEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode %q: %w", id, err)
		}
		entries = append(entries, RawEntry{ID: id, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
