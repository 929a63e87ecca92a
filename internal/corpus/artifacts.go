// Package corpus builds and loads the persisted record tables and embedding
// stores shared by the offline build and the online matcher.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spigell/hh-matcher/internal/record"
)

const (
	ExplanationCacheFile = "llm_explanations_cache.json"
	ExplanationCacheDB   = "llm_explanations_cache.db"
)

var rawFiles = map[record.Kind]string{
	record.KindJobs:       "vagas.json",
	record.KindApplicants: "applicants.json",
	record.KindProspects:  "prospects.json",
}

var tableFiles = map[record.Kind]string{
	record.KindJobs:       "jobs.json",
	record.KindApplicants: "applicants.json",
	record.KindProspects:  "prospects.json",
}

var storeFiles = map[record.Kind]string{
	record.KindJobs:       "vaga_embeddings.gob",
	record.KindApplicants: "candid_embeddings.gob",
	record.KindProspects:  "prospect_embeddings.gob",
}

// RawPath is the raw input file of a collection inside the data dir.
func RawPath(dataDir string, kind record.Kind) string {
	return filepath.Join(dataDir, rawFiles[kind])
}

// TablePath is the flattened record table of a collection inside the processed dir.
func TablePath(processedDir string, kind record.Kind) string {
	return filepath.Join(processedDir, tableFiles[kind])
}

// StorePath is the embedding store of a collection inside the processed dir.
func StorePath(processedDir string, kind record.Kind) string {
	return filepath.Join(processedDir, storeFiles[kind])
}

// MissingArtifactError names a required file that is not on disk.
type MissingArtifactError struct {
	Artifact string
	Path     string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact %s at %s", e.Artifact, e.Path)
}

type artifact struct {
	name string
	path string
}

// requireAll stats every artifact and reports the first one that does not exist.
func requireAll(artifacts []artifact) error {
	for _, a := range artifacts {
		info, err := os.Stat(a.path)
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingArtifactError{Artifact: a.name, Path: a.path}
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", a.path, err)
		}
		if info.IsDir() {
			return &MissingArtifactError{Artifact: a.name, Path: a.path}
		}
	}
	return nil
}

func tableArtifacts(dir string) []artifact {
	out := make([]artifact, 0, len(record.Kinds))
	for _, kind := range record.Kinds {
		out = append(out, artifact{name: tableFiles[kind], path: TablePath(dir, kind)})
	}
	return out
}

func storeArtifacts(dir string) []artifact {
	out := make([]artifact, 0, len(record.Kinds))
	for _, kind := range record.Kinds {
		out = append(out, artifact{name: storeFiles[kind], path: StorePath(dir, kind)})
	}
	return out
}

func rawArtifacts(dir string) []artifact {
	out := make([]artifact, 0, len(record.Kinds))
	for _, kind := range record.Kinds {
		out = append(out, artifact{name: rawFiles[kind], path: RawPath(dir, kind)})
	}
	return out
}
