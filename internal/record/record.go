// Package record turns raw nested job, applicant and prospect JSON into flat
// records with a single processed text used as embedding input.
package record

import (
	"fmt"
	"strings"
)

// Kind names a record collection.
type Kind string

const (
	KindJobs       Kind = "jobs"
	KindApplicants Kind = "applicants"
	KindProspects  Kind = "prospects"
)

// Kinds lists every collection in build order.
var Kinds = []Kind{KindJobs, KindApplicants, KindProspects}

// ParseKind resolves a collection name, accepting a few aliases used on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jobs", "job", "vagas", "vaga":
		return KindJobs, nil
	case "applicants", "applicant", "candidates", "candidatos":
		return KindApplicants, nil
	case "prospects", "prospect":
		return KindProspects, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Field is a single cleaned value of a flattened record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is a flattened job, applicant or prospect.
type Record struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	JobID         string  `json:"job_id,omitempty"`
	Fields        []Field `json:"fields"`
	ProcessedText string  `json:"processed_text"`
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Title returns the best human readable label of the record.
func (r *Record) Title() string {
	for _, name := range []string{"titulo_vaga", "nome", "titulo"} {
		if v, ok := r.Get(name); ok && v != "" {
			return v
		}
	}
	return r.ID
}

// JoinFields joins non-empty field values with a single space, in field order.
func JoinFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		parts = append(parts, f.Value)
	}
	return strings.Join(parts, " ")
}
