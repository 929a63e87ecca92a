package record

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/hh-matcher/internal/textnorm"
)

// Flattener maps raw nested records into flat Records according to per-collection schemas.
type Flattener struct {
	schemas map[Kind]Schema
}

// NewFlattener creates a flattener. Collections missing from schemas use the defaults.
func NewFlattener(schemas map[Kind]Schema) *Flattener {
	merged := DefaultSchemas()
	for kind, schema := range schemas {
		schema.Kind = kind
		merged[kind] = schema
	}
	return &Flattener{schemas: merged}
}

// Schema returns the schema used for the collection.
func (f *Flattener) Schema(kind Kind) (Schema, error) {
	schema, ok := f.schemas[kind]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return schema, nil
}

// Flatten merges the schema sections and scalar fields of a job or applicant.
// Missing or null sections are treated as empty.
func (f *Flattener) Flatten(kind Kind, id string, raw any) (*Record, error) {
	if kind == KindProspects {
		return nil, fmt.Errorf("prospects are flattened per job, use FlattenProspects")
	}

	schema, err := f.Schema(kind)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(id) == "" {
		return nil, &MalformedRecordError{Kind: kind, ID: id, Reason: "empty id"}
	}

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, &MalformedRecordError{Kind: kind, ID: id, Reason: "record is not an object", Err: err}
	}

	fields := newFieldSet(schema)
	for _, section := range schema.Sections {
		sub, err := decodeObject(obj[section])
		if err != nil {
			return nil, &MalformedRecordError{Kind: kind, ID: id, Field: section, Reason: "section is not an object", Err: err}
		}
		fields.merge(sub, "")
	}
	for _, name := range schema.Scalars {
		fields.set(name, obj[name])
	}

	return newRecord(kind, id, "", fields.list), nil
}

// FlattenProspects expands the prospect list of one job into records. Every
// entry inherits the job fields named by the schema. An entry is dropped when
// no field of the flattened record, inherited ones included, holds a non-empty
// string before normalization. Null entries are skipped.
func (f *Flattener) FlattenProspects(jobID string, raw any) ([]*Record, error) {
	schema, err := f.Schema(KindProspects)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(jobID) == "" {
		return nil, &MalformedRecordError{Kind: KindProspects, ID: jobID, Reason: "empty id"}
	}

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, &MalformedRecordError{Kind: KindProspects, ID: jobID, Reason: "job entry is not an object", Err: err}
	}

	var entries []map[string]any
	if err := mapstructure.Decode(obj[schema.ListField], &entries); err != nil {
		return nil, &MalformedRecordError{Kind: KindProspects, ID: jobID, Field: schema.ListField, Reason: "expected a list of objects", Err: err}
	}

	records := make([]*Record, 0, len(entries))
	for i, entry := range entries {
		if entry == nil {
			continue
		}

		fields := newFieldSet(schema)
		fields.merge(entry, schema.IDField)
		for _, name := range schema.Inherit {
			fields.set(name, obj[name])
		}
		if fields.blank() {
			continue
		}

		id := prospectID(jobID, entry[schema.IDField], i+1)
		records = append(records, newRecord(KindProspects, id, jobID, fields.list))
	}

	return records, nil
}

// UniqueIDs appends a numeric suffix to repeated ids so that every record of
// the slice has a distinct id. The first occurrence keeps its id.
func UniqueIDs(records []*Record) {
	seen := make(map[string]int, len(records))
	for _, r := range records {
		seen[r.ID]++
	}

	counts := make(map[string]int, len(records))
	for _, r := range records {
		counts[r.ID]++
		if counts[r.ID] == 1 {
			continue
		}
		for n := counts[r.ID]; ; n++ {
			candidate := r.ID + "-" + strconv.Itoa(n)
			if _, taken := seen[candidate]; !taken {
				seen[candidate] = 1
				counts[r.ID] = n
				r.ID = candidate
				break
			}
		}
	}
}

func newRecord(kind Kind, id, jobID string, fields []Field) *Record {
	if fields == nil {
		fields = []Field{}
	}
	return &Record{
		ID:            id,
		Kind:          kind,
		JobID:         jobID,
		Fields:        fields,
		ProcessedText: JoinFields(fields),
	}
}

// decodeObject accepts nil as an empty object and rejects any non-object value.
func decodeObject(raw any) (map[string]any, error) {
	var out map[string]any
	if err := mapstructure.Decode(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func prospectID(jobID string, code any, position int) string {
	var c string
	switch v := code.(type) {
	case string:
		c = strings.TrimSpace(v)
	case float64:
		c = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		c = strconv.Itoa(v)
	}
	if c == "" {
		c = strconv.Itoa(position)
	}
	return jobID + "-" + c
}

// fieldSet keeps first-seen field order while letting later writers replace values.
// filled tracks whether the raw value of each field was a non-empty string.
type fieldSet struct {
	schema Schema
	list   []Field
	filled []bool
	index  map[string]int
}

func newFieldSet(schema Schema) *fieldSet {
	return &fieldSet{schema: schema, index: make(map[string]int)}
}

func (s *fieldSet) set(name string, raw any) {
	if s.schema.Excludes(name) {
		return
	}
	value := textnorm.NormalizeValue(raw)
	str, _ := raw.(string)
	if i, ok := s.index[name]; ok {
		s.list[i].Value = value
		s.filled[i] = str != ""
		return
	}
	s.index[name] = len(s.list)
	s.list = append(s.list, Field{Name: name, Value: value})
	s.filled = append(s.filled, str != "")
}

func (s *fieldSet) blank() bool {
	return !slices.Contains(s.filled, true)
}

func (s *fieldSet) merge(obj map[string]any, skip string) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k == skip {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s.set(k, obj[k])
	}
}
