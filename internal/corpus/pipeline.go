package corpus

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/record"
)

// Pipeline is the offline build: raw JSON to persisted tables and stores.
type Pipeline struct {
	DataDir      string
	ProcessedDir string
	Flattener    *record.Flattener
	Builder      *Builder
	Logger       *zap.Logger
}

// Summary reports how many records each collection ended up with.
type Summary map[record.Kind]int

// Run flattens every collection and embeds all of them before writing
// anything, so a failed build leaves the previous artifacts in place.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := requireAll(rawArtifacts(p.DataDir)); err != nil {
		return nil, err
	}

	tables, err := p.flattenAll()
	if err != nil {
		return nil, err
	}

	stores := make(map[record.Kind]*Store, len(record.Kinds))
	for _, kind := range record.Kinds {
		store, err := p.Builder.Build(ctx, kind, tables[kind])
		if err != nil {
			return nil, err
		}
		stores[kind] = store
		logger.Info("embedding store built",
			zap.String("collection", string(kind)),
			zap.Int("records", store.Len()),
			zap.Int("dimensions", store.Dimensions),
		)
	}

	summary := make(Summary, len(record.Kinds))
	for _, kind := range record.Kinds {
		if err := SaveTable(TablePath(p.ProcessedDir, kind), tables[kind]); err != nil {
			return nil, err
		}
		if err := SaveStore(StorePath(p.ProcessedDir, kind), stores[kind]); err != nil {
			return nil, err
		}
		summary[kind] = len(tables[kind])
	}

	logger.Info("artifacts written", zap.String("dir", p.ProcessedDir))
	return summary, nil
}

func (p *Pipeline) flattenAll() (map[record.Kind][]*record.Record, error) {
	tables := make(map[record.Kind][]*record.Record, len(record.Kinds))

	for _, kind := range []record.Kind{record.KindJobs, record.KindApplicants} {
		entries, err := ReadRaw(RawPath(p.DataDir, kind))
		if err != nil {
			return nil, err
		}
		records := make([]*record.Record, 0, len(entries))
		for _, entry := range entries {
			r, err := p.Flattener.Flatten(kind, entry.ID, entry.Value)
			if err != nil {
				return nil, fmt.Errorf("flatten %s: %w", kind, err)
			}
			records = append(records, r)
		}
		record.UniqueIDs(records)
		tables[kind] = records
	}

	entries, err := ReadRaw(RawPath(p.DataDir, record.KindProspects))
	if err != nil {
		return nil, err
	}
	var prospects []*record.Record
	for _, entry := range entries {
		records, err := p.Flattener.FlattenProspects(entry.ID, entry.Value)
		if err != nil {
			return nil, fmt.Errorf("flatten %s: %w", record.KindProspects, err)
		}
		prospects = append(prospects, records...)
	}
	record.UniqueIDs(prospects)
	tables[record.KindProspects] = prospects

	return tables, nil
}
