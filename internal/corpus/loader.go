package corpus

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/record"
)

// Corpus is the set of flattened records of every collection.
type Corpus struct {
	Jobs       []*record.Record
	Applicants []*record.Record
	Prospects  []*record.Record

	index map[record.Kind]map[string]*record.Record
}

func newCorpus(tables map[record.Kind][]*record.Record) *Corpus {
	c := &Corpus{
		Jobs:       tables[record.KindJobs],
		Applicants: tables[record.KindApplicants],
		Prospects:  tables[record.KindProspects],
		index:      make(map[record.Kind]map[string]*record.Record, len(tables)),
	}
	for kind, records := range tables {
		byID := make(map[string]*record.Record, len(records))
		for _, r := range records {
			byID[r.ID] = r
		}
		c.index[kind] = byID
	}
	return c
}

// Records returns the collection in table order.
func (c *Corpus) Records(kind record.Kind) []*record.Record {
	switch kind {
	case record.KindJobs:
		return c.Jobs
	case record.KindApplicants:
		return c.Applicants
	case record.KindProspects:
		return c.Prospects
	}
	return nil
}

func (c *Corpus) Find(kind record.Kind, id string) (*record.Record, bool) {
	r, ok := c.index[kind][id]
	return r, ok
}

// Loader reads persisted artifacts once and hands the same result to every caller.
type Loader struct {
	dir    string
	logger *zap.Logger

	corpus     func() (*Corpus, error)
	embeddings func() (map[record.Kind]*Store, error)
}

func NewLoader(processedDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{dir: processedDir, logger: logger}
	l.corpus = sync.OnceValues(l.loadCorpus)
	l.embeddings = sync.OnceValues(l.loadEmbeddings)
	return l
}

func (l *Loader) Dir() string { return l.dir }

// LoadCorpus returns every record table. A missing table yields a
// *MissingArtifactError and no tables.
func (l *Loader) LoadCorpus() (*Corpus, error) { return l.corpus() }

// LoadEmbeddings returns the store of every collection or none of them.
func (l *Loader) LoadEmbeddings() (map[record.Kind]*Store, error) { return l.embeddings() }

func (l *Loader) loadCorpus() (*Corpus, error) {
	if err := requireAll(tableArtifacts(l.dir)); err != nil {
		return nil, err
	}

	tables := make(map[record.Kind][]*record.Record, len(record.Kinds))
	for _, kind := range record.Kinds {
		records, err := LoadTable(TablePath(l.dir, kind))
		if err != nil {
			return nil, err
		}
		tables[kind] = records
	}

	l.logger.Debug("corpus loaded",
		zap.Int("jobs", len(tables[record.KindJobs])),
		zap.Int("applicants", len(tables[record.KindApplicants])),
		zap.Int("prospects", len(tables[record.KindProspects])),
	)
	return newCorpus(tables), nil
}

func (l *Loader) loadEmbeddings() (map[record.Kind]*Store, error) {
	if err := requireAll(storeArtifacts(l.dir)); err != nil {
		return nil, err
	}

	stores := make(map[record.Kind]*Store, len(record.Kinds))
	for _, kind := range record.Kinds {
		store, err := LoadStore(StorePath(l.dir, kind))
		if err != nil {
			return nil, err
		}
		stores[kind] = store
	}

	l.logger.Debug("embeddings loaded", zap.Int("collections", len(stores)))
	return stores, nil
}
