package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-matcher/internal/ai/bow"
	"github.com/spigell/hh-matcher/internal/record"
)

type fakeEmbedder struct {
	calls   [][]string
	failAt  int
	err     error
	dims    func(call int) int
	missing bool
}

func (f *fakeEmbedder) Model() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	call := len(f.calls)
	if f.err != nil && call == f.failAt {
		return nil, f.err
	}
	if f.missing {
		texts = texts[1:]
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		dim := 2
		if f.dims != nil {
			dim = f.dims(call)
		}
		vec := make([]float32, dim)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func records(ids ...string) []*record.Record {
	out := make([]*record.Record, len(ids))
	for i, id := range ids {
		out[i] = &record.Record{ID: id, ProcessedText: "text of " + id}
	}
	return out
}

func TestBuildEmptyCollection(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	store, err := NewBuilder(embedder, 0, nil).Build(context.Background(), record.KindApplicants, nil)
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())
	require.NotNil(t, store.IDs)
	require.Empty(t, store.Embeddings)
	require.Empty(t, embedder.calls)
}

func TestBuildPreservesOrderAcrossBatches(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	input := records("c", "a", "b", "e", "d")

	store, err := NewBuilder(embedder, 2, nil).Build(context.Background(), record.KindJobs, input)
	require.NoError(t, err)
	require.Len(t, embedder.calls, 3)
	require.Equal(t, []string{"c", "a", "b", "e", "d"}, store.IDs)
	require.Len(t, store.Embeddings, len(store.IDs))
	require.Equal(t, 2, store.Dimensions)
	require.Equal(t, "fake", store.Model)

	row, ok := store.Row("e")
	require.True(t, ok)
	require.Equal(t, float32(len("text of e")), row[0])
}

func TestBuildBackendFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("backend down")
	embedder := &fakeEmbedder{err: cause, failAt: 2}

	_, err := NewBuilder(embedder, 2, nil).Build(context.Background(), record.KindJobs, records("a", "b", "c"))

	var backendErr *EmbeddingBackendError
	require.ErrorAs(t, err, &backendErr)
	require.Equal(t, 2, backendErr.Offset)
	require.ErrorIs(t, err, cause)
}

func TestBuildRejectsInconsistentVectors(t *testing.T) {
	t.Parallel()

	var backendErr *EmbeddingBackendError

	short := &fakeEmbedder{missing: true}
	_, err := NewBuilder(short, 4, nil).Build(context.Background(), record.KindJobs, records("a", "b"))
	require.ErrorAs(t, err, &backendErr)

	ragged := &fakeEmbedder{dims: func(call int) int { return call + 1 }}
	_, err = NewBuilder(ragged, 1, nil).Build(context.Background(), record.KindJobs, records("a", "b"))
	require.ErrorAs(t, err, &backendErr)
}

func TestDecodeRawKeepsFileOrder(t *testing.T) {
	t.Parallel()

	entries, err := decodeRaw(strings.NewReader(`{"9": {"a": 1}, "10": null, "2": {"b": "x"}}`))
	require.NoError(t, err)

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	require.Equal(t, []string{"9", "10", "2"}, ids)
	require.Nil(t, entries[1].Value)

	_, err = decodeRaw(strings.NewReader(`[1, 2]`))
	require.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeRawFixture(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "vagas.json"), `{
		"J2": {"informacoes_basicas": {"titulo_vaga": "Graphic Designer"}},
		"J1": {"informacoes_basicas": {"titulo_vaga": "Python Backend Engineer", "cliente": "ACME"}}
	}`)
	writeFile(t, filepath.Join(dir, "applicants.json"), `{
		"A1": {"infos_basicas": {"telefone": "555"}, "cv_pt": "Senior Python developer"},
		"A2": {"cv_pt": "Graphic designer"}
	}`)
	writeFile(t, filepath.Join(dir, "prospects.json"), `{
		"J1": {"titulo": "Python", "modalidade": "Remoto", "prospects": [
			{"nome": "Ana", "codigo": "7"},
			{"nome": "Bia", "codigo": "7"}
		]},
		"J2": {"titulo": "Designer", "prospects": []},
		"J3": {"prospects": [{"codigo": "8", "nome": ""}]}
	}`)
}

func TestPipelineRunAndLoad(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	processedDir := filepath.Join(t.TempDir(), "nested", "processed")
	writeRawFixture(t, dataDir)

	p := &Pipeline{
		DataDir:      dataDir,
		ProcessedDir: processedDir,
		Flattener:    record.NewFlattener(nil),
		Builder:      NewBuilder(bow.New(64), 1, nil),
	}

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{record.KindJobs: 2, record.KindApplicants: 2, record.KindProspects: 2}, summary)

	loader := NewLoader(processedDir, nil)
	c, err := loader.LoadCorpus()
	require.NoError(t, err)

	require.Equal(t, "J2", c.Jobs[0].ID)
	require.Equal(t, "J1", c.Jobs[1].ID)
	require.Equal(t, "python backend engineer", c.Jobs[1].ProcessedText)

	a1, ok := c.Find(record.KindApplicants, "A1")
	require.True(t, ok)
	require.Equal(t, "senior python developer", a1.ProcessedText)

	require.Equal(t, "J1-7", c.Prospects[0].ID)
	require.Equal(t, "J1-7-2", c.Prospects[1].ID)
	require.Equal(t, "J1", c.Prospects[1].JobID)
	require.Equal(t, "bia python remoto", c.Prospects[1].ProcessedText)

	stores, err := loader.LoadEmbeddings()
	require.NoError(t, err)
	require.Len(t, stores, 3)
	for _, kind := range record.Kinds {
		store := stores[kind]
		require.Equal(t, kind, store.Collection)
		require.Equal(t, 64, store.Dimensions)
		require.Len(t, store.Embeddings, len(c.Records(kind)))
		for i, r := range c.Records(kind) {
			require.Equal(t, r.ID, store.IDs[i])
		}
	}

	again, err := loader.LoadCorpus()
	require.NoError(t, err)
	require.Same(t, c, again)
}

func TestPipelineEmptyCollections(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	processedDir := t.TempDir()
	for _, name := range []string{"vagas.json", "applicants.json", "prospects.json"} {
		writeFile(t, filepath.Join(dataDir, name), `{}`)
	}

	p := &Pipeline{
		DataDir:      dataDir,
		ProcessedDir: processedDir,
		Flattener:    record.NewFlattener(nil),
		Builder:      NewBuilder(&fakeEmbedder{}, 0, nil),
	}
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	stores, err := NewLoader(processedDir, nil).LoadEmbeddings()
	require.NoError(t, err)
	require.Equal(t, 0, stores[record.KindProspects].Len())
	require.NotNil(t, stores[record.KindProspects].IDs)
}

func TestPipelineFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	processedDir := t.TempDir()
	writeRawFixture(t, dataDir)

	p := &Pipeline{
		DataDir:      dataDir,
		ProcessedDir: processedDir,
		Flattener:    record.NewFlattener(nil),
		// third call embeds the first applicant batch, after jobs were done
		Builder: NewBuilder(&fakeEmbedder{err: errors.New("boom"), failAt: 3}, 1, nil),
	}

	_, err := p.Run(context.Background())
	var backendErr *EmbeddingBackendError
	require.ErrorAs(t, err, &backendErr)
	require.Equal(t, record.KindApplicants, backendErr.Collection)

	files, err := os.ReadDir(processedDir)
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestPipelineMissingRawInput(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "vagas.json"), `{}`)

	p := &Pipeline{DataDir: dataDir, ProcessedDir: t.TempDir(), Flattener: record.NewFlattener(nil), Builder: NewBuilder(&fakeEmbedder{}, 0, nil)}
	_, err := p.Run(context.Background())

	var missing *MissingArtifactError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "applicants.json", missing.Artifact)
}

func TestPipelineMalformedRecord(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	writeRawFixture(t, dataDir)
	writeFile(t, filepath.Join(dataDir, "vagas.json"), `{"J1": {"perfil_vaga": "not an object"}}`)

	p := &Pipeline{DataDir: dataDir, ProcessedDir: t.TempDir(), Flattener: record.NewFlattener(nil), Builder: NewBuilder(&fakeEmbedder{}, 0, nil)}
	_, err := p.Run(context.Background())

	var malformed *record.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "perfil_vaga", malformed.Field)
}

func TestPipelineRejectsEmptyID(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	processedDir := t.TempDir()
	writeRawFixture(t, dataDir)
	writeFile(t, filepath.Join(dataDir, "vagas.json"), `{"": {"informacoes_basicas": {"titulo_vaga": "Python"}}}`)

	p := &Pipeline{DataDir: dataDir, ProcessedDir: processedDir, Flattener: record.NewFlattener(nil), Builder: NewBuilder(bow.New(8), 0, nil)}
	_, err := p.Run(context.Background())

	var malformed *record.MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "empty id", malformed.Reason)

	files, err := os.ReadDir(processedDir)
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestPipelineDuplicateKeysGetDistinctIDs(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	processedDir := t.TempDir()
	writeRawFixture(t, dataDir)
	writeFile(t, filepath.Join(dataDir, "applicants.json"), `{
		"A1": {"cv_pt": "Python developer"},
		"A1": {"cv_pt": "Graphic designer"}
	}`)

	p := &Pipeline{DataDir: dataDir, ProcessedDir: processedDir, Flattener: record.NewFlattener(nil), Builder: NewBuilder(bow.New(32), 0, nil)}
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	loader := NewLoader(processedDir, nil)
	c, err := loader.LoadCorpus()
	require.NoError(t, err)
	require.Equal(t, "A1", c.Applicants[0].ID)
	require.Equal(t, "A1-2", c.Applicants[1].ID)

	second, ok := c.Find(record.KindApplicants, "A1-2")
	require.True(t, ok)
	require.Equal(t, "graphic designer", second.ProcessedText)

	stores, err := loader.LoadEmbeddings()
	require.NoError(t, err)
	require.Equal(t, []string{"A1", "A1-2"}, stores[record.KindApplicants].IDs)
}

func TestLoaderMissingArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, SaveTable(TablePath(dir, record.KindJobs), nil))

	loader := NewLoader(dir, nil)
	c, err := loader.LoadCorpus()
	require.Nil(t, c)

	var missing *MissingArtifactError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "applicants.json", missing.Artifact)
	require.Equal(t, filepath.Join(dir, "applicants.json"), missing.Path)

	// memoized: the file appearing later does not change the result in this session
	require.NoError(t, SaveTable(TablePath(dir, record.KindApplicants), nil))
	require.NoError(t, SaveTable(TablePath(dir, record.KindProspects), nil))
	_, err = loader.LoadCorpus()
	require.ErrorAs(t, err, &missing)

	stores, err := loader.LoadEmbeddings()
	require.Nil(t, stores)
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "vaga_embeddings.gob", missing.Artifact)
}

func TestLoadStoreRejectsInconsistentStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.gob")
	require.NoError(t, SaveStore(path, &Store{
		Collection: record.KindJobs,
		Dimensions: 2,
		IDs:        []string{"a", "b"},
		Embeddings: [][]float32{{1, 0}},
	}))

	_, err := LoadStore(path)
	require.Error(t, err)
}
