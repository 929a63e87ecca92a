package matcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-matcher/internal/ai/bow"
	"github.com/spigell/hh-matcher/internal/corpus"
	"github.com/spigell/hh-matcher/internal/ranking"
	"github.com/spigell/hh-matcher/internal/record"
)

type fakeExplainer struct {
	calls []string
}

func (f *fakeExplainer) GetOrGenerate(_ context.Context, job, candidate string, score float64) string {
	f.calls = append(f.calls, job+"|"+candidate)
	return "because " + candidate
}

func buildFixture(t *testing.T) string {
	t.Helper()

	dataDir := t.TempDir()
	processedDir := t.TempDir()

	files := map[string]string{
		"vagas.json": `{
			"J1": {"informacoes_basicas": {"titulo_vaga": "Python backend engineer"}},
			"J2": {"informacoes_basicas": {"titulo_vaga": "Graphic designer"}}
		}`,
		"applicants.json": `{
			"A1": {"cv_pt": "Senior Python developer"},
			"A2": {"cv_pt": "Graphic designer"}
		}`,
		"prospects.json": `{
			"J1": {"titulo": "Python backend engineer", "prospects": [{"nome": "Ana", "codigo": "1"}]}
		}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644))
	}

	p := &corpus.Pipeline{
		DataDir:      dataDir,
		ProcessedDir: processedDir,
		Flattener:    record.NewFlattener(nil),
		Builder:      corpus.NewBuilder(bow.New(bow.DefaultDimensions), 0, nil),
	}
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	return processedDir
}

func TestMatchJobRanksApplicants(t *testing.T) {
	t.Parallel()

	dir := buildFixture(t)
	explainer := &fakeExplainer{}
	svc := New(corpus.NewLoader(dir, nil), bow.New(bow.DefaultDimensions), explainer, nil)

	results, err := svc.MatchJob(context.Background(), "J1", record.KindApplicants, 5, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "A1", results[0].ID)
	require.Equal(t, 1, results[0].Rank)
	require.Greater(t, results[0].Score, results[1].Score)
	require.Equal(t, "senior python developer", results[0].Record.ProcessedText)
	require.Empty(t, results[0].Explanation)
	require.Empty(t, explainer.calls)

	results, err = svc.MatchJob(context.Background(), "J1", record.KindApplicants, 1, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "because senior python developer", results[0].Explanation)
	require.Equal(t, []string{"python backend engineer|senior python developer"}, explainer.calls)
}

func TestMatchJobProspects(t *testing.T) {
	t.Parallel()

	svc := New(corpus.NewLoader(buildFixture(t), nil), nil, nil, nil)

	results, err := svc.MatchJob(context.Background(), "J1", record.KindProspects, 5, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "J1-1", results[0].ID)
	require.Empty(t, results[0].Explanation)
}

func TestMatchJobUnknownJob(t *testing.T) {
	t.Parallel()

	svc := New(corpus.NewLoader(buildFixture(t), nil), nil, nil, nil)

	_, err := svc.MatchJob(context.Background(), "missing", record.KindApplicants, 5, false)
	require.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.JobVector("missing")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMatchTextEmbedsNormalizedQuery(t *testing.T) {
	t.Parallel()

	svc := New(corpus.NewLoader(buildFixture(t), nil), bow.New(bow.DefaultDimensions), nil, nil)

	results, err := svc.MatchText(context.Background(), "  GRÁPHIC\tdesigner ", record.KindApplicants, 1, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "A2", results[0].ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestRankDimensionMismatch(t *testing.T) {
	t.Parallel()

	svc := New(corpus.NewLoader(buildFixture(t), nil), bow.New(16), nil, nil)

	_, err := svc.MatchText(context.Background(), "python", record.KindApplicants, 3, false)
	var mismatch *ranking.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)

	_, err = svc.Rank([]float32{1}, record.Kind("unknown"), 3)
	require.ErrorIs(t, err, record.ErrUnknownKind)
}

func TestMissingArtifactsSurface(t *testing.T) {
	t.Parallel()

	svc := New(corpus.NewLoader(t.TempDir(), nil), nil, nil, nil)

	_, err := svc.MatchJob(context.Background(), "J1", record.KindApplicants, 5, false)
	var missing *corpus.MissingArtifactError
	require.ErrorAs(t, err, &missing)

	_, err = svc.LoadEmbeddings()
	require.ErrorAs(t, err, &missing)
}

type failingEmbedder struct{}

func (failingEmbedder) Model() string { return "failing" }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("offline")
}

func TestEmbedSingle(t *testing.T) {
	t.Parallel()

	svc := New(nil, bow.New(8), nil, nil)
	a, err := svc.EmbedSingle(context.Background(), "Café")
	require.NoError(t, err)
	b, err := svc.EmbedSingle(context.Background(), "cafe")
	require.NoError(t, err)
	require.Equal(t, a, b)

	_, err = New(nil, failingEmbedder{}, nil, nil).EmbedSingle(context.Background(), "x")
	var backendErr *corpus.EmbeddingBackendError
	require.ErrorAs(t, err, &backendErr)
	require.True(t, backendErr.Query)
	require.EqualError(t, err, "embedding query text: offline")

	_, err = New(nil, nil, nil, nil).EmbedSingle(context.Background(), "x")
	require.Error(t, err)
}

func TestExplainDisabled(t *testing.T) {
	t.Parallel()

	require.Empty(t, New(nil, nil, nil, nil).Explain(context.Background(), "j", "c", 0.5))
}
