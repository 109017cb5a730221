package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string { return &s }

type fakeLabelRepo struct {
	containsResults []models.CarbonLabel
	containsErr     error
	containsCalls   int

	activeResults []models.CarbonLabel
	activeErr     error
	activeCalls   int
}

func (f *fakeLabelRepo) FindByNameContains(ctx context.Context, name string, limit int) ([]models.CarbonLabel, error) {
	f.containsCalls++
	return f.containsResults, f.containsErr
}

func (f *fakeLabelRepo) FindAllActive(ctx context.Context, limit int) ([]models.CarbonLabel, error) {
	f.activeCalls++
	return f.activeResults, f.activeErr
}

// stubScorer scores by product name lookup so tests control scores exactly.
type stubScorer struct {
	scores map[string]float64
}

func (s *stubScorer) Score(input, target string) similarity.Result {
	return similarity.Result{Score: s.scores[target], Method: similarity.MethodDice}
}

func label(name string) models.CarbonLabel {
	return models.CarbonLabel{ProductName: name, CarbonFootprintValue: 1}
}

func TestFindBestMatch_SubstringPhaseWins(t *testing.T) {
	repo := &fakeLabelRepo{
		containsResults: []models.CarbonLabel{label("有機牛奶"), label("牛奶糖")},
	}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())

	result, err := m.FindBestMatch(context.Background(), "牛奶")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, similarity.MethodContains, result.Similarity.Method)
	assert.Equal(t, 0, repo.activeCalls, "scan phase should not run when the substring phase matches")
}

func TestFindBestMatch_SubstringPhaseHasNoCutoff(t *testing.T) {
	// A weak candidate from the substring query still wins; only the scan
	// phase applies the minimum score.
	repo := &fakeLabelRepo{containsResults: []models.CarbonLabel{label("weak")}}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())
	m.scorer = &stubScorer{scores: map[string]float64{"weak": 0.05}}

	result, err := m.FindBestMatch(context.Background(), "anything")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "weak", result.Label.ProductName)
	assert.Equal(t, 0.05, result.Similarity.Score)
}

func TestFindBestMatch_ScanPhaseCutoff(t *testing.T) {
	repo := &fakeLabelRepo{
		activeResults: []models.CarbonLabel{label("above"), label("below")},
	}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())
	m.scorer = &stubScorer{scores: map[string]float64{"above": 0.3, "below": 0.2999}}

	result, err := m.FindBestMatch(context.Background(), "query")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "above", result.Label.ProductName)
	assert.Equal(t, 1, repo.containsCalls)
	assert.Equal(t, 1, repo.activeCalls)
}

func TestFindBestMatch_NoQualifyingCandidate(t *testing.T) {
	repo := &fakeLabelRepo{
		activeResults: []models.CarbonLabel{label("far"), label("away")},
	}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())
	m.scorer = &stubScorer{scores: map[string]float64{"far": 0.1, "away": 0.2}}

	result, err := m.FindBestMatch(context.Background(), "query")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestFindBestMatch_ExpiredLabelsAreSkipped(t *testing.T) {
	expired := label("有機牛奶")
	expired.Status = strPtr(models.StatusExpired)
	nullStatus := label("牛奶")

	repo := &fakeLabelRepo{
		containsResults: []models.CarbonLabel{expired, nullStatus},
	}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())

	result, err := m.FindBestMatch(context.Background(), "有機牛奶")
	require.NoError(t, err)
	require.NotNil(t, result)
	// The exact-name label is expired, so the weaker active one wins.
	assert.Equal(t, "牛奶", result.Label.ProductName)
}

func TestFindBestMatch_BestScoreWins(t *testing.T) {
	repo := &fakeLabelRepo{
		containsResults: []models.CarbonLabel{label("a"), label("b"), label("c")},
	}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())
	m.scorer = &stubScorer{scores: map[string]float64{"a": 0.4, "b": 0.9, "c": 0.7}}

	result, err := m.FindBestMatch(context.Background(), "query")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "b", result.Label.ProductName)
	assert.Equal(t, 0.9, result.Similarity.Score)
}

func TestFindBestMatch_TiesKeepRepositoryOrder(t *testing.T) {
	repo := &fakeLabelRepo{
		containsResults: []models.CarbonLabel{label("first"), label("second")},
	}
	m := NewMatcher(noopLogger(), repo, DefaultConfig())
	m.scorer = &stubScorer{scores: map[string]float64{"first": 0.5, "second": 0.5}}

	result, err := m.FindBestMatch(context.Background(), "query")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "first", result.Label.ProductName)
}

func TestFindBestMatch_RepositoryErrors(t *testing.T) {
	t.Run("substring query error", func(t *testing.T) {
		repo := &fakeLabelRepo{containsErr: errors.New("connection refused")}
		m := NewMatcher(noopLogger(), repo, DefaultConfig())

		result, err := m.FindBestMatch(context.Background(), "query")
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("scan query error", func(t *testing.T) {
		repo := &fakeLabelRepo{activeErr: errors.New("connection refused")}
		m := NewMatcher(noopLogger(), repo, DefaultConfig())

		result, err := m.FindBestMatch(context.Background(), "query")
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}
