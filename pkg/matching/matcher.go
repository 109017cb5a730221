// Package matching selects the best carbon label for a product name.
package matching

import (
	"context"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// LabelRepository is the read-only lookup the matcher depends on. Both
// queries must exclude expired labels; a NULL status counts as active.
type LabelRepository interface {
	FindByNameContains(ctx context.Context, name string, limit int) ([]models.CarbonLabel, error)
	FindAllActive(ctx context.Context, limit int) ([]models.CarbonLabel, error)
}

// Scorer scores a candidate label name against the queried product name.
type Scorer interface {
	Score(input, target string) similarity.Result
}

// Config contains configuration for the product matcher.
type Config struct {
	ContainsLimit int     // Candidates fetched by the substring phase (default: 10)
	ScanLimit     int     // Candidates fetched by the full-scan phase (default: 100)
	MinScanScore  float64 // Minimum score a full-scan candidate must reach (default: 0.3)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ContainsLimit: 10,
		ScanLimit:     100,
		MinScanScore:  0.3,
	}
}

// Matcher finds the best carbon label for a free-text product name using a
// two-phase lookup: a cheap substring query first, then a bounded scan of
// all active labels when the substring query comes back empty.
type Matcher struct {
	logger ectologger.Logger
	labels LabelRepository
	scorer Scorer
	cfg    Config
}

// NewMatcher creates a new product matcher.
func NewMatcher(logger ectologger.Logger, labels LabelRepository, cfg Config) *Matcher {
	return &Matcher{
		logger: logger,
		labels: labels,
		scorer: similarity.NewScorer(),
		cfg:    cfg,
	}
}

// FindBestMatch returns the best-scoring active label for the product name,
// or nil when nothing qualifies. The substring phase never discards a
// candidate on score alone; a weak containment match still wins if it is the
// only one. The scan phase applies the minimum score cutoff.
func (m *Matcher) FindBestMatch(ctx context.Context, productName string) (*models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.FindBestMatch")
	defer span.End()

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"product_name": productName,
	})

	candidates, err := m.labels.FindByNameContains(ctx, productName, m.cfg.ContainsLimit)
	if err != nil {
		return nil, err
	}

	if best := m.bestOf(productName, candidates, 0); best != nil {
		log.WithFields(map[string]any{
			"matched_product": best.Label.ProductName,
			"score":           best.Similarity.Score,
			"method":          best.Similarity.Method,
		}).Debug("Matched label in substring phase")
		metrics.RecordMatch("contains_query", best.Similarity.Method)
		return best, nil
	}

	labels, err := m.labels.FindAllActive(ctx, m.cfg.ScanLimit)
	if err != nil {
		return nil, err
	}

	best := m.bestOf(productName, labels, m.cfg.MinScanScore)
	if best == nil {
		log.Debug("No label matched product name")
		metrics.RecordMatchMiss()
		return nil, nil
	}

	log.WithFields(map[string]any{
		"matched_product": best.Label.ProductName,
		"score":           best.Similarity.Score,
		"method":          best.Similarity.Method,
	}).Debug("Matched label in scan phase")
	metrics.RecordMatch("full_scan", best.Similarity.Method)
	return best, nil
}

// bestOf scores every active candidate, drops the ones below minScore and
// returns the top result. The sort is stable so ties keep repository order.
func (m *Matcher) bestOf(productName string, candidates []models.CarbonLabel, minScore float64) *models.MatchResult {
	scored := make([]models.MatchResult, 0, len(candidates))
	for _, label := range candidates {
		if !label.IsActive() {
			continue
		}
		result := m.scorer.Score(productName, label.ProductName)
		if result.Score < minScore {
			continue
		}
		scored = append(scored, models.MatchResult{
			Label: label,
			Similarity: models.Similarity{
				Score:  result.Score,
				Method: result.Method,
			},
		})
	}

	if len(scored) == 0 {
		return nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity.Score > scored[j].Similarity.Score
	})

	return &scored[0]
}
