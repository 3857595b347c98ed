package attribution

import (
	"fmt"

	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/errors"
)

// Predictor is the model capability the aggregator consumes: a binary
// class label and the positive-class probability for one feature
// vector. *model.Ensemble satisfies it.
type Predictor interface {
	Predict(vector []float64) (int, error)
	PredictProba(vector []float64) (float64, error)
}

// Aggregator runs prediction plus explanation over single rows and
// batches. Both paths share ExplainRow, so ranking and rounding policy
// cannot drift between them. The aggregator holds only read-only state
// and is safe for concurrent use.
type Aggregator struct {
	predictor Predictor
	engine    *Engine
	topK      int
}

// NewAggregator pairs a predictor with an attribution engine. topK
// values below one fall back to the default of five.
func NewAggregator(predictor Predictor, engine *Engine, topK int) *Aggregator {
	if topK < 1 {
		topK = DefaultTopK
	}
	return &Aggregator{
		predictor: predictor,
		engine:    engine,
		topK:      topK,
	}
}

// ExplainRow is the single source of truth for one row: predict,
// attribute, rank. Probability is rounded to four decimal places for
// the payload; raw contributions stay unrounded.
func (a *Aggregator) ExplainRow(vector []float64) (PredictionRecord, error) {
	if len(vector) != a.engine.NumFeatures() {
		return PredictionRecord{}, errors.NewFeatureMismatchError(
			fmt.Sprintf("feature vector has %d values, model expects %d",
				len(vector), a.engine.NumFeatures()), nil)
	}

	prediction, err := a.predictor.Predict(vector)
	if err != nil {
		return PredictionRecord{}, err
	}

	probability, err := a.predictor.PredictProba(vector)
	if err != nil {
		return PredictionRecord{}, err
	}

	attr, err := a.engine.Explain(vector)
	if err != nil {
		return PredictionRecord{}, err
	}

	factors, err := TopFactors(attr, a.topK)
	if err != nil {
		return PredictionRecord{}, err
	}

	label := LabelRejected
	if prediction == 1 {
		label = LabelApproved
	}

	return PredictionRecord{
		Prediction:       label,
		Probability:      roundTo(probability, 4),
		TopFactors:       factors,
		RawContributions: attr,
	}, nil
}

// RunBatch processes rows sequentially in input order; the record at
// position i carries ApplicationID i+1. A failure on any row aborts
// the whole batch rather than returning a partial result — a malformed
// row is a contract violation, and silently dropping it would corrupt
// the positional IDs and the summary counts.
func (a *Aggregator) RunBatch(vectors [][]float64) ([]PredictionRecord, BatchSummary, error) {
	records := make([]PredictionRecord, 0, len(vectors))
	summary := BatchSummary{}

	for i, vector := range vectors {
		record, err := a.ExplainRow(vector)
		if err != nil {
			return nil, BatchSummary{}, err
		}
		record.ApplicationID = i + 1
		records = append(records, record)

		summary.TotalProcessed++
		if record.Prediction == LabelApproved {
			summary.Approved++
		} else {
			summary.Rejected++
		}
	}

	if summary.TotalProcessed > 0 {
		rate := float64(summary.Approved) / float64(summary.TotalProcessed) * 100
		summary.ApprovalRatePercent = roundTo(rate, 2)
	}

	return records, summary, nil
}
