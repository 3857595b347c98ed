package attribution

import (
	"fmt"

	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/errors"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/model"
)

// Engine computes exact per-feature attributions for a frozen tree
// ensemble. Construction pays the constant structural cost once (the
// per-tree background expectations); Explain is pure per-call
// computation with no shared mutable state, so one Engine is safe for
// concurrent use across requests.
type Engine struct {
	ensemble      *model.Ensemble
	baseline      float64
	outputIndex   int
	treeBaselines []float64
}

// NewEngine wraps a frozen ensemble. When leaf values carry more than
// one output slice, the engine reads slice 0 — the positive-class
// margin — for every tree; it never averages across classes.
func NewEngine(ensemble *model.Ensemble) (*Engine, error) {
	if ensemble == nil {
		return nil, errors.NewModelUnavailableError("attribution engine requires a loaded ensemble", nil)
	}

	const out = 0
	e := &Engine{
		ensemble:      ensemble,
		outputIndex:   out,
		treeBaselines: make([]float64, len(ensemble.Trees)),
	}

	e.baseline = ensemble.BaseScore
	for ti := range ensemble.Trees {
		e.treeBaselines[ti] = expectedValue(&ensemble.Trees[ti], 0, out)
		e.baseline += e.treeBaselines[ti]
	}

	return e, nil
}

// Baseline returns the model's expected margin output over the training
// background, the zero-point every attribution is measured against.
func (e *Engine) Baseline() float64 {
	return e.baseline
}

// NumFeatures returns the trained feature count.
func (e *Engine) NumFeatures() int {
	return e.ensemble.NumFeatures
}

// FeatureNames returns the trained feature layout, in order.
func (e *Engine) FeatureNames() []string {
	return e.ensemble.FeatureNames
}

// Explain computes one additive contribution per feature for the given
// vector. The contributions satisfy local accuracy: their sum plus
// Baseline() equals the ensemble's margin output for the vector.
// Features the model never consulted keep an explicit zero.
func (e *Engine) Explain(vector []float64) (Attribution, error) {
	if len(vector) != e.ensemble.NumFeatures {
		return Attribution{}, errors.NewFeatureMismatchError(
			fmt.Sprintf("feature vector has %d values, model expects %d",
				len(vector), e.ensemble.NumFeatures), nil)
	}

	phi := make([]float64, e.ensemble.NumFeatures)
	for ti := range e.ensemble.Trees {
		treeShap(&e.ensemble.Trees[ti], vector, phi, e.outputIndex)
	}

	return Attribution{
		Names:  e.ensemble.FeatureNames,
		Values: phi,
	}, nil
}
