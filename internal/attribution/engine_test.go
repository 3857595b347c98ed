package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/errors"
	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/model"
)

// singleSplitTree has one split on feature 0: 60% of the background
// flows left to leaf value a, 40% right to leaf value b. The exact
// attribution for a row routed left is phi_0 = 0.4*(a-b).
func singleSplitTree(a, b float64) model.Tree {
	return model.Tree{
		ChildrenLeft:  []int{1, -1, -1},
		ChildrenRight: []int{2, -1, -1},
		Features:      []int{0, -1, -1},
		Thresholds:    []float64{0.5, 0, 0},
		Values:        [][]float64{{0}, {a}, {b}},
		Covers:        []float64{100, 60, 40},
	}
}

// depthTwoTree splits feature 0 at the root and feature 1 on both
// branches with symmetric covers, rewarding only rows where both
// features are high.
func depthTwoTree() model.Tree {
	return model.Tree{
		ChildrenLeft:  []int{1, 3, 5, -1, -1, -1, -1},
		ChildrenRight: []int{2, 4, 6, -1, -1, -1, -1},
		Features:      []int{0, 1, 1, -1, -1, -1, -1},
		Thresholds:    []float64{0.5, 0.5, 0.5, 0, 0, 0, 0},
		Values:        [][]float64{{0}, {0}, {0}, {0}, {0}, {0}, {1}},
		Covers:        []float64{400, 200, 200, 100, 100, 100, 100},
	}
}

func testEnsemble(trees ...model.Tree) *model.Ensemble {
	numFeatures := 2
	names := []string{"feature_a", "feature_b"}
	return &model.Ensemble{
		ModelType:    "GradientBoostedTrees",
		BaseScore:    0,
		NumFeatures:  numFeatures,
		FeatureNames: names,
		Trees:        trees,
	}
}

func TestEngineSingleSplitAnalytic(t *testing.T) {
	tests := []struct {
		name        string
		vector      []float64
		expectedPhi float64
	}{
		{
			name:        "row routed to the left leaf",
			vector:      []float64{0.0, 0.0},
			expectedPhi: 0.4 * (2.0 - (-1.0)),
		},
		{
			name:        "row routed to the right leaf",
			vector:      []float64{1.0, 0.0},
			expectedPhi: 0.6 * (-1.0 - 2.0),
		},
	}

	engine, err := NewEngine(testEnsemble(singleSplitTree(2.0, -1.0)))
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr, err := engine.Explain(tt.vector)
			require.NoError(t, err)

			assert.InDelta(t, tt.expectedPhi, attr.Values[0], 1e-9)
			// Feature 1 is never consulted and keeps an explicit zero.
			assert.Equal(t, 0.0, attr.Values[1])
			assert.Len(t, attr.Values, 2)
		})
	}
}

func TestEngineLocalAccuracy(t *testing.T) {
	ensemble := testEnsemble(singleSplitTree(2.0, -1.0), depthTwoTree())
	ensemble.BaseScore = 0.25

	engine, err := NewEngine(ensemble)
	require.NoError(t, err)

	vectors := [][]float64{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
		{0.3, 0.8},
		{0.9, 0.1},
	}

	for _, vector := range vectors {
		attr, err := engine.Explain(vector)
		require.NoError(t, err)

		margin, err := ensemble.PredictMargin(vector)
		require.NoError(t, err)

		assert.InDelta(t, margin, attr.Sum()+engine.Baseline(), 1e-4,
			"contributions plus baseline must equal the raw model output")
	}
}

func TestEngineSymmetry(t *testing.T) {
	// Both features gate the reward identically, so a row taking both
	// high branches must credit them equally.
	engine, err := NewEngine(testEnsemble(depthTwoTree()))
	require.NoError(t, err)

	attr, err := engine.Explain([]float64{1, 1})
	require.NoError(t, err)

	assert.InDelta(t, attr.Values[0], attr.Values[1], 1e-9)
	assert.Greater(t, attr.Values[0], 0.0)
}

func TestEngineDeterminism(t *testing.T) {
	engine, err := NewEngine(testEnsemble(singleSplitTree(2.0, -1.0), depthTwoTree()))
	require.NoError(t, err)

	vector := []float64{0.7, 0.2}

	first, err := engine.Explain(vector)
	require.NoError(t, err)
	second, err := engine.Explain(vector)
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
}

func TestEngineBaseline(t *testing.T) {
	// Background expectation of the single-split tree: 0.6*a + 0.4*b.
	ensemble := testEnsemble(singleSplitTree(2.0, -1.0))
	ensemble.BaseScore = 0.5

	engine, err := NewEngine(ensemble)
	require.NoError(t, err)

	assert.InDelta(t, 0.5+0.6*2.0+0.4*(-1.0), engine.Baseline(), 1e-9)
}

func TestEngineDimensionMismatch(t *testing.T) {
	engine, err := NewEngine(testEnsemble(singleSplitTree(2.0, -1.0)))
	require.NoError(t, err)

	tests := []struct {
		name   string
		vector []float64
	}{
		{name: "too few features", vector: []float64{1.0}},
		{name: "too many features", vector: []float64{1.0, 2.0, 3.0}},
		{name: "empty vector", vector: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Explain(tt.vector)
			require.Error(t, err)
			assert.True(t, errors.IsFeatureMismatch(err))
		})
	}
}

func TestEngineRequiresEnsemble(t *testing.T) {
	_, err := NewEngine(nil)
	require.Error(t, err)
	assert.True(t, errors.IsModelUnavailable(err))
}

func TestEngineMultiOutputLeavesSelectSliceZero(t *testing.T) {
	// Leaves shaped per-class must be read through slice 0, never
	// averaged across classes.
	tree := singleSplitTree(2.0, -1.0)
	tree.Values = [][]float64{{0, 0}, {2.0, -5.0}, {-1.0, 7.0}}

	engine, err := NewEngine(testEnsemble(tree))
	require.NoError(t, err)

	attr, err := engine.Explain([]float64{0.0, 0.0})
	require.NoError(t, err)

	assert.InDelta(t, 0.4*(2.0-(-1.0)), attr.Values[0], 1e-9)
}
