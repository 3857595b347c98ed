package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Tree is a single regression tree of the boosted ensemble, stored as
// parallel node arrays the way gradient-boosting libraries export them.
// A node i is a leaf iff ChildrenLeft[i] < 0. Values holds one output
// slice per node; interior nodes carry zeros. Covers is the training
// sample weight that reached each node and is required for computing
// background expectations during attribution.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Features      []int       `json:"features"`
	Thresholds    []float64   `json:"thresholds"`
	Values        [][]float64 `json:"values"`
	Covers        []float64   `json:"covers"`
}

// IsLeaf reports whether node i is a leaf.
func (t *Tree) IsLeaf(i int) bool {
	return t.ChildrenLeft[i] < 0
}

// Decide walks the tree for one feature vector and returns the index of
// the reached leaf. Values strictly below the threshold route left,
// matching the split convention of the training library.
func (t *Tree) Decide(x []float64) int {
	node := 0
	for !t.IsLeaf(node) {
		if x[t.Features[node]] < t.Thresholds[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

// Ensemble is a frozen gradient-boosted tree classifier for the
// positive class. Tree outputs are margins (log-odds); the predicted
// probability is the sigmoid of BaseScore plus the sum of leaf values.
// The struct is immutable after Load and safe for concurrent readers.
type Ensemble struct {
	ModelType    string   `json:"model_type"`
	BaseScore    float64  `json:"base_score"`
	NumFeatures  int      `json:"num_features"`
	FeatureNames []string `json:"feature_names"`
	Trees        []Tree   `json:"trees"`
}

// Load reads a frozen ensemble artifact from disk and validates its
// structural invariants. The artifact is produced once at training time
// and never mutated afterwards.
func Load(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}

	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}

	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact %s: %w", path, err)
	}

	return &e, nil
}

// validate checks the node arrays of every tree for consistency so that
// traversal and attribution never index out of range at request time.
func (e *Ensemble) validate() error {
	if len(e.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	if e.NumFeatures <= 0 {
		return fmt.Errorf("num_features must be positive, got %d", e.NumFeatures)
	}
	if len(e.FeatureNames) != e.NumFeatures {
		return fmt.Errorf("feature_names length %d does not match num_features %d",
			len(e.FeatureNames), e.NumFeatures)
	}

	for ti := range e.Trees {
		t := &e.Trees[ti]
		n := len(t.ChildrenLeft)
		if n == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		if len(t.ChildrenRight) != n || len(t.Features) != n ||
			len(t.Thresholds) != n || len(t.Values) != n || len(t.Covers) != n {
			return fmt.Errorf("tree %d has inconsistent node array lengths", ti)
		}
		for i := 0; i < n; i++ {
			if t.IsLeaf(i) {
				if len(t.Values[i]) == 0 {
					return fmt.Errorf("tree %d leaf %d has no output value", ti, i)
				}
				continue
			}
			if t.ChildrenLeft[i] >= n || t.ChildrenRight[i] >= n ||
				t.ChildrenLeft[i] <= i || t.ChildrenRight[i] <= i {
				return fmt.Errorf("tree %d node %d has invalid children", ti, i)
			}
			if t.Features[i] < 0 || t.Features[i] >= e.NumFeatures {
				return fmt.Errorf("tree %d node %d splits on unknown feature %d",
					ti, i, t.Features[i])
			}
			if t.Covers[i] <= 0 {
				return fmt.Errorf("tree %d node %d has non-positive cover", ti, i)
			}
		}
	}

	return nil
}

// checkDimensions rejects feature vectors whose length disagrees with
// the trained layout. Mismatches are a contract violation with the
// upstream preprocessing pipeline, never adapted at runtime.
func (e *Ensemble) checkDimensions(x []float64) error {
	if len(x) != e.NumFeatures {
		return fmt.Errorf("feature vector has %d values, model expects %d",
			len(x), e.NumFeatures)
	}
	return nil
}

// PredictMargin returns the raw additive output (log-odds) for one
// feature vector: the base score plus every tree's leaf value. Output
// slice 0 is the positive-class margin.
func (e *Ensemble) PredictMargin(x []float64) (float64, error) {
	if err := e.checkDimensions(x); err != nil {
		return 0, err
	}

	margin := e.BaseScore
	for ti := range e.Trees {
		t := &e.Trees[ti]
		margin += t.Values[t.Decide(x)][0]
	}
	return margin, nil
}

// PredictProba returns the probability of the positive class (loan
// approved) for one feature vector.
func (e *Ensemble) PredictProba(x []float64) (float64, error) {
	margin, err := e.PredictMargin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(margin), nil
}

// Predict returns the binary class label: 1 when the positive-class
// probability reaches 0.5, else 0.
func (e *Ensemble) Predict(x []float64) (int, error) {
	p, err := e.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
