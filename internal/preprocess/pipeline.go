// Package preprocess applies the fitted feature-preprocessing pipeline
// to raw loan applications. All constants — imputation values, scaling
// parameters, category vocabularies — are learned once at fit time and
// shipped in a frozen JSON artifact; Transform is deterministic and
// side-effect-free.
package preprocess

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// NumericFeature holds the fitted constants of one numeric column:
// the median used for imputation and the mean/std used for standard
// scaling.
type NumericFeature struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// CategoricalFeature holds the fitted vocabulary of one categorical
// column. Categories keeps the fit-time order; the first category is
// dropped during one-hot encoding, Mode imputes missing values, and
// unseen categories encode to all zeros.
type CategoricalFeature struct {
	Name       string   `json:"name"`
	Mode       string   `json:"mode"`
	Categories []string `json:"categories"`
}

// Row is one raw application split into its numeric and categorical
// columns, keyed by column name.
type Row struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// Pipeline is the frozen preprocessing pipeline. Immutable after Load
// and safe for concurrent readers; the output feature layout is fixed
// for the lifetime of one served model version.
type Pipeline struct {
	Numeric     []NumericFeature     `json:"numeric"`
	Categorical []CategoricalFeature `json:"categorical"`

	featureNames []string
}

// Load reads a fitted pipeline artifact from disk and derives the
// output feature layout: numeric columns first in artifact order, then
// one dummy column per non-dropped category of each categorical column.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preprocessor artifact: %w", err)
	}

	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode preprocessor artifact: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocessor artifact %s: %w", path, err)
	}

	p.featureNames = make([]string, 0, len(p.Numeric))
	for _, f := range p.Numeric {
		p.featureNames = append(p.featureNames, f.Name)
	}
	for _, f := range p.Categorical {
		for _, cat := range f.Categories[1:] {
			p.featureNames = append(p.featureNames, f.Name+"_"+cat)
		}
	}

	return &p, nil
}

func (p *Pipeline) validate() error {
	if len(p.Numeric) == 0 && len(p.Categorical) == 0 {
		return fmt.Errorf("pipeline has no features")
	}
	for _, f := range p.Numeric {
		if f.Name == "" {
			return fmt.Errorf("numeric feature with empty name")
		}
		if f.Std <= 0 || math.IsNaN(f.Std) {
			return fmt.Errorf("numeric feature %s has non-positive std %v", f.Name, f.Std)
		}
	}
	for _, f := range p.Categorical {
		if f.Name == "" {
			return fmt.Errorf("categorical feature with empty name")
		}
		if len(f.Categories) == 0 {
			return fmt.Errorf("categorical feature %s has no categories", f.Name)
		}
		found := false
		for _, cat := range f.Categories {
			if cat == f.Mode {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("categorical feature %s: mode %q not in categories", f.Name, f.Mode)
		}
	}
	return nil
}

// FeatureNames returns the output feature layout, in order. The slice
// is shared; callers must not mutate it.
func (p *Pipeline) FeatureNames() []string {
	return p.featureNames
}

// NumFeatures returns the length of the transformed feature vector.
func (p *Pipeline) NumFeatures() int {
	return len(p.featureNames)
}

// Transform converts one raw application row into the numeric feature
// vector the ensemble was trained on. Missing numeric values (absent or
// NaN) impute to the fitted median before scaling; missing categorical
// values impute to the fitted mode before encoding.
func (p *Pipeline) Transform(row Row) []float64 {
	vector := make([]float64, 0, len(p.featureNames))

	for _, f := range p.Numeric {
		v, ok := row.Numeric[f.Name]
		if !ok || math.IsNaN(v) {
			v = f.Median
		}
		vector = append(vector, (v-f.Mean)/f.Std)
	}

	for _, f := range p.Categorical {
		v, ok := row.Categorical[f.Name]
		if !ok || v == "" {
			v = f.Mode
		}
		for _, cat := range f.Categories[1:] {
			if v == cat {
				vector = append(vector, 1)
			} else {
				vector = append(vector, 0)
			}
		}
	}

	return vector
}
