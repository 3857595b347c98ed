package preprocess

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPipeline() string {
	return `{
		"numeric": [
			{"name": "ApplicantIncome", "median": 3800, "mean": 5400, "std": 6100},
			{"name": "LoanAmount", "median": 128, "mean": 146, "std": 85}
		],
		"categorical": [
			{"name": "Property_Area", "mode": "Semiurban",
			 "categories": ["Rural", "Semiurban", "Urban"]},
			{"name": "Married", "mode": "Yes", "categories": ["No", "Yes"]}
		]
	}`
}

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preprocessor.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDerivesFeatureLayout(t *testing.T) {
	p, err := Load(writePipeline(t, validPipeline()))
	require.NoError(t, err)

	// Numerics first in artifact order, then one dummy per non-dropped
	// category of each categorical column.
	assert.Equal(t, []string{
		"ApplicantIncome",
		"LoanAmount",
		"Property_Area_Semiurban",
		"Property_Area_Urban",
		"Married_Yes",
	}, p.FeatureNames())
	assert.Equal(t, 5, p.NumFeatures())
}

func TestLoadRejectsInvalidArtifacts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed json",
			content: "{oops",
			wantErr: "failed to decode",
		},
		{
			name:    "no features",
			content: `{"numeric": [], "categorical": []}`,
			wantErr: "no features",
		},
		{
			name: "zero std",
			content: `{"numeric": [
				{"name": "x", "median": 0, "mean": 0, "std": 0}]}`,
			wantErr: "non-positive std",
		},
		{
			name: "mode outside vocabulary",
			content: `{"categorical": [
				{"name": "c", "mode": "Z", "categories": ["A", "B"]}]}`,
			wantErr: "not in categories",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writePipeline(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTransform(t *testing.T) {
	p, err := Load(writePipeline(t, validPipeline()))
	require.NoError(t, err)

	vector := p.Transform(Row{
		Numeric:     map[string]float64{"ApplicantIncome": 11500, "LoanAmount": 231},
		Categorical: map[string]string{"Property_Area": "Urban", "Married": "No"},
	})

	require.Len(t, vector, 5)
	assert.InDelta(t, (11500.0-5400)/6100, vector[0], 1e-12)
	assert.InDelta(t, (231.0-146)/85, vector[1], 1e-12)
	assert.Equal(t, []float64{0, 1, 0}, vector[2:])
}

func TestTransformImputesMissingValues(t *testing.T) {
	p, err := Load(writePipeline(t, validPipeline()))
	require.NoError(t, err)

	vector := p.Transform(Row{
		Numeric:     map[string]float64{"LoanAmount": math.NaN()},
		Categorical: map[string]string{"Property_Area": ""},
	})

	// Absent and NaN numerics both impute to the median before scaling.
	assert.InDelta(t, (3800.0-5400)/6100, vector[0], 1e-12)
	assert.InDelta(t, (128.0-146)/85, vector[1], 1e-12)
	// Missing categoricals impute to the mode.
	assert.Equal(t, []float64{1, 0, 1}, vector[2:])
}

func TestTransformUnseenCategoryEncodesAllZeros(t *testing.T) {
	p, err := Load(writePipeline(t, validPipeline()))
	require.NoError(t, err)

	vector := p.Transform(Row{
		Categorical: map[string]string{"Property_Area": "Offshore", "Married": "No"},
	})

	assert.Equal(t, []float64{0, 0, 0}, vector[2:])
}

func TestTransformDropsFirstCategory(t *testing.T) {
	p, err := Load(writePipeline(t, validPipeline()))
	require.NoError(t, err)

	vector := p.Transform(Row{
		Categorical: map[string]string{"Property_Area": "Rural", "Married": "No"},
	})

	// The first category of each vocabulary is the dropped reference
	// level and encodes identically to all-zero dummies.
	assert.Equal(t, []float64{0, 0, 0}, vector[2:])
}
