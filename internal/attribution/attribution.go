// Package attribution computes per-feature contribution values for
// predictions of a frozen tree ensemble, ranks them for display, and
// aggregates single-row results into batches.
//
// Contributions are additive in margin (log-odds) space: for every
// feature vector the values sum to the model's raw output minus its
// baseline expectation over the training background.
package attribution

import (
	"bytes"
	"encoding/json"
	"math"
)

// Attribution is the ordered mapping from feature name to contribution
// for one feature vector. Order matches the trained feature layout and
// is the deterministic tiebreaker during ranking; features with a
// contribution of exactly zero are kept.
type Attribution struct {
	Names  []string
	Values []float64
}

// Sum returns the total of all contribution values.
func (a Attribution) Sum() float64 {
	s := 0.0
	for _, v := range a.Values {
		s += v
	}
	return s
}

// MarshalJSON renders the attribution as a JSON object whose keys keep
// the feature-vector order.
func (a Attribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range a.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(a.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RankedFactor is one display-ready feature contribution: rounded to
// four decimal places and labeled by the direction it pushed the
// decision. Recomputed per request, never persisted.
type RankedFactor struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
	Impact       string  `json:"impact"`
}

// PredictionRecord is the per-row result of prediction plus
// explanation. ApplicationID is the 1-based position of the row within
// its batch; it is zero for single predictions.
type PredictionRecord struct {
	ApplicationID    int            `json:"application_id,omitempty"`
	Prediction       string         `json:"prediction"`
	Probability      float64        `json:"probability"`
	TopFactors       []RankedFactor `json:"top_factors"`
	RawContributions Attribution    `json:"raw_contributions"`
}

// BatchSummary accumulates decision counts across one batch call.
type BatchSummary struct {
	TotalProcessed      int     `json:"total_processed"`
	Approved            int     `json:"approved"`
	Rejected            int     `json:"rejected"`
	ApprovalRatePercent float64 `json:"approval_rate_percent"`
}

const (
	// LabelApproved is the display label for the positive class.
	LabelApproved = "Approved"
	// LabelRejected is the display label for the negative class.
	LabelRejected = "Rejected"

	// DefaultTopK is the number of ranked factors returned per row.
	DefaultTopK = 5
)

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
