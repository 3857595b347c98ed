package attribution

import (
	"math"
	"sort"

	"github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/errors"
)

// TopFactors selects the k largest-magnitude contributions and orders
// them by absolute value, descending. The sort is stable, so features
// with equal magnitude keep the attribution's feature order. Ranking
// compares unrounded magnitudes; the returned contributions are rounded
// to four decimal places only afterwards.
//
// A contribution of exactly zero is labeled Negative: only a strictly
// positive push counts toward approval. When the attribution holds
// fewer than k features, all of them are returned.
func TopFactors(attr Attribution, k int) ([]RankedFactor, error) {
	if k <= 0 {
		return nil, errors.NewInvalidKError(k)
	}

	order := make([]int, len(attr.Values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(attr.Values[order[a]]) > math.Abs(attr.Values[order[b]])
	})

	if k > len(order) {
		k = len(order)
	}

	factors := make([]RankedFactor, 0, k)
	for _, idx := range order[:k] {
		contribution := attr.Values[idx]
		impact := "Negative"
		if contribution > 0 {
			impact = "Positive"
		}
		factors = append(factors, RankedFactor{
			Feature:      attr.Names[idx],
			Contribution: roundTo(contribution, 4),
			Impact:       impact,
		})
	}

	return factors, nil
}
