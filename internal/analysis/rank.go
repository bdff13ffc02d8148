package analysis

import "sort"

// DefaultTopK is how many entries the dashboard table and chart show.
const DefaultTopK = 10

type Score struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Ranked is the full prediction sorted by probability, highest first.
type Ranked []Score

// Rank pairs predictions with labels and sorts descending. Equal values keep
// catalog order. Values are not normalized.
func Rank(pred []float64, labels LabelCatalog) (Ranked, error) {
	if len(pred) != len(labels) {
		return nil, &ShapeMismatchError{Predictions: len(pred), Labels: len(labels)}
	}

	ranked := make(Ranked, len(pred))
	for i, p := range pred {
		ranked[i] = Score{Label: labels[i], Probability: p}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	return ranked, nil
}

// Top returns the first k entries. k <= 0 or k > len returns everything.
func (r Ranked) Top(k int) Ranked {
	if k <= 0 || k >= len(r) {
		return r
	}
	return r[:k]
}

// Best is the most likely label, or the zero Score for an empty ranking.
func (r Ranked) Best() Score {
	if len(r) == 0 {
		return Score{}
	}
	return r[0]
}

// Probability looks a label up by name.
func (r Ranked) Probability(label string) (float64, bool) {
	for _, s := range r {
		if s.Label == label {
			return s.Probability, true
		}
	}
	return 0, false
}
