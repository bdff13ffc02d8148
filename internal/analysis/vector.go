package analysis

import (
	"math"
	"sort"
)

// Selection maps chosen component names to concentrations (ppm). Components
// not present are treated as 0.
type Selection map[string]float64

// Names returns the selected names in lexical order.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Assemble builds the dense model row: one entry per catalog feature, in
// catalog order, zero where nothing was selected. The whole selection is
// validated before anything is built.
func Assemble(sel Selection, features FeatureCatalog) ([]float64, error) {
	for _, name := range sel.Names() {
		v := sel[name]
		if !features.Contains(name) {
			return nil, &UnknownFeatureError{Feature: name}
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InvalidInputError{Feature: name, Value: v}
		}
	}

	vector := make([]float64, len(features))
	for i, name := range features {
		vector[i] = sel[name]
	}
	return vector, nil
}
