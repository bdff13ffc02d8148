package analysis

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/odorscope/odorscope/internal/model"
)

func TestAssemble(t *testing.T) {
	features := FeatureCatalog{"A", "B", "C"}

	got, err := Assemble(Selection{"B": 2.5}, features)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if want := []float64{0, 2.5, 0}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAssembleFollowsCatalogOrder(t *testing.T) {
	features := FeatureCatalog{"toluene", "ammonia", "h2s", "acetone"}
	sel := Selection{"acetone": 0.000001, "toluene": 3, "h2s": 0}

	got, err := Assemble(sel, features)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(got) != len(features) {
		t.Fatalf("expected length %d, got %d", len(features), len(got))
	}
	for i, name := range features {
		if got[i] != sel[name] {
			t.Errorf("vector[%d] (%s) = %f, want %f", i, name, got[i], sel[name])
		}
	}
}

func TestAssembleEmptySelection(t *testing.T) {
	features := FeatureCatalog{"A", "B", "C", "D"}

	for _, sel := range []Selection{nil, {}} {
		got, err := Assemble(sel, features)
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		if want := []float64{0, 0, 0, 0}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestAssembleRejectsInvalidValues(t *testing.T) {
	features := FeatureCatalog{"A", "B"}

	for _, v := range []float64{-1, -0.000001, math.NaN(), math.Inf(1)} {
		got, err := Assemble(Selection{"A": 1, "B": v}, features)
		var invalid *InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("value %v: expected InvalidInputError, got %v", v, err)
		}
		if invalid.Feature != "B" {
			t.Errorf("expected feature B, got %q", invalid.Feature)
		}
		if got != nil {
			t.Errorf("value %v: expected no vector, got %v", v, got)
		}
	}
}

func TestAssembleRejectsUnknownFeature(t *testing.T) {
	_, err := Assemble(Selection{"Z": 1}, FeatureCatalog{"A"})
	var unknown *UnknownFeatureError
	if !errors.As(err, &unknown) || unknown.Feature != "Z" {
		t.Fatalf("expected UnknownFeatureError for Z, got %v", err)
	}
}

func TestRank(t *testing.T) {
	got, err := Rank([]float64{0.2, 0.7, 0.1}, LabelCatalog{"x", "y", "z"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	want := Ranked{{"y", 0.7}, {"x", 0.2}, {"z", 0.1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRankStableTies(t *testing.T) {
	got, err := Rank([]float64{0.1, 0.4, 0.1, 0.4}, LabelCatalog{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	want := []string{"b", "d", "a", "c"}
	for i, s := range got {
		if s.Label != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestRankIdempotent(t *testing.T) {
	labels := LabelCatalog{"p", "q", "r", "s"}
	pred := []float64{0.9, 0.5, 0.5, 0.0}

	first, err := Rank(pred, labels)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	relabels := make(LabelCatalog, len(first))
	values := make([]float64, len(first))
	for i, s := range first {
		relabels[i] = s.Label
		values[i] = s.Probability
	}

	second, err := Rank(values, relabels)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ranking sorted input changed it: %v -> %v", first, second)
	}
}

func TestRankShapeMismatch(t *testing.T) {
	_, err := Rank([]float64{0.1}, LabelCatalog{"a", "b"})
	var shape *ShapeMismatchError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}
	if shape.Predictions != 1 || shape.Labels != 2 {
		t.Errorf("unexpected shape error %+v", shape)
	}
}

func TestTop(t *testing.T) {
	pred := make([]float64, 15)
	labels := make(LabelCatalog, 15)
	var sum float64
	for i := range pred {
		pred[i] = float64(i)
		labels[i] = string(rune('a' + i))
		sum += pred[i]
	}

	ranked, err := Rank(pred, labels)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	tests := []struct {
		k    int
		want int
	}{
		{10, 10},
		{15, 15},
		{20, 15},
		{0, 15},
		{-1, 15},
	}
	for _, tt := range tests {
		if got := len(ranked.Top(tt.k)); got != tt.want {
			t.Errorf("Top(%d) length = %d, want %d", tt.k, got, tt.want)
		}
	}

	var total float64
	for _, s := range ranked {
		total += s.Probability
	}
	if total != sum {
		t.Errorf("ranking changed values: sum %f, want %f", total, sum)
	}
}

func TestRankedHelpers(t *testing.T) {
	var empty Ranked
	if empty.Best() != (Score{}) {
		t.Error("expected zero best for empty ranking")
	}

	r := Ranked{{"y", 0.7}, {"x", 0.2}}
	if p, ok := r.Probability("x"); !ok || p != 0.2 {
		t.Errorf("expected x=0.2, got %f ok=%v", p, ok)
	}
	if _, ok := r.Probability("missing"); ok {
		t.Error("expected missing label lookup to fail")
	}
}

func TestCatalogs(t *testing.T) {
	if _, err := NewFeatureCatalog(nil); err == nil {
		t.Error("expected error for empty catalog")
	}
	if _, err := NewFeatureCatalog([]string{"a", "a"}); err == nil {
		t.Error("expected error for duplicate names")
	}
	if _, err := NewLabelCatalog([]string{"a", ""}); err == nil {
		t.Error("expected error for empty name")
	}

	fc, err := NewFeatureCatalog([]string{"toluene", "ammonia"})
	if err != nil {
		t.Fatalf("feature catalog: %v", err)
	}
	if !reflect.DeepEqual(fc.Sorted(), []string{"ammonia", "toluene"}) {
		t.Errorf("unexpected sorted names %v", fc.Sorted())
	}
	if fc[0] != "toluene" {
		t.Error("Sorted must not reorder the catalog")
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err     error
		kind    string
		request bool
	}{
		{nil, "none", false},
		{ErrEmptySelection, "empty_selection", true},
		{&InvalidInputError{Feature: "a", Value: -1}, "invalid_input", true},
		{&UnknownFeatureError{Feature: "a"}, "unknown_feature", true},
		{&ShapeMismatchError{}, "shape_mismatch", false},
		{errors.New("boom"), "internal", false},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.kind {
			t.Errorf("ErrorKind(%v) = %s, want %s", tt.err, got, tt.kind)
		}
		if got := IsRequestError(tt.err); got != tt.request {
			t.Errorf("IsRequestError(%v) = %v, want %v", tt.err, got, tt.request)
		}
	}
}

type staticAnnotator struct{}

func (staticAnnotator) Annotate(r Ranked) []Note {
	return []Note{{RuleID: "best", Message: r.Best().Label}}
}

func fixedModel(t *testing.T, features, labels int, out []float64) model.Model {
	t.Helper()
	weights := make([][]float64, labels)
	for i := range weights {
		weights[i] = make([]float64, features)
	}
	m, err := model.NewLinear("test-v1", weights, out, "")
	if err != nil {
		t.Fatalf("new linear: %v", err)
	}
	return m
}

func TestAnalyzer(t *testing.T) {
	features := FeatureCatalog{"A", "B", "C"}
	labels := LabelCatalog{"x", "y", "z"}
	m := fixedModel(t, 3, 3, []float64{0.2, 0.7, 0.1})

	a := NewAnalyzer(m, features, labels, WithTopK(2), WithAnnotator(staticAnnotator{}))

	res, err := a.Analyze(Selection{"B": 2.5})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.ID == "" {
		t.Error("expected an analysis id")
	}
	if res.Best.Label != "y" {
		t.Errorf("expected best y, got %s", res.Best.Label)
	}
	if len(res.Top) != 2 || len(res.Ranked) != 3 {
		t.Errorf("expected top 2 of 3, got %d of %d", len(res.Top), len(res.Ranked))
	}
	if res.ModelVersion != "test-v1" {
		t.Errorf("unexpected model version %s", res.ModelVersion)
	}
	if len(res.Notes) != 1 || res.Notes[0].Message != "y" {
		t.Errorf("unexpected notes %v", res.Notes)
	}
}

func TestAnalyzerEmptySelection(t *testing.T) {
	m := fixedModel(t, 2, 2, []float64{0.5, 0.5})
	a := NewAnalyzer(m, FeatureCatalog{"A", "B"}, LabelCatalog{"x", "y"})

	res, err := a.Analyze(nil)
	if err != nil {
		t.Fatalf("empty selection must be valid: %v", err)
	}
	if res.Best.Label != "x" {
		t.Errorf("expected tie broken by label order, got %s", res.Best.Label)
	}
	if res.Notes == nil {
		t.Error("notes should be an empty list, not nil")
	}
}

func TestAnalyzerStopsOnInvalidInput(t *testing.T) {
	m := fixedModel(t, 2, 2, []float64{0.5, 0.5})
	a := NewAnalyzer(m, FeatureCatalog{"A", "B"}, LabelCatalog{"x", "y"})

	_, err := a.Analyze(Selection{"B": -1})
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestAnalyzerShapeMismatch(t *testing.T) {
	m := fixedModel(t, 2, 3, []float64{0.1, 0.2, 0.3})
	a := NewAnalyzer(m, FeatureCatalog{"A", "B"}, LabelCatalog{"x", "y"})

	_, err := a.Analyze(Selection{"A": 1})
	var shape *ShapeMismatchError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}
}

func TestAnalyzerSubmitRejectsEmpty(t *testing.T) {
	m := fixedModel(t, 1, 1, []float64{1})
	a := NewAnalyzer(m, FeatureCatalog{"A"}, LabelCatalog{"x"})

	if _, err := a.Submit(Selection{}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if _, err := a.Submit(Selection{"A": 0}); err != nil {
		t.Fatalf("a zero concentration is still a selection: %v", err)
	}
}

func TestAnalyzerRejectsNonFiniteOutput(t *testing.T) {
	tests := []struct {
		name       string
		weights    [][]float64
		activation string
		a          float64
	}{
		{"identity overflow", [][]float64{{2, 0}, {0, 1}}, "identity", 1e308},
		{"softmax overflow", [][]float64{{1e10, 0}, {0, 1}}, "softmax", 1e300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := model.NewLinear("test-v1", tt.weights, nil, tt.activation)
			if err != nil {
				t.Fatalf("new linear: %v", err)
			}
			a := NewAnalyzer(m, FeatureCatalog{"a", "b"}, LabelCatalog{"x", "y"})

			res, err := a.Analyze(Selection{"a": tt.a})
			var output *NonFiniteOutputError
			if !errors.As(err, &output) {
				t.Fatalf("expected NonFiniteOutputError, got %v (%+v)", err, res)
			}
			if output.Label != "x" {
				t.Errorf("expected label x, got %q", output.Label)
			}
			if IsRequestError(err) || ErrorKind(err) != "non_finite_output" {
				t.Errorf("unexpected classification for %v", err)
			}
		})
	}
}
