package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/odorscope/odorscope/internal/metrics"
	"github.com/odorscope/odorscope/internal/model"
)

// Note is an interpretation attached to a result by an Annotator.
type Note struct {
	RuleID   string `json:"rule_id"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// Annotator derives notes from a ranked prediction.
type Annotator interface {
	Annotate(r Ranked) []Note
}

type Result struct {
	ID           string `json:"id"`
	Best         Score  `json:"best"`
	Top          Ranked `json:"top"`
	Ranked       Ranked `json:"ranked"`
	ModelVersion string `json:"model_version"`
	Notes        []Note `json:"notes"`
}

// Analyzer runs one selection through vector assembly, a single prediction
// and ranking. It holds only read-only state and is safe for concurrent use.
type Analyzer struct {
	model     model.Model
	features  FeatureCatalog
	labels    LabelCatalog
	topK      int
	annotator Annotator
}

type Option func(*Analyzer)

func WithTopK(k int) Option {
	return func(a *Analyzer) { a.topK = k }
}

func WithAnnotator(an Annotator) Option {
	return func(a *Analyzer) { a.annotator = an }
}

func NewAnalyzer(m model.Model, features FeatureCatalog, labels LabelCatalog, opts ...Option) *Analyzer {
	a := &Analyzer{
		model:    m,
		features: features,
		labels:   labels,
		topK:     DefaultTopK,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analyzer) Features() FeatureCatalog { return a.features }
func (a *Analyzer) Labels() LabelCatalog     { return a.labels }
func (a *Analyzer) TopK() int                { return a.topK }

// Submit is Analyze for a user-triggered request, where submitting with
// nothing selected is an error.
func (a *Analyzer) Submit(sel Selection) (*Result, error) {
	if len(sel) == 0 {
		return nil, ErrEmptySelection
	}
	return a.Analyze(sel)
}

func (a *Analyzer) Analyze(sel Selection) (*Result, error) {
	vector, err := Assemble(sel, a.features)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pred, err := a.model.Predict(vector)
	metrics.InferenceLatency.WithLabelValues(a.model.Kind()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if err := checkFinite(pred, a.labels); err != nil {
		return nil, err
	}

	ranked, err := Rank(pred, a.labels)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:           uuid.NewString(),
		Best:         ranked.Best(),
		Top:          ranked.Top(a.topK),
		Ranked:       ranked,
		ModelVersion: a.model.Version(),
		Notes:        []Note{},
	}
	if a.annotator != nil {
		if notes := a.annotator.Annotate(ranked); len(notes) > 0 {
			res.Notes = notes
		}
	}

	metrics.BestLabel.WithLabelValues(res.Best.Label).Inc()
	return res, nil
}

func checkFinite(pred []float64, labels LabelCatalog) error {
	for i, v := range pred {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			label := ""
			if i < len(labels) {
				label = labels[i]
			}
			return &NonFiniteOutputError{Index: i, Label: label, Value: v}
		}
	}
	return nil
}
