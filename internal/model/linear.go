package model

import (
	"encoding/json"
	"fmt"
	"math"
)

const KindLinear = "linear"

const (
	ActivationIdentity = "identity"
	ActivationSigmoid  = "sigmoid"
	ActivationSoftmax  = "softmax"
)

// Linear is a multi-output linear model: out = act(W·x + b).
type Linear struct {
	version    string
	weights    [][]float64
	intercepts []float64
	activation string
	width      int
}

type linearArtifact struct {
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
	Activation string      `json:"activation"`
}

func decodeLinear(h header, raw []byte) (Model, error) {
	var art linearArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return NewLinear(h.Version, art.Weights, art.Intercepts, art.Activation)
}

// NewLinear validates shapes; a nil intercepts slice means all zeros and an
// empty activation means identity.
func NewLinear(version string, weights [][]float64, intercepts []float64, activation string) (*Linear, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: linear model has no outputs", ErrMalformed)
	}

	width := len(weights[0])
	if width == 0 {
		return nil, fmt.Errorf("%w: linear model has no inputs", ErrMalformed)
	}
	for i, row := range weights {
		if len(row) != width {
			return nil, fmt.Errorf("%w: weights row %d has %d columns, want %d", ErrMalformed, i, len(row), width)
		}
	}

	if intercepts == nil {
		intercepts = make([]float64, len(weights))
	}
	if len(intercepts) != len(weights) {
		return nil, fmt.Errorf("%w: %d intercepts for %d outputs", ErrMalformed, len(intercepts), len(weights))
	}

	switch activation {
	case "":
		activation = ActivationIdentity
	case ActivationIdentity, ActivationSigmoid, ActivationSoftmax:
	default:
		return nil, fmt.Errorf("%w: unknown activation %q", ErrMalformed, activation)
	}

	return &Linear{
		version:    version,
		weights:    weights,
		intercepts: intercepts,
		activation: activation,
		width:      width,
	}, nil
}

func (m *Linear) Kind() string     { return KindLinear }
func (m *Linear) Version() string  { return m.version }
func (m *Linear) InputWidth() int  { return m.width }
func (m *Linear) OutputWidth() int { return len(m.weights) }

func (m *Linear) Predict(x []float64) ([]float64, error) {
	if err := checkInput(m, x); err != nil {
		return nil, err
	}

	out := make([]float64, len(m.weights))
	for i, row := range m.weights {
		score := m.intercepts[i]
		for j, w := range row {
			score += w * x[j]
		}
		out[i] = score
	}

	switch m.activation {
	case ActivationSigmoid:
		for i, v := range out {
			out[i] = 1 / (1 + math.Exp(-v))
		}
	case ActivationSoftmax:
		softmax(out)
	}
	return out, nil
}

func softmax(v []float64) {
	maxVal := math.Inf(-1)
	for _, x := range v {
		if x > maxVal {
			maxVal = x
		}
	}

	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - maxVal)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}
