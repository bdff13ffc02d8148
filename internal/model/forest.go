package model

import (
	"encoding/json"
	"fmt"
)

const KindForest = "forest"

const leaf = -1

// Node is one decision-tree node. Leaves have Left == Right == -1 and carry
// one value per output; split nodes send x[Feature] <= Threshold left.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest averages the leaf vectors of its trees, the way a multi-output
// random forest regressor predicts.
type Forest struct {
	version string
	inputs  int
	outputs int
	trees   []Tree
}

type forestArtifact struct {
	NFeatures int    `json:"n_features"`
	NOutputs  int    `json:"n_outputs"`
	Trees     []Tree `json:"trees"`
}

func decodeForest(h header, raw []byte) (Model, error) {
	var art forestArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return NewForest(h.Version, art.NFeatures, art.NOutputs, art.Trees)
}

func NewForest(version string, inputs, outputs int, trees []Tree) (*Forest, error) {
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("%w: forest needs positive n_features and n_outputs", ErrMalformed)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrMalformed)
	}
	for i, t := range trees {
		if err := validateTree(t, inputs, outputs); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrMalformed, i, err)
		}
	}

	return &Forest{version: version, inputs: inputs, outputs: outputs, trees: trees}, nil
}

// Children must point forward so traversal always terminates.
func validateTree(t Tree, inputs, outputs int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Left == leaf && n.Right == leaf {
			if len(n.Value) != outputs {
				return fmt.Errorf("leaf %d has %d values, want %d", i, len(n.Value), outputs)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= inputs {
			return fmt.Errorf("node %d splits on feature %d, have %d", i, n.Feature, inputs)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

func (f *Forest) Kind() string     { return KindForest }
func (f *Forest) Version() string  { return f.version }
func (f *Forest) InputWidth() int  { return f.inputs }
func (f *Forest) OutputWidth() int { return f.outputs }

func (f *Forest) Predict(x []float64) ([]float64, error) {
	if err := checkInput(f, x); err != nil {
		return nil, err
	}

	out := make([]float64, f.outputs)
	for _, t := range f.trees {
		for i, v := range t.leafFor(x) {
			out[i] += v
		}
	}

	n := float64(len(f.trees))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

func (t Tree) leafFor(x []float64) []float64 {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Left == leaf && n.Right == leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}
