package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Model scores one dense feature row and returns one value per output label.
// Implementations are immutable after decoding and safe for concurrent use.
type Model interface {
	Kind() string
	Version() string
	InputWidth() int
	OutputWidth() int
	Predict(x []float64) ([]float64, error)
}

var (
	ErrUnknownKind = errors.New("model: unknown kind")
	ErrMalformed   = errors.New("model: malformed artifact")
	ErrInputWidth  = errors.New("model: input width mismatch")
)

type header struct {
	Kind    string `json:"kind"`
	Version string `json:"version"`
}

type decoder func(h header, raw []byte) (Model, error)

var decoders = map[string]decoder{
	KindLinear: decodeLinear,
	KindForest: decodeForest,
}

// Kinds lists the artifact kinds Decode understands.
func Kinds() []string {
	kinds := make([]string, 0, len(decoders))
	for k := range decoders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func Load(path string) (Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	m, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	return m, nil
}

// Decode picks the implementation named by the artifact's "kind" field.
func Decode(raw []byte) (Model, error) {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	dec, ok := decoders[h.Kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, h.Kind)
	}
	return dec(h, raw)
}

func checkInput(m Model, x []float64) error {
	if len(x) != m.InputWidth() {
		return fmt.Errorf("%w: got %d, want %d", ErrInputWidth, len(x), m.InputWidth())
	}
	return nil
}
