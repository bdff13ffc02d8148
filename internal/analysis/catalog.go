package analysis

import (
	"fmt"
	"sort"
)

// FeatureCatalog is the ordered list of component names the model expects,
// one per input column.
type FeatureCatalog []string

// LabelCatalog is the ordered list of odor names, positionally aligned with
// the model's output vector.
type LabelCatalog []string

func NewFeatureCatalog(names []string) (FeatureCatalog, error) {
	if err := checkNames("feature", names); err != nil {
		return nil, err
	}
	return FeatureCatalog(append([]string(nil), names...)), nil
}

func NewLabelCatalog(names []string) (LabelCatalog, error) {
	if err := checkNames("label", names); err != nil {
		return nil, err
	}
	return LabelCatalog(append([]string(nil), names...)), nil
}

func checkNames(kind string, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("%s catalog is empty", kind)
	}
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if n == "" {
			return fmt.Errorf("%s %d has an empty name", kind, i)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate %s %q", kind, n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func (c FeatureCatalog) Contains(name string) bool {
	for _, n := range c {
		if n == name {
			return true
		}
	}
	return false
}

// Sorted returns the names alphabetically for selection widgets. The catalog
// itself is left in model order.
func (c FeatureCatalog) Sorted() []string {
	out := append([]string(nil), c...)
	sort.Strings(out)
	return out
}
