package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/odorscope/odorscope/internal/analysis"
	"github.com/odorscope/odorscope/internal/metrics"
	"github.com/odorscope/odorscope/internal/model"
)

const (
	ArtifactModel    = "model"
	ArtifactFeatures = "features"
	ArtifactLabels   = "labels"
)

// Paths locates the three artifacts.
type Paths struct {
	Model    string
	Features string
	Labels   string
}

// InDir joins the default artifact file names onto dir.
func InDir(dir string) Paths {
	return Paths{
		Model:    filepath.Join(dir, "odor_model.json"),
		Features: filepath.Join(dir, "features.json"),
		Labels:   filepath.Join(dir, "odor_names.json"),
	}
}

// Assets is the loaded model together with its catalogs. Nothing in it is
// modified after Load returns.
type Assets struct {
	Model    model.Model
	Features analysis.FeatureCatalog
	Labels   analysis.LabelCatalog
}

// AssetLoadError means an artifact is missing, unreadable, corrupt or does
// not fit the others. It is fatal for the process.
type AssetLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

func Load(p Paths) (*Assets, error) {
	m, err := model.Load(p.Model)
	if err != nil {
		return nil, &AssetLoadError{Artifact: ArtifactModel, Path: p.Model, Err: err}
	}

	names, err := loadNames(p.Features)
	if err != nil {
		return nil, &AssetLoadError{Artifact: ArtifactFeatures, Path: p.Features, Err: err}
	}
	features, err := analysis.NewFeatureCatalog(names)
	if err != nil {
		return nil, &AssetLoadError{Artifact: ArtifactFeatures, Path: p.Features, Err: err}
	}

	names, err = loadNames(p.Labels)
	if err != nil {
		return nil, &AssetLoadError{Artifact: ArtifactLabels, Path: p.Labels, Err: err}
	}
	labels, err := analysis.NewLabelCatalog(names)
	if err != nil {
		return nil, &AssetLoadError{Artifact: ArtifactLabels, Path: p.Labels, Err: err}
	}

	if m.InputWidth() != len(features) {
		return nil, &AssetLoadError{
			Artifact: ArtifactFeatures,
			Path:     p.Features,
			Err:      fmt.Errorf("model expects %d features, catalog has %d", m.InputWidth(), len(features)),
		}
	}
	if m.OutputWidth() != len(labels) {
		return nil, &AssetLoadError{
			Artifact: ArtifactLabels,
			Path:     p.Labels,
			Err:      fmt.Errorf("model produces %d outputs, catalog has %d", m.OutputWidth(), len(labels)),
		}
	}

	return &Assets{Model: m, Features: features, Labels: labels}, nil
}

func loadNames(path string) ([]string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var names []string
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return names, nil
}

// Cache loads the artifacts on first use and hands out the same result for
// the rest of the process lifetime. A failed load is remembered too; there is
// no reload.
type Cache struct {
	paths  Paths
	once   sync.Once
	assets *Assets
	err    error
	loads  int
}

func NewCache(p Paths) *Cache {
	return &Cache{paths: p}
}

func (c *Cache) Get() (*Assets, error) {
	c.once.Do(func() {
		c.loads++
		c.assets, c.err = Load(c.paths)
		if c.err != nil {
			metrics.AssetsLoaded.WithLabelValues("", "").Set(0)
			return
		}
		metrics.AssetsLoaded.WithLabelValues(c.assets.Model.Kind(), c.assets.Model.Version()).Set(1)
		metrics.CatalogSize.WithLabelValues(ArtifactFeatures).Set(float64(len(c.assets.Features)))
		metrics.CatalogSize.WithLabelValues(ArtifactLabels).Set(float64(len(c.assets.Labels)))
	})
	return c.assets, c.err
}
