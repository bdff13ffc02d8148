package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/odorscope/odorscope/internal/analysis"
	"github.com/odorscope/odorscope/internal/assets"
)

type ServiceConfig struct {
	Name     string `yaml:"name"`
	HTTPAddr string `yaml:"http_addr"`
}

type AssetsConfig struct {
	Dir          string `yaml:"dir"`
	ModelFile    string `yaml:"model_file"`
	FeaturesFile string `yaml:"features_file"`
	LabelsFile   string `yaml:"labels_file"`
}

func (a AssetsConfig) Paths() assets.Paths {
	return assets.Paths{
		Model:    filepath.Join(a.Dir, a.ModelFile),
		Features: filepath.Join(a.Dir, a.FeaturesFile),
		Labels:   filepath.Join(a.Dir, a.LabelsFile),
	}
}

type AnalysisConfig struct {
	TopK int `yaml:"top_k"`
}

type NATSConfig struct {
	URL            string `yaml:"url"`
	SubjectAnalyze string `yaml:"subject_analyze"`
	Queue          string `yaml:"queue"`
}

type RulesConfig struct {
	RulesPath string `yaml:"rules_path"`
}

type Config struct {
	ConfigVersion int            `yaml:"config_version"`
	Service       ServiceConfig  `yaml:"service"`
	Assets        AssetsConfig   `yaml:"assets"`
	Analysis      AnalysisConfig `yaml:"analysis"`
	NATS          NATSConfig     `yaml:"nats"`
	Rules         RulesConfig    `yaml:"rules"`
	Timeout       time.Duration  `yaml:"-"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Service.HTTPAddr == "" {
		return nil, fmt.Errorf("service.http_addr is required")
	}

	if cfg.Service.Name == "" {
		cfg.Service.Name = "odorscope"
	}
	if cfg.Assets.Dir == "" {
		cfg.Assets.Dir = "assets"
	}
	if cfg.Assets.ModelFile == "" {
		cfg.Assets.ModelFile = "odor_model.json"
	}
	if cfg.Assets.FeaturesFile == "" {
		cfg.Assets.FeaturesFile = "features.json"
	}
	if cfg.Assets.LabelsFile == "" {
		cfg.Assets.LabelsFile = "odor_names.json"
	}
	if cfg.Analysis.TopK <= 0 {
		cfg.Analysis.TopK = analysis.DefaultTopK
	}
	if cfg.NATS.URL != "" && cfg.NATS.SubjectAnalyze == "" {
		return nil, fmt.Errorf("nats.subject_analyze is required when nats.url is set")
	}
	if cfg.NATS.Queue == "" {
		cfg.NATS.Queue = cfg.Service.Name
	}

	cfg.Timeout = 10 * time.Second
	return &cfg, nil
}
