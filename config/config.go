// Package config holds the run configuration shared by every command.
//
// A Config is built once (Default, then Load overlays a YAML file) and passed
// by value into constructors. Nothing in the module reads process-wide settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Filter modes for feature sets that carry two feature vocabularies.
const (
	FilterBoth         = "both"
	FilterNativeOnly   = "native-only"
	FilterExternalOnly = "external-only"
)

type Config struct {
	DatasetsRoot  string         `yaml:"datasets_root"`
	Output        string         `yaml:"output"`
	MinClassCount int            `yaml:"min_class_count"`
	PCA           bool           `yaml:"pca"`
	Workers       int            `yaml:"workers"`
	CacheSize     int            `yaml:"cache_size"`
	EWLDDatabase  string         `yaml:"ewld_db"`
	FilterMode    string         `yaml:"filter_mode"`
	Classify      ClassifyConfig `yaml:"classify"`
	Tools         ToolsConfig    `yaml:"tools"`
	Extraction    ExtractConfig  `yaml:"extraction"`
	Log           LogConfig      `yaml:"log"`
	Telegram      string         `yaml:"telegram"`
}

type ClassifyConfig struct {
	Splits      int           `yaml:"splits"`
	Budget      time.Duration `yaml:"automl_time"`
	DummyTrials int           `yaml:"dummy_trials"`
	MaxDepth    int           `yaml:"max_depth"`
	Seed        int64         `yaml:"seed"`
	Results     string        `yaml:"results"`
}

type ToolsConfig struct {
	JSymbolicJar      string        `yaml:"jsymbolic_jar"`
	Java              string        `yaml:"java"`
	Python            string        `yaml:"python"`
	Music21Module     string        `yaml:"music21_module"`
	MscoreExe         string        `yaml:"mscore_exe"`
	Hum2Mid           string        `yaml:"hum2mid"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
}

type ExtractConfig struct {
	Trials       int           `yaml:"trials"`
	Extension    string        `yaml:"extension"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DatasetsRoot:  "datasets/",
		Output:        "features/",
		MinClassCount: 10,
		PCA:           false,
		Workers:       4,
		CacheSize:     64,
		EWLDDatabase:  "datasets/EWLD/EWLD.db",
		FilterMode:    FilterBoth,
		Classify: ClassifyConfig{
			Splits:      10,
			Budget:      time.Hour,
			DummyTrials: 1000,
			MaxDepth:    12,
			Seed:        1993,
			Results:     "results/",
		},
		Tools: ToolsConfig{
			JSymbolicJar:      "./tools/jSymbolic_2_2_user/jSymbolic2.jar",
			Java:              "java",
			Python:            "python",
			Music21Module:     "symbolic_features.music21",
			MscoreExe:         "mscore",
			Hum2Mid:           "humdrum-tools/humextra/bin/hum2mid",
			ConversionTimeout: 120 * time.Second,
		},
		Extraction: ExtractConfig{
			Trials:       2,
			Extension:    ".mid",
			PollInterval: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        ".",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Telegram: "telegram.json",
	}
}

// Load reads path on top of Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DatasetsRoot == "" {
		return errors.New("datasets_root is required")
	}
	if c.Output == "" {
		return errors.New("output is required")
	}
	if c.MinClassCount < 0 {
		return fmt.Errorf("min_class_count must not be negative, got %d", c.MinClassCount)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Classify.Splits < 2 {
		return fmt.Errorf("classify.splits must be at least 2, got %d", c.Classify.Splits)
	}
	switch c.FilterMode {
	case FilterBoth, FilterNativeOnly, FilterExternalOnly:
	default:
		return fmt.Errorf("unknown filter_mode %q", c.FilterMode)
	}
	if c.Extraction.Trials <= 0 {
		return fmt.Errorf("extraction.trials must be positive, got %d", c.Extraction.Trials)
	}
	return nil
}
