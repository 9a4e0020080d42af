package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if cfg.Model.MinDF != 3 || cfg.Model.MaxFeatures != 5000 {
		t.Errorf("unexpected model defaults: %+v", cfg.Model)
	}
	if cfg.Model.NgramMin != 1 || cfg.Model.NgramMax != 3 {
		t.Errorf("unexpected ngram defaults: %d..%d", cfg.Model.NgramMin, cfg.Model.NgramMax)
	}
	if cfg.Recommend.DefaultK != 10 {
		t.Errorf("DefaultK = %d, want 10", cfg.Recommend.DefaultK)
	}
	if cfg.Model.CacheSize != 1 {
		t.Errorf("CacheSize = %d, want 1 so a swap releases the previous matrix", cfg.Model.CacheSize)
	}
}

func TestShippedConfigKeepsOneSnapshot(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "recommender.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model.CacheSize != 1 {
		t.Errorf("configs/recommender.yaml cacheSize = %d, want 1", cfg.Model.CacheSize)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := []byte(`
model:
  minDF: 1
  ngramMax: 1
catalog:
  path: /tmp/titles.csv
`)
	if err := os.WriteFile(path, yamlData, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TR_MODEL_MAX_FEATURES", "0")
	t.Setenv("TR_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model.MinDF != 1 || cfg.Model.NgramMax != 1 {
		t.Errorf("yaml values not applied: %+v", cfg.Model)
	}
	if cfg.Model.MaxFeatures != 0 {
		t.Errorf("env override not applied, MaxFeatures = %d", cfg.Model.MaxFeatures)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Catalog.Path != "/tmp/titles.csv" {
		t.Errorf("Catalog.Path = %q", cfg.Catalog.Path)
	}
}

func TestValidateRejectsBadModel(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min_df zero", func(c *Config) { c.Model.MinDF = 0 }},
		{"negative max features", func(c *Config) { c.Model.MaxFeatures = -1 }},
		{"ngram inverted", func(c *Config) { c.Model.NgramMin = 3; c.Model.NgramMax = 2 }},
		{"default k above max", func(c *Config) { c.Recommend.DefaultK = 50 }},
		{"unknown source", func(c *Config) { c.Catalog.Source = "s3" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
