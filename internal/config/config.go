// Package config loads the YAML run configuration used by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/nbsvm"
	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/linear"
)

// Config represents the nbsvm run configuration
type Config struct {
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Evaluate   EvaluateConfig   `yaml:"evaluate"`

	// Verbose is the solver verbosity level (0 = quiet)
	Verbose int `yaml:"verbose"`
}

// VectorizerConfig contains TF-IDF settings
type VectorizerConfig struct {
	NumWords int `yaml:"num_words"`
}

// ClassifierConfig contains NB classifier and base model settings
type ClassifierConfig struct {
	Base    string         `yaml:"base"` // svc or logit
	C       float64        `yaml:"c"`
	Dual    estimator.Dual `yaml:"dual"` // auto, true or false
	MaxIter int            `yaml:"max_iter"`
	Tol     float64        `yaml:"tol"`
}

// EvaluateConfig contains cross-validation settings
type EvaluateConfig struct {
	Folds int `yaml:"folds"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Vectorizer: VectorizerConfig{
			NumWords: 10000,
		},
		Classifier: ClassifierConfig{
			Base: linear.KindSVC,
			C:    1.0,
			Dual: estimator.DualAuto,
		},
		Evaluate: EvaluateConfig{
			Folds: 10,
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// If no config file specified, return defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Vectorizer.NumWords <= 0 {
		return fmt.Errorf("%w: vectorizer.num_words must be positive", estimator.ErrConfiguration)
	}
	if c.Classifier.C <= 0 {
		return fmt.Errorf("%w: classifier.c must be positive", estimator.ErrConfiguration)
	}
	if c.Classifier.MaxIter < 0 {
		return fmt.Errorf("%w: classifier.max_iter must be >= 0", estimator.ErrConfiguration)
	}
	if c.Classifier.Tol < 0 {
		return fmt.Errorf("%w: classifier.tol must be >= 0", estimator.ErrConfiguration)
	}
	if _, err := linear.NewFactory(c.Classifier.Base, linear.Options{}); err != nil {
		return err
	}
	if c.Evaluate.Folds < 2 {
		return fmt.Errorf("%w: evaluate.folds must be >= 2", estimator.ErrConfiguration)
	}
	return nil
}

// Pipeline returns the pipeline hyperparameters described by the configuration
func (c *Config) Pipeline() nbsvm.Config {
	return nbsvm.Config{
		NumWords: c.Vectorizer.NumWords,
		Base:     c.Classifier.Base,
		C:        c.Classifier.C,
		Dual:     c.Classifier.Dual,
		MaxIter:  c.Classifier.MaxIter,
		Tol:      c.Classifier.Tol,
		Verbose:  c.Verbose,
	}
}
