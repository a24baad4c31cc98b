package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Run describes one driver invocation: the training set, the starting point
// and the descent hyperparameters.
type Run struct {
	Data struct {
		X []float64 `yaml:"x"`
		Y []float64 `yaml:"y"`
	} `yaml:"data"`
	Initial struct {
		W float64 `yaml:"w"`
		B float64 `yaml:"b"`
	} `yaml:"initial"`
	LearningRate   float64 `yaml:"learning_rate"`
	Iterations     int     `yaml:"iterations"`
	MaxCostHistory int     `yaml:"max_cost_history"`
}

// DefaultRun returns the house price example: two houses of 1000 and 2000
// sqft selling for $300k and $500k, fitted from w=2, b=1.
func DefaultRun() *Run {
	r := &Run{
		LearningRate:   0.01,
		Iterations:     10000,
		MaxCostHistory: 100000,
	}
	r.Data.X = []float64{1.0, 2.0}
	r.Data.Y = []float64{300.0, 500.0}
	r.Initial.W = 2.0
	r.Initial.B = 1.0
	return r
}

// LoadRun reads a YAML run file. Keys absent from the file keep their
// DefaultRun values.
func LoadRun(path string) (*Run, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r := DefaultRun()
	if err := yaml.Unmarshal(d, r); err != nil {
		return nil, fmt.Errorf("parse run file %s: %w", path, err)
	}
	return r, nil
}

// Save writes the run as YAML.
func (r *Run) Save(path string) error {
	d, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o600)
}
