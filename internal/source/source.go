// Package source reads metric values from YAML value files and turns them
// into cache producers.
//
// A value file lists samples:
//
//	samples:
//	  - labels: {queue: a}
//	    value: 3
//	  - labels: {queue: b}
//	    value: 5
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"gopkg.in/yaml.v3"
)

// Sample is one labelled value.
type Sample struct {
	Labels map[string]string `yaml:"labels"`
	Value  float64           `yaml:"value"`
}

type file struct {
	Samples []Sample `yaml:"samples"`
}

// Parse decodes a value file. Unknown keys are rejected. An empty document
// yields no samples.
func Parse(r io.Reader) ([]Sample, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("source: decode: %w", err)
	}
	return f.Samples, nil
}

// Load reads and parses the value file at path.
func Load(path string) ([]Sample, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	samples, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// LabelSets returns the label sets of samples in file order.
func LabelSets(samples []Sample) []cache.LabelSet {
	out := make([]cache.LabelSet, 0, len(samples))
	for _, s := range samples {
		out = append(out, cache.LabelSet(s.Labels).Clone())
	}
	return out
}

// Producer returns a cache.Producer that re-reads path on every refresh.
// The file is parsed before the cache is touched: a read or parse error
// leaves the previous values in place.
func Producer(path string) cache.Producer {
	return func(ops cache.Operations) error {
		samples, err := Load(path)
		if err != nil {
			return err
		}
		ops.Clear()
		for _, s := range samples {
			ops.Update(cache.LabelSet(s.Labels), s.Value)
		}
		return nil
	}
}
