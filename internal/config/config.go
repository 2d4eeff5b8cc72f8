// Package config loads the YAML configuration of the file exporter.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	pmet "github.com/IvanBrykalov/cachinggauge/metrics/prom"
	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListen      = ":9465"
	DefaultMetricsPath = "/metrics"
	DefaultTTL         = 30 * time.Second
)

// Config is the top-level exporter configuration.
type Config struct {
	Listen      string   `yaml:"listen"`
	MetricsPath string   `yaml:"metrics_path"`
	Families    []Family `yaml:"families"`
}

// Family describes one exported gauge family backed by a value file.
type Family struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
	Name      string `yaml:"name"`
	Help      string `yaml:"help"`
	Unit      string `yaml:"unit"`

	// TTL bounds how often Source is re-read. Zero means DefaultTTL.
	TTL time.Duration `yaml:"ttl"`

	// Labels are added to every row of the family.
	Labels map[string]string `yaml:"labels"`

	// Source is the value file read by the producer.
	Source string `yaml:"source"`

	// Rows are the label sets to export. When empty, rows are taken from
	// the samples present in Source at startup.
	Rows []map[string]string `yaml:"rows"`
}

// Parse decodes and validates a configuration, applying defaults.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MetricsPath == "" {
		c.MetricsPath = DefaultMetricsPath
	}
	for i := range c.Families {
		if c.Families[i].TTL == 0 {
			c.Families[i].TTL = DefaultTTL
		}
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Families) == 0 {
		errs = append(errs, errors.New("config: no families defined"))
	}
	seen := make(map[string]int, len(c.Families))
	for i, f := range c.Families {
		id := fmt.Sprintf("families[%d]", i)
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("config: %s: name is required", id))
		} else {
			fq := pmet.FQName(f.Namespace, f.Subsystem, f.Name, f.Unit)
			if j, dup := seen[fq]; dup {
				errs = append(errs, fmt.Errorf("config: %s: %s duplicates families[%d]", id, fq, j))
			}
			seen[fq] = i
		}
		errs = append(errs, invalidLabelNames(id+".labels", f.Labels)...)
		for k, row := range f.Rows {
			errs = append(errs, invalidLabelNames(fmt.Sprintf("%s.rows[%d]", id, k), row)...)
		}
		if f.Source == "" {
			errs = append(errs, fmt.Errorf("config: %s: source is required", id))
		}
		if f.TTL < 0 {
			errs = append(errs, fmt.Errorf("config: %s: ttl must not be negative", id))
		}
	}
	return errors.Join(errs...)
}

func invalidLabelNames(id string, labels map[string]string) []error {
	names := make([]string, 0, len(labels))
	for n := range labels {
		names = append(names, n)
	}
	sort.Strings(names)

	var errs []error
	for _, n := range names {
		if !model.LabelName(n).IsValid() {
			errs = append(errs, fmt.Errorf("config: %s: invalid label name %q", id, n))
		}
	}
	return errs
}
