package service

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usnistgov/dval/internal/domain/evaluate"
	"github.com/usnistgov/dval/internal/domain/metric"
)

// Format names a request encoding.
type Format string

// Supported request encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FormatFromContentType picks the encoding from a Content-Type header, JSON by default.
func FormatFromContentType(contentType string) Format {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

// Request is one scoring job: per-target truth and predictions plus the
// metrics to compute over them.
type Request struct {
	// Targets fixes the target order. Defaults to the sorted keys of Truth.
	Targets     []string                `json:"targets,omitempty" yaml:"targets,omitempty"`
	Truth       map[string]metric.Frame `json:"truth" yaml:"truth"`
	Predictions map[string]metric.Frame `json:"predictions" yaml:"predictions"`
	Metrics     []evaluate.Spec         `json:"metrics" yaml:"metrics"`

	// Baselines are raw reference values keyed by metric name.
	Baselines map[string]float64 `json:"baselines,omitempty" yaml:"baselines,omitempty"`
	// Baseline applies to every metric without an entry in Baselines.
	Baseline *float64 `json:"baseline,omitempty" yaml:"baseline,omitempty"`

	ScoreCrossEntropy bool `json:"scoreCrossEntropy,omitempty" yaml:"scoreCrossEntropy,omitempty"`
}

// DecodeRequest parses and validates a request document.
func DecodeRequest(data []byte, format Format) (*Request, error) {
	var req Request
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks that every target has both truth and predictions.
func (r *Request) Validate() error {
	if len(r.Metrics) == 0 && !r.ScoreCrossEntropy {
		return fmt.Errorf("%w: no metrics requested", ErrInvalidRequest)
	}
	targets := r.targetNames()
	if len(targets) == 0 {
		return fmt.Errorf("%w: no targets", ErrInvalidRequest)
	}
	for _, t := range targets {
		if _, ok := r.Truth[t]; !ok {
			return fmt.Errorf("%w: target %q has no truth", ErrInvalidRequest, t)
		}
		if _, ok := r.Predictions[t]; !ok {
			return fmt.Errorf("%w: target %q has no predictions", ErrInvalidRequest, t)
		}
	}
	for i, s := range r.Metrics {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: metrics[%d] has no name", ErrInvalidRequest, i)
		}
	}
	if err := evaluate.Baselines(r.Baselines).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func (r *Request) targetNames() []string {
	if len(r.Targets) > 0 {
		return r.Targets
	}
	names := make([]string, 0, len(r.Truth))
	for t := range r.Truth {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

func (r *Request) data() evaluate.Data {
	return evaluate.Data{TargetNames: r.targetNames(), Truth: r.Truth, Pred: r.Predictions}
}

// baselines merges the per-metric table with the catch-all Baseline.
func (r *Request) baselines() evaluate.Baselines {
	out := make(evaluate.Baselines, len(r.Baselines)+len(r.Metrics))
	seen := make(map[string]bool, len(r.Baselines))
	for name, v := range r.Baselines {
		out[name] = v
		seen[metric.CanonicalName(name)] = true
	}
	if r.Baseline == nil {
		return out
	}
	for _, s := range r.Metrics {
		if key := metric.CanonicalName(s.Name); !seen[key] {
			out[s.Name] = *r.Baseline
			seen[key] = true
		}
	}
	return out
}
