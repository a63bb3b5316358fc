// Package evaluate runs metric specifications over per-target predictions
// and collects the resulting scores.
package evaluate

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usnistgov/dval/internal/domain/metric"
)

// AllTargetsName is the target recorded on scores of joint metrics.
const AllTargetsName = "allTargets"

// paramApplicability is the problem-document key that asks for joint application.
const paramApplicability = "applicabilityToTarget"

// Applicability selects how a metric is applied across targets.
type Applicability int

const (
	// PerTarget evaluates the metric once per target column.
	PerTarget Applicability = iota
	// AllTargets evaluates the metric once over every target jointly.
	AllTargets
)

func (a Applicability) String() string {
	if a == AllTargets {
		return AllTargetsName
	}
	return "perTarget"
}

// ParseApplicability accepts "perTarget" and "allTargets" in any case.
func ParseApplicability(s string) (Applicability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pertarget":
		return PerTarget, nil
	case "alltargets":
		return AllTargets, nil
	default:
		return PerTarget, fmt.Errorf("applicability %q: %w", s, metric.ErrInvalidParam)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Applicability) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Applicability) UnmarshalText(b []byte) error {
	v, err := ParseApplicability(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Spec names one metric to compute, its keyword parameters and how it applies.
type Spec struct {
	Name          string        `json:"metric" yaml:"metric"`
	Params        metric.Params `json:"params,omitempty" yaml:"params,omitempty"`
	Applicability Applicability `json:"applicability,omitempty" yaml:"applicability,omitempty"`
}

// normalize lifts an applicabilityToTarget entry out of Params.
func (s Spec) normalize() (Spec, error) {
	v, ok := s.Params.String(paramApplicability)
	if !ok {
		return s, nil
	}
	a, err := ParseApplicability(v)
	if err != nil {
		return s, err
	}
	if a == AllTargets {
		s.Applicability = AllTargets
	}
	s.Params = s.Params.Without(paramApplicability)
	return s, nil
}

type specAlias Spec

// UnmarshalJSON decodes params with json.Number so integers keep their form.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw struct {
		specAlias
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Spec(raw.specAlias)
	s.Params = nil
	if len(raw.Params) > 0 && string(raw.Params) != "null" {
		dec := json.NewDecoder(strings.NewReader(string(raw.Params)))
		dec.UseNumber()
		if err := dec.Decode(&s.Params); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}
	n, err := s.normalize()
	if err != nil {
		return err
	}
	*s = n
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var raw specAlias
	if err := node.Decode(&raw); err != nil {
		return err
	}
	n, err := Spec(raw).normalize()
	if err != nil {
		return err
	}
	*s = n
	return nil
}
