package score

import (
	"encoding/json"
	"iter"
)

// Record is the flat, serializable form of a Score. Absent values encode as
// explicit nulls so downstream parsers see a fixed shape; NaN and infinite
// values are absent.
type Record struct {
	Target                   string   `json:"target"`
	Metric                   string   `json:"metric"`
	RawValue                 *float64 `json:"rawValue"`
	BaselineRawValue         *float64 `json:"baselineRawValue"`
	TransformedValue         *float64 `json:"transformedValue"`
	TransformedBaselineValue *float64 `json:"transformedBaselineValue"`
	NormalizedValue          *float64 `json:"normalizedValue"`
}

// Set is an ordered, immutable collection of scores.
type Set struct {
	scores []Score
}

// NewSet keeps scores in the given order.
func NewSet(scores ...Score) *Set {
	s := &Set{scores: make([]Score, len(scores))}
	copy(s.scores, scores)
	return s
}

// Len returns the number of scores.
func (s *Set) Len() int { return len(s.scores) }

// All yields the scores in order.
func (s *Set) All() iter.Seq[Score] {
	return func(yield func(Score) bool) {
		for _, sc := range s.scores {
			if !yield(sc) {
				return
			}
		}
	}
}

// Get returns the score for (target, metric), matching the metric name exactly.
func (s *Set) Get(target, metric string) (Score, bool) {
	for _, sc := range s.scores {
		if t, m := sc.Key(); t == target && m == metric {
			return sc, true
		}
	}
	return nil, false
}

// Contains reports whether a score for (target, metric) is present.
func (s *Set) Contains(target, metric string) bool {
	_, ok := s.Get(target, metric)
	return ok
}

// Records flattens every score in order.
func (s *Set) Records() []Record {
	out := make([]Record, len(s.scores))
	for i, sc := range s.scores {
		out[i] = sc.Record()
	}
	return out
}

// MarshalJSON encodes the set as an ordered list of records.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Records())
}
