package metric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Row is one sample of a predictions or ground-truth table. Cells keep their
// textual form; numeric metrics parse them on demand.
type Row []string

// Frame is a row-major table: one Row per sample, one cell per column.
// Scalar metrics read column 0, joint metrics read every column, and
// cross-entropy predictions hold one probability column per class.
type Frame []Row

// ColumnFrame builds a single-column Frame from per-sample values.
func ColumnFrame(values ...string) Frame {
	f := make(Frame, len(values))
	for i, v := range values {
		f[i] = Row{v}
	}
	return f
}

// Width returns the number of cells in the first row.
func (f Frame) Width() int {
	if len(f) == 0 {
		return 0
	}
	return len(f[0])
}

// Column extracts column j. Rows that are too short are an error.
func (f Frame) Column(j int) ([]string, error) {
	out := make([]string, len(f))
	for i, row := range f {
		if j >= len(row) {
			return nil, fmt.Errorf("row %d has %d cells, need column %d: %w", i, len(row), j, ErrInvalidParam)
		}
		out[i] = row[j]
	}
	return out, nil
}

// Strings exposes the frame as plain string rows.
func (f Frame) Strings() [][]string {
	out := make([][]string, len(f))
	for i, row := range f {
		out[i] = row
	}
	return out
}

// Floats parses every cell of the frame into a row-major slice of width w.
func (f Frame) Floats() (data []float64, w int, err error) {
	w = f.Width()
	data = make([]float64, 0, len(f)*w)
	for i, row := range f {
		if len(row) != w {
			return nil, 0, fmt.Errorf("row %d has %d cells, want %d: %w", i, len(row), w, ErrInvalidParam)
		}
		vals, err := parseFloats(row)
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i, err)
		}
		data = append(data, vals...)
	}
	return data, w, nil
}

func parseFloats(cells []string) ([]float64, error) {
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", c, ErrNotNumeric)
		}
		out[i] = v
	}
	return out, nil
}

// columns returns the single column of both frames after checking they are
// aligned. Wider frames, such as a joint table of several targets, are
// rejected rather than silently cut down to their first column.
func columns(truth, pred Frame) ([]string, []string, error) {
	if err := checkAligned(truth, pred); err != nil {
		return nil, nil, err
	}
	gt, err := truth.scalars()
	if err != nil {
		return nil, nil, fmt.Errorf("ground truth: %w", err)
	}
	pd, err := pred.scalars()
	if err != nil {
		return nil, nil, fmt.Errorf("predictions: %w", err)
	}
	return gt, pd, nil
}

// scalars returns the only column of a one-cell-per-row frame.
func (f Frame) scalars() ([]string, error) {
	for i, row := range f {
		if len(row) != 1 {
			return nil, fmt.Errorf("row %d has %d cells, want 1: %w", i, len(row), ErrInvalidParam)
		}
	}
	return f.Column(0)
}

// numericColumns is columns followed by float parsing.
func numericColumns(truth, pred Frame) ([]float64, []float64, error) {
	gt, pd, err := columns(truth, pred)
	if err != nil {
		return nil, nil, err
	}
	y, err := parseFloats(gt)
	if err != nil {
		return nil, nil, fmt.Errorf("ground truth: %w", err)
	}
	yhat, err := parseFloats(pd)
	if err != nil {
		return nil, nil, fmt.Errorf("predictions: %w", err)
	}
	return y, yhat, nil
}

func checkAligned(truth, pred Frame) error {
	if len(truth) == 0 {
		return ErrEmptyInput
	}
	if len(truth) != len(pred) {
		return fmt.Errorf("%d vs %d samples: %w", len(truth), len(pred), ErrLengthMismatch)
	}
	return nil
}

// UnmarshalJSON accepts either a scalar (a one-cell row) or an array of scalars.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if arr, ok := v.([]any); ok {
		row := make(Row, len(arr))
		for i, cell := range arr {
			s, err := cellString(cell)
			if err != nil {
				return fmt.Errorf("cell %d: %w", i, err)
			}
			row[i] = s
		}
		*r = row
		return nil
	}
	s, err := cellString(v)
	if err != nil {
		return err
	}
	*r = Row{s}
	return nil
}

func cellString(v any) (string, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case json.Number:
		return c.String(), nil
	case bool:
		return strconv.FormatBool(c), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("nested value %T is not a cell", v)
	}
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML job documents. Scalars keep
// their literal text, so 1 and "1" decode to the same cell.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = Row{node.Value}
		return nil
	case yaml.SequenceNode:
		row := make(Row, len(node.Content))
		for i, c := range node.Content {
			if c.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: nested value is not a cell", c.Line)
			}
			row[i] = c.Value
		}
		*r = row
		return nil
	default:
		return fmt.Errorf("line %d: row must be a scalar or a sequence", node.Line)
	}
}
