// Package detection scores object-detection output: bounding boxes are
// matched greedily against ground truth by Intersection-over-Union and the
// resulting precision/recall curve is integrated into an average precision.
package detection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedBoundingBox reports a box batch whose rows do not share one schema.
var ErrMalformedBoundingBox = errors.New("malformed bounding box input")

// Row widths after normalization.
const (
	plainWidth  = 5 // image, xmin, ymin, xmax, ymax
	scoredWidth = 6 // ... plus confidence
)

// BoundingBox is one axis-aligned box on one image.
type BoundingBox struct {
	ImageID    string
	XMin, YMin float64
	XMax, YMax float64
	// Confidence is meaningful only when Scored is set. Ground truth is never scored.
	Confidence float64
	Scored     bool
}

// Area returns the box area. The inclusive convention counts both edge pixels.
func (b BoundingBox) Area(inclusive bool) float64 {
	pad := 0.0
	if inclusive {
		pad = 1
	}
	return (b.XMax - b.XMin + pad) * (b.YMax - b.YMin + pad)
}

// Unvectorize expands rows that carry their four coordinates in a single
// comma-separated cell: [id, "x1,y1,x2,y2"] becomes [id, x1, y1, x2, y2] and
// [id, "x1,y1,x2,y2", conf] becomes [id, x1, y1, x2, y2, conf]. Wider rows are
// returned unchanged.
func Unvectorize(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		switch len(row) {
		case 2, 3:
			expanded := append([]string{row[0]}, strings.Split(row[1], ",")...)
			out[i] = append(expanded, row[2:]...)
		default:
			out[i] = row
		}
	}
	return out
}

// ParseDetections normalizes and parses predicted boxes. Every row must have
// the same width, either five fields or six with a trailing confidence.
func ParseDetections(rows [][]string) ([]BoundingBox, error) {
	rows = Unvectorize(rows)
	if len(rows) == 0 {
		return nil, nil
	}
	width := len(rows[0])
	if width != plainWidth && width != scoredWidth {
		return nil, fmt.Errorf("detection rows have %d fields, want %d or %d: %w", width, plainWidth, scoredWidth, ErrMalformedBoundingBox)
	}
	return parseRows(rows, width)
}

// ParseGroundTruth normalizes and parses ground-truth boxes, which never carry
// a confidence.
func ParseGroundTruth(rows [][]string) ([]BoundingBox, error) {
	rows = Unvectorize(rows)
	return parseRows(rows, plainWidth)
}

func parseRows(rows [][]string, width int) ([]BoundingBox, error) {
	boxes := make([]BoundingBox, len(rows))
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d fields, want %d: %w", i, len(row), width, ErrMalformedBoundingBox)
		}
		var vals [scoredWidth - 1]float64
		for j := 1; j < width; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d field %d %q: %w", i, j, row[j], ErrMalformedBoundingBox)
			}
			vals[j-1] = v
		}
		boxes[i] = BoundingBox{
			ImageID: strings.TrimSpace(row[0]),
			XMin:    vals[0],
			YMin:    vals[1],
			XMax:    vals[2],
			YMax:    vals[3],
		}
		if width == scoredWidth {
			boxes[i].Confidence = vals[4]
			boxes[i].Scored = true
		}
	}
	return boxes, nil
}
