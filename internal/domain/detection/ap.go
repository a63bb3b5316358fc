package detection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Constants for average-precision computation.
const (
	DefaultOverlapThreshold = 0.5
	elevenPointSteps        = 11
	// precisionFloor keeps tp/(tp+fp) finite before the first detection counts.
	precisionFloor = 2.220446049250313e-16
)

// Option configures AveragePrecision.
type Option func(*config)

type config struct {
	threshold  float64
	eleven     bool
	continuous bool
}

// WithOverlapThreshold sets the IoU a detection must strictly exceed to match.
func WithOverlapThreshold(t float64) Option {
	return func(c *config) {
		if t >= 0 && !math.IsNaN(t) {
			c.threshold = t
		}
	}
}

// WithElevenPoint switches to VOC2007 11-point interpolated AP.
func WithElevenPoint(on bool) Option {
	return func(c *config) { c.eleven = on }
}

// WithContinuousCoordinates drops the +1 pixel-inclusive convention from
// areas and intersections.
func WithContinuousCoordinates(on bool) Option {
	return func(c *config) { c.continuous = on }
}

// Result carries the curve alongside the scalar. Recall[i] and Precision[i]
// describe the ranking truncated after detection i.
type Result struct {
	Recall    []float64
	Precision []float64
	AP        float64
}

// IoU returns intersection-over-union of two boxes.
func IoU(a, b BoundingBox, inclusive bool) float64 {
	pad := 0.0
	if inclusive {
		pad = 1
	}
	iw := math.Max(math.Min(a.XMax, b.XMax)-math.Max(a.XMin, b.XMin)+pad, 0)
	ih := math.Max(math.Min(a.YMax, b.YMax)-math.Max(a.YMin, b.YMin)+pad, 0)
	inter := iw * ih
	return inter / (a.Area(inclusive) + b.Area(inclusive) - inter)
}

// AveragePrecision matches detections to ground truth greedily in ranking
// order and integrates the resulting precision/recall curve.
//
// Detections are ranked by descending confidence when every detection is
// scored, otherwise in input order. Each ground-truth box can be claimed once;
// later detections that best overlap a claimed box count as false positives,
// as do detections on images without ground truth. With no ground truth at
// all, recall and AP are NaN.
func AveragePrecision(dets, gts []BoundingBox, opts ...Option) Result {
	cfg := config{threshold: DefaultOverlapThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(dets) == 0 {
		return Result{Recall: []float64{}, Precision: []float64{}, AP: 0}
	}

	byImage := make(map[string][]BoundingBox)
	for _, g := range gts {
		byImage[g.ImageID] = append(byImage[g.ImageID], g)
	}
	claimed := make(map[string][]bool, len(byImage))
	for id, boxes := range byImage {
		claimed[id] = make([]bool, len(boxes))
	}

	ranked := rank(dets)
	tp := make([]float64, len(ranked))
	fp := make([]float64, len(ranked))
	for d, det := range ranked {
		best, jmax := math.Inf(-1), -1
		for j, g := range byImage[det.ImageID] {
			if ov := IoU(det, g, !cfg.continuous); ov > best {
				best, jmax = ov, j
			}
		}
		if best > cfg.threshold && !claimed[det.ImageID][jmax] {
			claimed[det.ImageID][jmax] = true
			tp[d] = 1
		} else {
			fp[d] = 1
		}
	}

	floats.CumSum(tp, tp)
	floats.CumSum(fp, fp)
	npos := float64(len(gts))
	recall := make([]float64, len(ranked))
	precision := make([]float64, len(ranked))
	for i := range ranked {
		if npos == 0 {
			recall[i] = math.NaN()
		} else {
			recall[i] = tp[i] / npos
		}
		precision[i] = tp[i] / math.Max(tp[i]+fp[i], precisionFloor)
	}

	res := Result{Recall: recall, Precision: precision}
	switch {
	case npos == 0:
		res.AP = math.NaN()
	case cfg.eleven:
		res.AP = elevenPointAP(recall, precision)
	default:
		res.AP = continuousAP(recall, precision)
	}
	return res
}

func rank(dets []BoundingBox) []BoundingBox {
	ranked := make([]BoundingBox, len(dets))
	copy(ranked, dets)
	for _, d := range dets {
		if !d.Scored {
			return ranked
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked
}

// continuousAP is the area under the precision envelope, summed where recall changes.
func continuousAP(recall, precision []float64) float64 {
	n := len(recall)
	mrec := make([]float64, 0, n+2)
	mrec = append(append(append(mrec, 0), recall...), 1)
	mpre := make([]float64, 0, n+2)
	mpre = append(append(append(mpre, 0), precision...), 0)

	for i := len(mpre) - 1; i > 0; i-- {
		mpre[i-1] = math.Max(mpre[i-1], mpre[i])
	}

	var ap float64
	for i := 0; i+1 < len(mrec); i++ {
		if mrec[i+1] != mrec[i] {
			ap += (mrec[i+1] - mrec[i]) * mpre[i+1]
		}
	}
	return ap
}

func elevenPointAP(recall, precision []float64) float64 {
	var ap float64
	for k := 0; k < elevenPointSteps; k++ {
		t := float64(k) * 0.1
		p := 0.0
		for i, r := range recall {
			if r >= t && precision[i] > p {
				p = precision[i]
			}
		}
		ap += p / elevenPointSteps
	}
	return ap
}
