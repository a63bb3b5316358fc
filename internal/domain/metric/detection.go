package metric

import (
	"github.com/usnistgov/dval/internal/domain/detection"
)

// ObjectDetectionAP scores bounding-box predictions against ground-truth boxes.
// Rows are [image, xmin, ymin, xmax, ymax(, confidence)] or the vectorized
// [image, "xmin,ymin,xmax,ymax"(, confidence)]. overlap_threshold and
// use_eleven_point tune the computation.
func ObjectDetectionAP(truth, pred Frame, params Params) (float64, error) {
	res, err := AveragePrecision(truth, pred, params)
	if err != nil {
		return 0, err
	}
	return res.AP, nil
}

// AveragePrecision is ObjectDetectionAP with the full precision/recall curve.
func AveragePrecision(truth, pred Frame, params Params) (detection.Result, error) {
	threshold, err := params.Float(ParamOverlapThreshold, detection.DefaultOverlapThreshold)
	if err != nil {
		return detection.Result{}, err
	}
	eleven, err := params.Bool(ParamUseElevenPoint, false)
	if err != nil {
		return detection.Result{}, err
	}
	gts, err := detection.ParseGroundTruth(truth.Strings())
	if err != nil {
		return detection.Result{}, err
	}
	dets, err := detection.ParseDetections(pred.Strings())
	if err != nil {
		return detection.Result{}, err
	}
	return detection.AveragePrecision(dets, gts,
		detection.WithOverlapThreshold(threshold),
		detection.WithElevenPoint(eleven),
	), nil
}
