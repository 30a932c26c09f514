package engine

import (
	"context"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/detection"
)

// AcceptThreshold is the confidence at or above which a detection is kept
// without secondary verification.
const AcceptThreshold float32 = 0.96

// VerificationPass prunes low-confidence detections that no verifier
// classifier can confirm.
type VerificationPass struct {
	// Provider resolves verifier specs to loaded detectors. Implementations
	// cache loaded state, so verifying many detections does not reload the
	// verifier resource per detection.
	Provider DetectorProvider
}

// Run scans the detection list once, in order. Detections at or above
// AcceptThreshold are kept unconditionally. For the rest, the image is
// cropped to the detection's rectangle and the verifiers run over the crop
// in set order, short-circuiting on the first confirmation; a verifier
// confirms only by reporting exactly its expected sub-feature count.
// Unconfirmed low-confidence detections are dropped.
//
// With no verifiers configured the pass is a no-op and returns the input
// set unchanged.
//
// Returns:
//   - *detection.Set: The pruned set. A new set is built; the input is not
//     modified.
//   - error: An error if a verifier fails to load or detect.
func (v *VerificationPass) Run(
	ctx context.Context,
	src ImageSource,
	set *detection.Set,
	verifiers []classifiers.Spec,
) (*detection.Set, error) {
	if len(verifiers) == 0 {
		return set, nil
	}

	kept := make([]detection.Detection, 0, set.Len())
	for _, d := range set.Detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.Confidence >= AcceptThreshold {
			kept = append(kept, d)
			continue
		}
		confirmed, err := v.confirm(ctx, src, d, verifiers)
		if err != nil {
			return nil, err
		}
		if confirmed {
			kept = append(kept, d)
		}
	}
	return &detection.Set{Detections: kept}, nil
}

// confirm crops the image to the detection and asks each verifier in turn
// for its expected sub-feature count. Zero hits and too many hits both
// indicate a false positive, so neither confirms.
func (v *VerificationPass) confirm(
	ctx context.Context,
	src ImageSource,
	d detection.Detection,
	verifiers []classifiers.Spec,
) (bool, error) {
	region, err := src.Crop(d.Box)
	if err != nil {
		return false, err
	}

	for _, spec := range verifiers {
		det, err := v.Provider.Detector(spec)
		if err != nil {
			return false, err
		}
		rects, err := det.Detect(ctx, region, spec.ScaleFactor, spec.MinNeighbors)
		if err != nil {
			return false, err
		}
		if len(rects) == spec.ExpectedFeatures {
			return true, nil
		}
	}
	return false, nil
}
