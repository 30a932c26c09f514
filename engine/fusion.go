package engine

import (
	"context"
	"image"
	"log"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/detection"
)

// Fusion runs primary classifiers in parallel and merges their outputs into
// one deduplicated detection set.
type Fusion struct {
	// Provider resolves classifier specs to loaded detectors.
	Provider DetectorProvider
	// Timeout bounds each primary classifier invocation. A timed-out
	// classifier contributes nothing and is reported as a warning; the call
	// itself still succeeds with the remaining contributions. Zero disables
	// the bound.
	Timeout time.Duration
}

// Run fans out one worker per primary classifier, folds in an optional
// pre-existing detection set, and merges the flattened candidates.
//
// Every worker writes to a private slot addressed by its classifier index,
// so the parallel phase needs no synchronization beyond the join barrier.
// Any classifier load or detection error aborts the whole call; nothing is
// silently dropped.
//
// Arguments:
//   - ctx: The call context, checked before the fan-out and honored by
//     detector backends that support it.
//   - src: Pixel access for the image under detection.
//   - primaries: The primary classifier specs, in set order.
//   - existing: An optional pre-existing set (manual or cached detections),
//     folded in as one additional virtual classifier's output.
//
// Returns:
//   - *detection.Set: The deduplicated set, in original-image coordinates.
//   - error: An error if any classifier fails to load or detect.
func (f *Fusion) Run(
	ctx context.Context,
	src ImageSource,
	primaries []classifiers.Spec,
	existing *detection.Set,
) (*detection.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// One slot per classifier plus one for the pre-existing set.
	slots := make([][]detection.Detection, len(primaries)+1)
	errs := make([]error, len(primaries))

	var wg sync.WaitGroup
	for i, spec := range primaries {
		wg.Add(1)
		go func(i int, spec classifiers.Spec) {
			defer wg.Done()
			slots[i], errs[i] = f.detectOne(ctx, src, spec)
		}(i, spec)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "classifier %s", primaries[i].Path)
		}
	}

	if existing != nil {
		slots[len(primaries)] = existing.Clone().Detections
	}

	var flat []detection.Detection
	for _, slot := range slots {
		flat = append(flat, slot...)
	}

	return &detection.Set{Detections: detection.Dedupe(flat)}, nil
}

// detectOne runs a single primary classifier against the working image and
// projects its hits back to original-image coordinates, stamping the
// classifier's static confidence weight onto each.
func (f *Fusion) detectOne(
	ctx context.Context,
	src ImageSource,
	spec classifiers.Spec,
) ([]detection.Detection, error) {
	det, err := f.Provider.Detector(spec)
	if err != nil {
		return nil, err
	}

	working, scale, err := src.ForDetection(spec)
	if err != nil {
		return nil, err
	}
	if scale <= 0 {
		return nil, errors.Errorf("image source returned invalid working scale %v", scale)
	}

	rects, err := f.invoke(ctx, det, working, spec)
	if err != nil {
		if errors.Is(err, errTimedOut) {
			log.Printf("fusion: classifier %s timed out after %s, dropping its contribution",
				spec.Path, f.Timeout)
			return nil, nil
		}
		return nil, err
	}

	out := make([]detection.Detection, len(rects))
	inv := 1.0 / scale
	for i, r := range rects {
		out[i] = detection.Detection{
			Box:        scaleRect(r, inv),
			Confidence: spec.Weight,
		}
	}
	return out, nil
}

// errTimedOut is internal to the fusion fan-out; it never escapes Run.
var errTimedOut = errors.New("classifier invocation timed out")

// invoke runs the detector, bounding the invocation by the configured
// per-classifier timeout. On timeout the abandoned invocation keeps running
// in the background; its eventual result is discarded.
func (f *Fusion) invoke(
	ctx context.Context,
	det FeatureDetector,
	working image.Image,
	spec classifiers.Spec,
) ([]image.Rectangle, error) {
	if f.Timeout <= 0 {
		return det.Detect(ctx, working, spec.ScaleFactor, spec.MinNeighbors)
	}

	type result struct {
		rects []image.Rectangle
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		rects, err := det.Detect(ctx, working, spec.ScaleFactor, spec.MinNeighbors)
		ch <- result{rects: rects, err: err}
	}()

	select {
	case res := <-ch:
		return res.rects, res.err
	case <-time.After(f.Timeout):
		return nil, errTimedOut
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scaleRect projects a working-resolution rectangle back to original-image
// coordinates.
func scaleRect(r image.Rectangle, factor float64) image.Rectangle {
	if factor == 1.0 {
		return r
	}
	return image.Rect(
		int(math.Round(float64(r.Min.X)*factor)),
		int(math.Round(float64(r.Min.Y)*factor)),
		int(math.Round(float64(r.Max.X)*factor)),
		int(math.Round(float64(r.Max.Y)*factor)),
	)
}
