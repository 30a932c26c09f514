package engine

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/facelab/go-detect/classifiers"
)

// stubDetector returns canned rectangles, optionally after a delay or with
// an error. Call counting is atomic because fusion invokes detectors from
// parallel workers.
type stubDetector struct {
	rects []image.Rectangle
	err   error
	delay time.Duration
	calls int32
}

func (s *stubDetector) Detect(
	ctx context.Context,
	region image.Image,
	scaleFactor float64,
	minNeighbors int,
) ([]image.Rectangle, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rects, nil
}

func (s *stubDetector) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

// stubProvider resolves specs to stub detectors by path.
type stubProvider struct {
	detectors map[string]FeatureDetector
	loadErrs  map[string]error
}

func (p stubProvider) Detector(spec classifiers.Spec) (FeatureDetector, error) {
	if err := p.loadErrs[spec.Path]; err != nil {
		return nil, err
	}
	det, ok := p.detectors[spec.Path]
	if !ok {
		return nil, errors.Wrapf(ErrClassifierLoad, "no stub for %s", spec.Path)
	}
	return det, nil
}

// stubSource hands every classifier the same working image at a fixed
// scale and records crop requests.
type stubSource struct {
	working image.Image
	scale   float64
	cropErr error
	crops   []image.Rectangle
}

func newStubSource(scale float64) *stubSource {
	return &stubSource{
		working: image.NewRGBA(image.Rect(0, 0, 640, 480)),
		scale:   scale,
	}
}

func (s *stubSource) ForDetection(spec classifiers.Spec) (image.Image, float64, error) {
	return s.working, s.scale, nil
}

func (s *stubSource) Crop(r image.Rectangle) (image.Image, error) {
	if s.cropErr != nil {
		return nil, s.cropErr
	}
	s.crops = append(s.crops, r)
	return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}
