// Package engine - The detection-fusion core: parallel primary fan-out,
// geometric duplicate merging, and confidence-gated verification.
package engine

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/facelab/go-detect/classifiers"
)

// FeatureDetector is the external classifier capability consumed by the
// engine: given an image region and detection parameters, it returns raw
// candidate rectangles in the region's own coordinate space.
//
// A detector is stateless given its loaded resource and may be called
// concurrently from independent detection calls.
type FeatureDetector interface {
	Detect(ctx context.Context, region image.Image, scaleFactor float64, minNeighbors int) ([]image.Rectangle, error)
}

// DetectorProvider resolves a classifier spec to a loaded detector.
// Implementations are expected to cache loaded classifier state across
// detections and frames and reload only when the resource path or its
// parameters change.
type DetectorProvider interface {
	Detector(spec classifiers.Spec) (FeatureDetector, error)
}

// ImageSource provides pixel access for one detection call: the working
// image a classifier should scan (with the scale factor relating it to the
// original), and original-coordinate region crops for verification.
type ImageSource interface {
	ForDetection(spec classifiers.Spec) (image.Image, float64, error)
	Crop(r image.Rectangle) (image.Image, error)
}

var (
	// ErrInvalidImage rejects an empty or malformed input image before any
	// classifier is invoked.
	ErrInvalidImage = errors.New("invalid input image")
	// ErrClassifierLoad marks a classifier resource that could not be
	// loaded. Fatal for the detection call.
	ErrClassifierLoad = errors.New("classifier resource failed to load")
)
