// Package cascade - Haar-cascade feature detection backed by OpenCV.
package cascade

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/facelab/go-detect/engine"
)

// Detector wraps a loaded OpenCV cascade classifier.
type Detector struct {
	path string

	// OpenCV cascade state is not safe for concurrent DetectMultiScale
	// calls on the same instance.
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// Load reads a cascade XML file into a detector.
//
// Arguments:
//   - path: The cascade classifier file path.
//
// Returns:
//   - *Detector: The loaded detector.
//   - error: engine.ErrClassifierLoad if the resource cannot be loaded.
func Load(path string) (*Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, errors.Wrapf(engine.ErrClassifierLoad, "cascade %s", path)
	}
	return &Detector{path: path, classifier: classifier}, nil
}

// Detect runs the cascade over the region and returns raw hit rectangles in
// the region's coordinate space.
func (d *Detector) Detect(
	ctx context.Context,
	region image.Image,
	scaleFactor float64,
	minNeighbors int,
) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(region)
	if err != nil {
		return nil, errors.Wrap(err, "converting region to Mat")
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(
		gray, scaleFactor, minNeighbors, 0, image.Point{}, image.Point{})
	d.mu.Unlock()

	return rects, nil
}

// Close releases the underlying OpenCV classifier.
func (d *Detector) Close() error {
	return d.classifier.Close()
}
