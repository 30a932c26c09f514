// Package images - Image identity, working-resolution preparation, and
// region cropping for detection.
package images

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/detection"
)

// ErrNoImage indicates a context that carries no decoded pixels.
var ErrNoImage = errors.New("image context has no pixel data")

// Context describes one image being processed: its identity, its pixels, a
// display scale used only by presentation code, and the detection set
// attached after a completed detection call.
type Context struct {
	// Path identifies the image on disk. Informational.
	Path string
	// Image holds the decoded original-resolution pixels.
	Image image.Image
	// DisplayScale is the scale the UI renders the image at. The engine
	// carries it but never reads it.
	DisplayScale float64
	// Detections is the set attached by the last completed detection call,
	// or a manually created set. Treated as immutable once attached.
	Detections *detection.Set
	// MaxWorkingEdge caps the longest edge of the working image handed to
	// classifiers. Zero means detect at native resolution.
	MaxWorkingEdge int

	mu           sync.Mutex
	working      image.Image
	workingScale float64
}

// NewContext wraps a decoded image for detection.
func NewContext(path string, img image.Image) *Context {
	return &Context{Path: path, Image: img, DisplayScale: 1.0}
}

// Bounds returns the original image bounds, or the zero rectangle when the
// context carries no pixels.
func (c *Context) Bounds() image.Rectangle {
	if c.Image == nil {
		return image.Rectangle{}
	}
	return c.Image.Bounds()
}

// ForDetection returns the working image for a classifier together with the
// scale factor relating it to the original (working = original * scale).
// Callers project detected rectangles back to original coordinates by
// dividing by the returned scale.
//
// The working image is computed once and reused by every classifier in the
// call; the spec argument is a hint and is currently not consulted.
func (c *Context) ForDetection(spec classifiers.Spec) (image.Image, float64, error) {
	_ = spec
	if c.Image == nil {
		return nil, 0, ErrNoImage
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.working != nil {
		return c.working, c.workingScale, nil
	}

	b := c.Image.Bounds()
	longest := max(b.Dx(), b.Dy())
	if c.MaxWorkingEdge <= 0 || longest <= c.MaxWorkingEdge {
		c.working, c.workingScale = c.Image, 1.0
		return c.working, c.workingScale, nil
	}

	scale := float64(c.MaxWorkingEdge) / float64(longest)
	w := uint(float64(b.Dx()) * scale)
	h := uint(float64(b.Dy()) * scale)
	c.working = resize.Resize(w, h, c.Image, resize.Bilinear)
	c.workingScale = scale
	return c.working, c.workingScale, nil
}

// Crop returns the sub-image under the given original-coordinate rectangle,
// clamped to the image bounds.
func (c *Context) Crop(r image.Rectangle) (image.Image, error) {
	if c.Image == nil {
		return nil, ErrNoImage
	}
	r = r.Intersect(c.Image.Bounds())
	if r.Empty() {
		return nil, errors.Errorf("crop rectangle %v is outside the image", r)
	}
	return imaging.Crop(c.Image, r), nil
}
