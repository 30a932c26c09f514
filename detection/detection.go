// Package detection - Detection data model and duplicate merging.
package detection

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Detection is a single detected object region.
//
// Box is always expressed in the coordinate space of the original, unscaled
// image. Confidence is in [0,1]. Label is set only by manual annotation,
// never by automatic detection.
type Detection struct {
	Box        image.Rectangle `json:"box"`
	Confidence float32         `json:"confidence"`
	Label      string          `json:"label,omitempty"`
}

func (d Detection) String() string {
	if d.Label != "" {
		return fmt.Sprintf("%s (confidence %.2f): %v", d.Label, d.Confidence, d.Box)
	}
	return fmt.Sprintf("detection (confidence %.2f): %v", d.Confidence, d.Box)
}

// IoU calculates the Intersection over Union between two rectangles.
//
// Arguments:
//   - a: The first rectangle.
//   - b: The second rectangle.
//
// Returns:
//   - The IoU value between 0 and 1.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b).Size()
	interArea := inter.X * inter.Y
	if interArea <= 0 {
		return 0
	}
	areaA := a.Dx() * a.Dy()
	areaB := b.Dx() * b.Dy()
	return float32(interArea) / float32(areaA+areaB-interArea)
}

// Conflicts reports whether two detections overlap enough to be treated as
// duplicates of the same object. The predicate is IoU > 0, i.e. any
// non-empty intersection.
func (d Detection) Conflicts(o Detection) bool {
	return IoU(d.Box, o.Box) > 0
}

// Merge combines two conflicting detections into one.
//
// The result covers the union of both rectangles and carries the higher of
// the two confidences. A manual label on either side survives the merge; if
// both carry one, the first wins.
func Merge(a, b Detection) Detection {
	m := Detection{
		Box:        a.Box.Union(b.Box),
		Confidence: math32.Max(a.Confidence, b.Confidence),
		Label:      a.Label,
	}
	if m.Label == "" {
		m.Label = b.Label
	}
	return m
}
