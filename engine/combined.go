package engine

import (
	"context"
	"time"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/images"
)

// CombinedDetector is the single entry point for detecting objects in one
// image: it runs fusion over the primaries, optionally runs verification,
// and attaches the final set to the image context.
type CombinedDetector struct {
	// Provider resolves classifier specs to loaded detectors.
	Provider DetectorProvider
	// Verify enables the secondary verification pass when the classifier
	// set contains verifiers.
	Verify bool
	// Timeout bounds each primary classifier invocation. Zero disables it.
	Timeout time.Duration
}

// NewCombinedDetector creates a detector with verification enabled.
func NewCombinedDetector(provider DetectorProvider) *CombinedDetector {
	return &CombinedDetector{Provider: provider, Verify: true}
}

// Detect runs the full pipeline against one image and returns the number of
// final detections.
//
// A detection set already attached to the context is folded into fusion as
// one extra candidate source, so manual or cached detections deduplicate on
// equal footing with fresh hits. On success the attached set is replaced
// with the new result; on any error the previously attached set is left
// untouched.
//
// Arguments:
//   - ctx: The call context.
//   - ic: The image under detection. Must carry decoded pixels.
//   - set: The classifier snapshot for this call.
//
// Returns:
//   - int: The number of detections in the attached set.
//   - error: ErrInvalidImage for an empty image, otherwise the first
//     classifier load or detection failure.
func (c *CombinedDetector) Detect(ctx context.Context, ic *images.Context, set classifiers.Set) (int, error) {
	if ic == nil || ic.Bounds().Empty() {
		return 0, ErrInvalidImage
	}

	fusion := &Fusion{Provider: c.Provider, Timeout: c.Timeout}
	fused, err := fusion.Run(ctx, ic, set.Primaries(), ic.Detections)
	if err != nil {
		return 0, err
	}

	if c.Verify && set.HasVerifiers() {
		pass := &VerificationPass{Provider: c.Provider}
		fused, err = pass.Run(ctx, ic, fused, set.Verifiers())
		if err != nil {
			return 0, err
		}
	}

	ic.Detections = fused
	return fused.Len(), nil
}
