package engine

import (
	"context"
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/detection"
)

func verifierSpec(path string, expected int) classifiers.Spec {
	return classifiers.Spec{Path: path, Role: classifiers.RoleVerifier, ExpectedFeatures: expected}.Normalize()
}

func singleDetectionSet(confidence float32) *detection.Set {
	return &detection.Set{Detections: []detection.Detection{
		{Box: image.Rect(10, 10, 60, 60), Confidence: confidence},
	}}
}

func eyeRects(n int) []image.Rectangle {
	rects := make([]image.Rectangle, n)
	for i := range rects {
		rects[i] = image.Rect(i*12, 10, i*12+8, 18)
	}
	return rects
}

func TestVerificationNoVerifiersIsNoOp(t *testing.T) {
	pass := &VerificationPass{Provider: stubProvider{}}
	in := singleDetectionSet(0.5)

	out, err := pass.Run(context.Background(), newStubSource(1.0), in, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVerificationHighConfidenceBypass(t *testing.T) {
	// At or above the acceptance threshold the verifier is never consulted,
	// so even an always-failing verifier cannot remove the detection.
	failing := &stubDetector{err: errors.New("verifier unavailable")}
	pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
		"eyes.xml": failing,
	}}}

	out, err := pass.Run(context.Background(), newStubSource(1.0), singleDetectionSet(0.96),
		[]classifiers.Spec{verifierSpec("eyes.xml", 2)})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 0, failing.callCount())
}

func TestVerificationExactCount(t *testing.T) {
	tests := []struct {
		name     string
		reported int
		kept     bool
	}{
		{name: "zero sub-features rejects", reported: 0, kept: false},
		{name: "exact count confirms", reported: 2, kept: true},
		{name: "too many sub-features rejects", reported: 3, kept: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
				"eyes.xml": &stubDetector{rects: eyeRects(tt.reported)},
			}}}

			out, err := pass.Run(context.Background(), newStubSource(1.0), singleDetectionSet(0.7),
				[]classifiers.Spec{verifierSpec("eyes.xml", 2)})

			require.NoError(t, err)
			if tt.kept {
				assert.Equal(t, 1, out.Len())
			} else {
				assert.Equal(t, 0, out.Len())
			}
		})
	}
}

func TestVerificationShortCircuits(t *testing.T) {
	second := &stubDetector{rects: eyeRects(2)}
	pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
		"eyes.xml": &stubDetector{rects: eyeRects(2)},
		"nose.xml": second,
	}}}

	out, err := pass.Run(context.Background(), newStubSource(1.0), singleDetectionSet(0.7),
		[]classifiers.Spec{verifierSpec("eyes.xml", 2), verifierSpec("nose.xml", 1)})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 0, second.callCount())
}

func TestVerificationSecondVerifierConfirms(t *testing.T) {
	pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
		"eyes.xml": &stubDetector{rects: eyeRects(1)},
		"nose.xml": &stubDetector{rects: eyeRects(1)},
	}}}

	out, err := pass.Run(context.Background(), newStubSource(1.0), singleDetectionSet(0.7),
		[]classifiers.Spec{verifierSpec("eyes.xml", 2), verifierSpec("nose.xml", 1)})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
}

func TestVerificationCropsDetectionRectangle(t *testing.T) {
	src := newStubSource(1.0)
	pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
		"eyes.xml": &stubDetector{rects: eyeRects(2)},
	}}}

	_, err := pass.Run(context.Background(), src, singleDetectionSet(0.7),
		[]classifiers.Spec{verifierSpec("eyes.xml", 2)})

	require.NoError(t, err)
	require.Len(t, src.crops, 1)
	assert.Equal(t, image.Rect(10, 10, 60, 60), src.crops[0])
}

func TestVerificationVerifierErrorPropagates(t *testing.T) {
	pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
		"eyes.xml": &stubDetector{err: errors.New("detect failed")},
	}}}

	_, err := pass.Run(context.Background(), newStubSource(1.0), singleDetectionSet(0.7),
		[]classifiers.Spec{verifierSpec("eyes.xml", 2)})

	assert.Error(t, err)
}

func TestVerificationKeepsOriginalOrder(t *testing.T) {
	in := &detection.Set{Detections: []detection.Detection{
		{Box: image.Rect(10, 10, 60, 60), Confidence: 0.99},
		{Box: image.Rect(100, 10, 150, 60), Confidence: 0.5},
		{Box: image.Rect(200, 10, 250, 60), Confidence: 0.97},
	}}
	pass := &VerificationPass{Provider: stubProvider{detectors: map[string]FeatureDetector{
		"eyes.xml": &stubDetector{rects: eyeRects(0)},
	}}}

	out, err := pass.Run(context.Background(), newStubSource(1.0), in,
		[]classifiers.Spec{verifierSpec("eyes.xml", 2)})

	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, image.Rect(10, 10, 60, 60), out.Detections[0].Box)
	assert.Equal(t, image.Rect(200, 10, 250, 60), out.Detections[1].Box)
}
