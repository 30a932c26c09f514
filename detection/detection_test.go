package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b image.Rectangle
		want float32
	}{
		{
			name: "identical rectangles",
			a:    image.Rect(0, 0, 10, 10),
			b:    image.Rect(0, 0, 10, 10),
			want: 1.0,
		},
		{
			name: "disjoint rectangles",
			a:    image.Rect(0, 0, 10, 10),
			b:    image.Rect(20, 20, 30, 30),
			want: 0.0,
		},
		{
			name: "edge-touching rectangles do not overlap",
			a:    image.Rect(0, 0, 10, 10),
			b:    image.Rect(10, 0, 20, 10),
			want: 0.0,
		},
		{
			name: "quarter offset",
			a:    image.Rect(0, 0, 10, 10),
			b:    image.Rect(5, 5, 15, 15),
			want: 25.0 / 175.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-6)
		})
	}
}

func TestConflicts(t *testing.T) {
	a := Detection{Box: image.Rect(10, 10, 60, 60)}
	b := Detection{Box: image.Rect(12, 12, 58, 58)}
	c := Detection{Box: image.Rect(200, 200, 230, 230)}

	assert.True(t, a.Conflicts(b))
	assert.True(t, b.Conflicts(a))
	assert.False(t, a.Conflicts(c))
}

func TestMerge(t *testing.T) {
	a := Detection{Box: image.Rect(10, 10, 60, 60), Confidence: 0.9}
	b := Detection{Box: image.Rect(12, 12, 64, 58), Confidence: 0.85}

	m := Merge(a, b)
	assert.Equal(t, image.Rect(10, 10, 64, 60), m.Box)
	assert.Equal(t, float32(0.9), m.Confidence)

	// Merging never lowers confidence, whichever side is stronger.
	m = Merge(b, a)
	assert.Equal(t, float32(0.9), m.Confidence)
}

func TestMergePreservesLabel(t *testing.T) {
	manual := Detection{Box: image.Rect(10, 10, 60, 60), Confidence: 0.95, Label: "Alice"}
	auto := Detection{Box: image.Rect(12, 12, 58, 58), Confidence: 0.7}

	assert.Equal(t, "Alice", Merge(manual, auto).Label)
	assert.Equal(t, "Alice", Merge(auto, manual).Label)

	// When both sides carry a label the first wins.
	other := Detection{Box: image.Rect(12, 12, 58, 58), Confidence: 0.7, Label: "Bob"}
	assert.Equal(t, "Alice", Merge(manual, other).Label)
}
