// Package classifiers describes the detector resources available to a
// detection call.
package classifiers

// Role determines how a classifier participates in a detection call.
type Role string

const (
	// RolePrimary seeds the detection set.
	RolePrimary Role = "primary"
	// RoleVerifier only confirms or rejects low-confidence primary hits.
	RoleVerifier Role = "verifier"
)

const (
	// DefaultScaleFactor is the pyramid step used when a spec does not carry
	// a valid one.
	DefaultScaleFactor = 1.08
	// DefaultMinNeighbors is the neighbor threshold used when a spec does
	// not carry a valid one.
	DefaultMinNeighbors = 4
	// DefaultExpectedFeatures is the sub-feature count a verifier must
	// report to confirm a detection (e.g. two eyes for a face).
	DefaultExpectedFeatures = 2
)

// Spec identifies one classifier resource and its detection parameters.
type Spec struct {
	// Path locates the classifier resource (cascade XML or ONNX model).
	Path string `json:"path"`
	// Role routes the classifier into the primary or verifier partition.
	Role Role `json:"role"`
	// ScaleFactor is the detection pyramid step. Must be >= 1.0.
	ScaleFactor float64 `json:"scale_factor"`
	// MinNeighbors is the minimum neighbor count for a raw hit. Must be >= 1.
	MinNeighbors int `json:"min_neighbors"`
	// Weight is the static confidence in [0,1] stamped onto this
	// classifier's raw hits. Primaries only.
	Weight float32 `json:"weight"`
	// ExpectedFeatures is the exact sub-feature count that confirms a
	// detection. Verifiers only.
	ExpectedFeatures int `json:"expected_features,omitempty"`
}

// Normalize returns a copy of the spec with out-of-range parameters reset
// to their defaults.
func (s Spec) Normalize() Spec {
	if s.ScaleFactor < 1.0 {
		s.ScaleFactor = DefaultScaleFactor
	}
	if s.MinNeighbors < 1 {
		s.MinNeighbors = DefaultMinNeighbors
	}
	if s.Weight < 0 {
		s.Weight = 0
	}
	if s.Weight > 1 {
		s.Weight = 1
	}
	if s.Role == RoleVerifier && s.ExpectedFeatures < 1 {
		s.ExpectedFeatures = DefaultExpectedFeatures
	}
	return s
}
