package classifiers

// Set is an insertion-ordered collection of classifier specs partitioned by
// role. A Set is built once and then passed by value into detection calls:
// configuration changes produce a new Set rather than mutating one that an
// in-flight call may be reading.
type Set struct {
	primaries []Spec
	verifiers []Spec
}

// NewSet builds a set from the given specs, normalizing each and routing it
// by role. Specs with an unknown role are treated as primaries.
func NewSet(specs ...Spec) Set {
	var s Set
	for _, spec := range specs {
		s.Add(spec)
	}
	return s
}

// Add normalizes the spec and appends it to its role's partition.
func (s *Set) Add(spec Spec) {
	spec = spec.Normalize()
	if spec.Role == RoleVerifier {
		s.verifiers = append(s.verifiers, spec)
		return
	}
	spec.Role = RolePrimary
	s.primaries = append(s.primaries, spec)
}

// Primaries returns the primary specs in insertion order.
func (s Set) Primaries() []Spec {
	out := make([]Spec, len(s.primaries))
	copy(out, s.primaries)
	return out
}

// Verifiers returns the verifier specs in insertion order.
func (s Set) Verifiers() []Spec {
	out := make([]Spec, len(s.verifiers))
	copy(out, s.verifiers)
	return out
}

// HasVerifiers reports whether the set contains any verifier classifiers.
func (s Set) HasVerifiers() bool {
	return len(s.verifiers) > 0
}

// Len returns the total number of classifiers in the set.
func (s Set) Len() int {
	return len(s.primaries) + len(s.verifiers)
}
