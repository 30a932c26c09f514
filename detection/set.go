package detection

// Set is the list-backed collection of detections for one image. Insertion
// order carries no meaning once the set has been deduplicated.
type Set struct {
	Detections []Detection `json:"detections"`
}

// NewSet creates an empty detection set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a detection to the set.
func (s *Set) Add(d Detection) {
	s.Detections = append(s.Detections, d)
}

// Len returns the number of detections in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Detections)
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	out := make([]Detection, len(s.Detections))
	copy(out, s.Detections)
	return &Set{Detections: out}
}
