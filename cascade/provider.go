package cascade

import (
	"sync"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/engine"
)

// Provider is a DetectorProvider that loads each cascade file once and
// reuses it across detections, frames, and calls. Scale factor and neighbor
// threshold are per-invocation arguments, not load-time state, so the cache
// is keyed by resource path alone: a spec pointing at a new path loads a
// new cascade, and changed parameters take effect on the next invocation
// without a reload.
type Provider struct {
	mu     sync.RWMutex
	loaded map[string]*Detector
}

// NewProvider creates an empty cascade cache.
func NewProvider() *Provider {
	return &Provider{loaded: make(map[string]*Detector)}
}

// Detector returns the cached detector for the spec's path, loading it on
// first use.
func (p *Provider) Detector(spec classifiers.Spec) (engine.FeatureDetector, error) {
	p.mu.RLock()
	det, ok := p.loaded[spec.Path]
	p.mu.RUnlock()
	if ok {
		return det, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if det, ok := p.loaded[spec.Path]; ok {
		return det, nil
	}
	det, err := Load(spec.Path)
	if err != nil {
		return nil, err
	}
	p.loaded[spec.Path] = det
	return det, nil
}

// Close releases every cached cascade.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for path, det := range p.loaded {
		if err := det.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.loaded, path)
	}
	return first
}
