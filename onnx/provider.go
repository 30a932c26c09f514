package onnx

import (
	"sync"

	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/engine"
)

// Provider is a DetectorProvider that loads each ONNX model once and reuses
// the session across detections and calls. The cache is keyed by model
// path; a spec pointing at a new path loads a new session.
type Provider struct {
	config Config

	mu     sync.RWMutex
	loaded map[string]*Detector
}

// NewProvider creates an empty session cache. Every model loaded through it
// shares the given config.
func NewProvider(config Config) *Provider {
	return &Provider{config: config, loaded: make(map[string]*Detector)}
}

// Detector returns the cached session for the spec's path, loading it on
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
	det, err := Load(spec.Path, p.config)
	if err != nil {
		return nil, err
	}
	p.loaded[spec.Path] = det
	return det, nil
}

// Close destroys every cached session.
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
