package classifiers

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// fileConfig is the on-disk shape of a persisted classifier set.
type fileConfig struct {
	Classifiers []Spec `json:"classifiers"`
}

// LoadFile reads a classifier set from a JSON configuration file.
//
// Arguments:
//   - path: The configuration file path.
//
// Returns:
//   - Set: The loaded set, with every spec normalized and routed by role.
//   - error: An error if the file cannot be read or parsed.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, errors.Wrapf(err, "reading classifier config %s", path)
	}
	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Set{}, errors.Wrapf(err, "parsing classifier config %s", path)
	}
	return NewSet(cfg.Classifiers...), nil
}

// SaveFile writes a classifier set to a JSON configuration file.
func SaveFile(path string, s Set) error {
	cfg := fileConfig{Classifiers: append(s.Primaries(), s.Verifiers()...)}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding classifier config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing classifier config %s", path)
	}
	return nil
}
