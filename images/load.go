package images

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Supported file extensions.
var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

// Open decodes an image file into a detection context.
//
// Arguments:
//   - path: The image file path. jpeg, png, bmp, gif, tiff and webp are
//     supported.
//
// Returns:
//   - *Context: The context wrapping the decoded image.
//   - error: An error if the file cannot be read or decoded.
func Open(path string) (*Context, error) {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", path)
		}
		defer f.Close()
		img, err := webp.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding webp %s", path)
		}
		return NewContext(path, img), nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return NewContext(path, img), nil
}

// ListDirectory returns the paths of all supported image files directly
// inside dir, sorted by name.
func ListDirectory(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}

	var paths []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(file.Name()))
		for _, supported := range supportedExtensions {
			if ext == supported {
				paths = append(paths, filepath.Join(dir, file.Name()))
				break
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}
