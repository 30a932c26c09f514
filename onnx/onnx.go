// Package onnx - Feature detection backed by ONNX Runtime sessions, for
// primary classifiers supplied as .onnx detection models.
package onnx

import (
	"context"
	"image"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/facelab/go-detect/detection"
	"github.com/facelab/go-detect/engine"
)

// Config describes an ONNX detection model with a YOLO-style output layout:
// one column per candidate, 4 box coordinates followed by per-class scores.
type Config struct {
	// LibraryPath overrides the ONNX Runtime shared library location.
	// Empty selects a platform default under third_party/.
	LibraryPath string
	// InputName and OutputName are the model's tensor names.
	InputName  string
	OutputName string
	// InputSize is the square model input edge in pixels.
	InputSize int
	// Classes is the number of object classes in the output.
	Classes int
	// Candidates is the number of candidate columns in the output.
	Candidates int
	// Confidence filters candidates below this class score.
	Confidence float32
	// NMSThreshold suppresses candidates overlapping a stronger one beyond
	// this IoU.
	NMSThreshold float32
}

// DefaultConfig matches a stock 640x640 YOLOv8-style export.
func DefaultConfig() Config {
	return Config{
		InputName:    "images",
		OutputName:   "output0",
		InputSize:    640,
		Classes:      80,
		Candidates:   8400,
		Confidence:   0.5,
		NMSThreshold: 0.7,
	}
}

var initOnce sync.Once

// initEnvironment initializes the shared ONNX Runtime environment once per
// process.
func initEnvironment(libraryPath string) (err error) {
	initOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = sharedLibPath()
		}
		ort.SetSharedLibraryPath(libraryPath)
		if e := ort.InitializeEnvironment(); e != nil {
			err = errors.Wrap(e, "initializing ORT environment")
		}
	})
	return err
}

// sharedLibPath returns the platform default ONNX Runtime library path.
func sharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}

// Detector runs one loaded ONNX detection model.
type Detector struct {
	config Config

	// The session owns fixed input/output tensors, so runs are serialized.
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// Load creates a session for the model at path.
//
// Returns:
//   - *Detector: The loaded detector.
//   - error: engine.ErrClassifierLoad if the model or runtime cannot be
//     loaded.
func Load(path string, config Config) (*Detector, error) {
	if err := initEnvironment(config.LibraryPath); err != nil {
		return nil, errors.Wrapf(engine.ErrClassifierLoad, "onnx %s: %v", path, err)
	}

	inputShape := ort.NewShape(1, 3, int64(config.InputSize), int64(config.InputSize))
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrapf(engine.ErrClassifierLoad, "onnx %s: input tensor: %v", path, err)
	}

	outputShape := ort.NewShape(1, int64(4+config.Classes), int64(config.Candidates))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrapf(engine.ErrClassifierLoad, "onnx %s: output tensor: %v", path, err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(engine.ErrClassifierLoad, "onnx %s: session options: %v", path, err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(4)
	options.SetInterOpNumThreads(2)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		path,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(engine.ErrClassifierLoad, "onnx %s: %v", path, err)
	}

	return &Detector{config: config, session: session, input: input, output: output}, nil
}

// Detect runs the model over the region and returns candidate rectangles in
// the region's coordinate space. The cascade-oriented scaleFactor and
// minNeighbors parameters have no ONNX equivalent and are ignored.
func (d *Detector) Detect(
	ctx context.Context,
	region image.Image,
	scaleFactor float64,
	minNeighbors int,
) ([]image.Rectangle, error) {
	_, _ = scaleFactor, minNeighbors
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.prepareInput(region)
	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running onnx inference")
	}
	return d.decodeOutput(region.Bounds().Dx(), region.Bounds().Dy()), nil
}

// prepareInput fills the input tensor with the region resized to the model
// edge, planar RGB, normalized to [0,1].
func (d *Detector) prepareInput(region image.Image) {
	edge := d.config.InputSize
	data := d.input.GetData()
	channelSize := edge * edge
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	resized := resize.Resize(uint(edge), uint(edge), region, resize.Lanczos3)
	i := 0
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
}

// decodeOutput extracts candidate boxes above the confidence threshold,
// scales them to the region's dimensions, and greedily suppresses
// candidates overlapping a stronger one.
func (d *Detector) decodeOutput(width, height int) []image.Rectangle {
	output := d.output.GetData()
	n := d.config.Candidates
	edge := float32(d.config.InputSize)

	type candidate struct {
		rect  image.Rectangle
		score float32
	}
	var candidates []candidate

	for idx := 0; idx < n; idx++ {
		best := float32(-1)
		for class := 0; class < d.config.Classes; class++ {
			if score := output[n*(class+4)+idx]; score > best {
				best = score
			}
		}
		if best < d.config.Confidence {
			continue
		}

		xc, yc := output[idx], output[n+idx]
		w, h := output[2*n+idx], output[3*n+idx]
		candidates = append(candidates, candidate{
			score: best,
			rect: image.Rect(
				int(math.Round(float64((xc-w/2)/edge*float32(width)))),
				int(math.Round(float64((yc-h/2)/edge*float32(height)))),
				int(math.Round(float64((xc+w/2)/edge*float32(width)))),
				int(math.Round(float64((yc+h/2)/edge*float32(height)))),
			),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var rects []image.Rectangle
	for _, c := range candidates {
		overlaps := false
		for _, kept := range rects {
			if detection.IoU(c.rect, kept) > d.config.NMSThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			rects = append(rects, c.rect)
		}
	}
	return rects
}

// Close destroys the session and its tensors.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return err
}
