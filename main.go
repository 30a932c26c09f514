package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/facelab/go-detect/cascade"
	"github.com/facelab/go-detect/classifiers"
	"github.com/facelab/go-detect/engine"
	"github.com/facelab/go-detect/images"
	"github.com/facelab/go-detect/onnx"
)

const (
	// DefaultWeight is the confidence stamped onto hits from classifiers
	// added on the command line without an explicit weight.
	DefaultWeight = 0.8
	// DefaultMaxWorkingEdge caps the working image handed to classifiers.
	DefaultMaxWorkingEdge = 1280
)

// backendProvider routes specs to the cascade or ONNX cache by file
// extension.
type backendProvider struct {
	cascades *cascade.Provider
	models   *onnx.Provider
}

func (p backendProvider) Detector(spec classifiers.Spec) (engine.FeatureDetector, error) {
	if strings.EqualFold(filepath.Ext(spec.Path), ".onnx") {
		return p.models.Detector(spec)
	}
	return p.cascades.Detector(spec)
}

func main() {
	var (
		configPath   string
		primaryList  string
		verifierList string
		imagePath    string
		dirPath      string
		verify       bool
		timeout      time.Duration
		maxEdge      int
		outputDir    string
	)
	flag.StringVar(&configPath, "config", "", "Path to a JSON classifier set")
	flag.StringVar(&primaryList, "primary", "", "Comma-separated primary classifiers, each path[:weight]")
	flag.StringVar(&verifierList, "verifier", "", "Comma-separated verifier classifiers, each path[:expected]")
	flag.StringVar(&imagePath, "image", "", "Path to a single image file")
	flag.StringVar(&dirPath, "dir", "", "Path to a directory of images")
	flag.BoolVar(&verify, "verify", true, "Enable secondary verification")
	flag.DurationVar(&timeout, "timeout", 0, "Per-classifier timeout (0 = none)")
	flag.IntVar(&maxEdge, "max-edge", DefaultMaxWorkingEdge, "Longest edge of the detection working image (0 = native)")
	flag.StringVar(&outputDir, "output-dir", "", "Directory for annotated copies (empty = no drawing)")
	flag.Parse()

	set, err := buildClassifierSet(configPath, primaryList, verifierList)
	if err != nil {
		log.Fatal(err)
	}
	if set.Len() == 0 {
		log.Fatal("no classifiers configured: pass -config or -primary")
	}

	paths, err := collectInputs(imagePath, dirPath)
	if err != nil {
		log.Fatal(err)
	}

	provider := backendProvider{
		cascades: cascade.NewProvider(),
		models:   onnx.NewProvider(onnx.DefaultConfig()),
	}
	defer provider.cascades.Close()
	defer provider.models.Close()

	detector := engine.NewCombinedDetector(provider)
	detector.Verify = verify
	detector.Timeout = timeout

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			log.Fatalf("creating output directory: %v", err)
		}
	}

	ctx := context.Background()
	for _, path := range paths {
		ic, err := images.Open(path)
		if err != nil {
			log.Fatalf("loading %s: %v", path, err)
		}
		ic.MaxWorkingEdge = maxEdge

		start := time.Now()
		count, err := detector.Detect(ctx, ic, set)
		if err != nil {
			log.Fatalf("detecting in %s: %v", path, err)
		}

		fmt.Printf("%s: %d detection(s) in %s\n", path, count, time.Since(start).Round(time.Millisecond))
		for _, d := range ic.Detections.Detections {
			fmt.Printf("  %s\n", d)
		}

		if outputDir != "" {
			if err := writeAnnotated(path, outputDir, ic); err != nil {
				log.Printf("warning: annotating %s: %v", path, err)
			}
		}
	}
}

// buildClassifierSet loads the config file when given, then appends any
// classifiers from the command-line lists.
func buildClassifierSet(configPath, primaryList, verifierList string) (classifiers.Set, error) {
	var set classifiers.Set
	if configPath != "" {
		loaded, err := classifiers.LoadFile(configPath)
		if err != nil {
			return classifiers.Set{}, err
		}
		set = loaded
	}

	for _, entry := range splitList(primaryList) {
		path, param := splitEntry(entry)
		weight := float64(DefaultWeight)
		if param != "" {
			w, err := strconv.ParseFloat(param, 32)
			if err != nil {
				return classifiers.Set{}, fmt.Errorf("bad primary weight in %q: %v", entry, err)
			}
			weight = w
		}
		set.Add(classifiers.Spec{Path: path, Role: classifiers.RolePrimary, Weight: float32(weight)})
	}

	for _, entry := range splitList(verifierList) {
		path, param := splitEntry(entry)
		expected := 0
		if param != "" {
			e, err := strconv.Atoi(param)
			if err != nil {
				return classifiers.Set{}, fmt.Errorf("bad verifier feature count in %q: %v", entry, err)
			}
			expected = e
		}
		set.Add(classifiers.Spec{Path: path, Role: classifiers.RoleVerifier, ExpectedFeatures: expected})
	}

	return set, nil
}

func splitList(list string) []string {
	if list == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// splitEntry separates "path:param" on the last colon so Windows drive
// letters survive.
func splitEntry(entry string) (path, param string) {
	i := strings.LastIndex(entry, ":")
	if i < 0 || strings.ContainsAny(entry[i+1:], `/\`) {
		return entry, ""
	}
	return entry[:i], entry[i+1:]
}

func collectInputs(imagePath, dirPath string) ([]string, error) {
	switch {
	case imagePath != "" && dirPath != "":
		return nil, fmt.Errorf("pass either -image or -dir, not both")
	case imagePath != "":
		return []string{imagePath}, nil
	case dirPath != "":
		paths, err := images.ListDirectory(dirPath)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no images found in %s", dirPath)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("pass -image or -dir")
	}
}

// writeAnnotated saves a copy of the image with detection rectangles and
// confidence labels drawn on.
func writeAnnotated(path, outputDir string, ic *images.Context) error {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("could not re-read %s for annotation", path)
	}
	defer mat.Close()

	green := color.RGBA{G: 255}
	for _, d := range ic.Detections.Detections {
		gocv.Rectangle(&mat, d.Box, green, 2)
		label := fmt.Sprintf("%.2f", d.Confidence)
		if d.Label != "" {
			label = fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
		}
		gocv.PutText(&mat, label, d.Box.Min.Add(image.Pt(2, -4)), gocv.FontHersheyPlain, 1.2, green, 2)
	}

	out := filepath.Join(outputDir, filepath.Base(path))
	if ok := gocv.IMWrite(out, mat); !ok {
		return fmt.Errorf("writing %s", out)
	}
	return nil
}
