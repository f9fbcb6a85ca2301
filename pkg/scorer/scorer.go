// Package scorer adapts the trained ONNX classifier artifacts behind a
// small, deterministic API. One bundle directory per content type holds the
// model plus its preprocessing artifacts:
//
//	model.onnx       exported classifier, probability output
//	label_map.json   index -> label ("legitimate", "phishing")
//	vectorizer.json  TF-IDF vocabulary + IDF weights (email, sms)
//	scaler.json      standard-scaler mean/scale (url)
//
// Sessions are created once at load time with preallocated input and output
// tensors; Run is serialized with a mutex because the tensors are shared.
package scorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/phishguard-io/phishguard/pkg/textproc"
)

// ErrUnavailable reports that a classifier artifact is not loaded. Callers
// treat it as a degraded-capability condition, not a request failure.
var ErrUnavailable = errors.New("scorer: model unavailable")

// Result is one classification outcome.
type Result struct {
	Label      string  `json:"label"`
	IsPhishing bool    `json:"is_phishing"`
	Confidence float64 `json:"confidence"`
}

// model wraps one ONNX session with its preallocated tensors.
type model struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	labels  []string
	dims    int

	mu sync.Mutex
}

var ortInit sync.Once

// initRuntime points the binding at the shared library and initializes the
// environment once per process.
func initRuntime(bundleDir string) error {
	var initErr error
	ortInit.Do(func() {
		libPath := resolveSharedLibraryPath(bundleDir)
		if libPath == "" {
			initErr = errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if !ort.IsInitialized() {
			initErr = ort.InitializeEnvironment()
		}
	})
	return initErr
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared
// library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common
// names and locations are probed.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}
	names := []string{
		"libonnxruntime.dylib", "onnxruntime.dylib",
		"libonnxruntime.so", "onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func openModel(bundleDir string, dims int) (*model, error) {
	if err := initRuntime(bundleDir); err != nil {
		return nil, err
	}

	modelPath := filepath.Join(bundleDir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}
	labels, err := loadLabels(filepath.Join(bundleDir, "label_map.json"))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dims)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"float_input"},
		[]string{"probabilities"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &model{
		session: session,
		input:   input,
		output:  output,
		labels:  labels,
		dims:    dims,
	}, nil
}

// run executes one inference and decodes the probability row.
func (m *model) run(features []float32) (Result, error) {
	if m == nil || m.session == nil {
		return Result{}, ErrUnavailable
	}
	if len(features) != m.dims {
		return Result{}, fmt.Errorf("feature vector has %d values, model expects %d", len(features), m.dims)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), features)
	if err := m.session.Run(); err != nil {
		return Result{}, fmt.Errorf("onnx run: %w", err)
	}
	return decodeProbabilities(m.output.GetData(), m.labels)
}

// decodeProbabilities turns one probability row into a Result: argmax label,
// max probability as confidence.
func decodeProbabilities(probs []float32, labels []string) (Result, error) {
	if len(probs) == 0 || len(probs) < len(labels) {
		return Result{}, fmt.Errorf("probability row has %d values for %d labels", len(probs), len(labels))
	}
	best := 0
	for i := 1; i < len(labels); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	label := labels[best]
	return Result{
		Label:      label,
		IsPhishing: label == "phishing",
		Confidence: float64(probs[best]),
	}, nil
}

func (m *model) close() {
	if m == nil {
		return
	}
	if m.session != nil {
		m.session.Destroy()
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// TextModel classifies preprocessed text via TF-IDF + ONNX. Used for the
// email and SMS content types, each with its own bundle.
type TextModel struct {
	model      *model
	vectorizer *Vectorizer
}

// LoadTextModel loads a text classification bundle from bundleDir.
func LoadTextModel(bundleDir string) (*TextModel, error) {
	if bundleDir == "" {
		return nil, ErrUnavailable
	}
	vec, err := LoadVectorizer(filepath.Join(bundleDir, "vectorizer.json"))
	if err != nil {
		return nil, err
	}
	m, err := openModel(bundleDir, vec.Dims())
	if err != nil {
		return nil, err
	}
	return &TextModel{model: m, vectorizer: vec}, nil
}

// Classify runs the full text pipeline: preprocess, vectorize, infer.
func (t *TextModel) Classify(text string) (Result, error) {
	if t == nil || t.model == nil {
		return Result{}, ErrUnavailable
	}
	return t.model.run(t.vectorizer.Transform(textproc.Preprocess(text)))
}

// Close releases the session and tensors.
func (t *TextModel) Close() {
	if t != nil {
		t.model.close()
	}
}

// URLModel classifies URL feature vectors via standard scaling + ONNX.
type URLModel struct {
	model  *model
	scaler *Scaler
}

// LoadURLModel loads the URL classification bundle from bundleDir.
func LoadURLModel(bundleDir string) (*URLModel, error) {
	if bundleDir == "" {
		return nil, ErrUnavailable
	}
	scaler, err := LoadScaler(filepath.Join(bundleDir, "scaler.json"))
	if err != nil {
		return nil, err
	}
	m, err := openModel(bundleDir, scaler.Dims())
	if err != nil {
		return nil, err
	}
	return &URLModel{model: m, scaler: scaler}, nil
}

// Classify scales the feature vector and runs inference.
func (u *URLModel) Classify(features []float32) (Result, error) {
	if u == nil || u.model == nil {
		return Result{}, ErrUnavailable
	}
	scaled, err := u.scaler.Transform(features)
	if err != nil {
		return Result{}, err
	}
	return u.model.run(scaled)
}

// Close releases the session and tensors.
func (u *URLModel) Close() {
	if u != nil {
		u.model.close()
	}
}
