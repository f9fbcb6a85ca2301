package scorer

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// Vectorizer reproduces the TF-IDF transform the text classifiers were
// trained with. The vocabulary and IDF weights are exported alongside the
// model; feature order is the vocabulary index order.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// LoadVectorizer reads a vectorizer artifact from disk and validates that
// the vocabulary indexes stay within the IDF table.
func LoadVectorizer(path string) (*Vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectorizer: %w", err)
	}
	var v Vectorizer
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vectorizer: %w", err)
	}
	if len(v.Vocabulary) == 0 || len(v.IDF) == 0 {
		return nil, fmt.Errorf("vectorizer artifact %s is empty", path)
	}
	for term, idx := range v.Vocabulary {
		if idx < 0 || idx >= len(v.IDF) {
			return nil, fmt.Errorf("vectorizer term %q index %d out of range", term, idx)
		}
	}
	return &v, nil
}

// Dims returns the feature dimensionality of the transform.
func (v *Vectorizer) Dims() int { return len(v.IDF) }

// Transform converts preprocessed text (whitespace-joined stemmed tokens)
// into an L2-normalized TF-IDF vector. Out-of-vocabulary tokens are
// dropped, matching the training transform.
func (v *Vectorizer) Transform(preprocessed string) []float32 {
	vec := make([]float64, len(v.IDF))
	for _, tok := range strings.Fields(preprocessed) {
		if idx, ok := v.Vocabulary[tok]; ok {
			vec[idx]++
		}
	}
	var sumSq float64
	for i := range vec {
		if vec[i] > 0 {
			vec[i] *= v.IDF[i]
			sumSq += vec[i] * vec[i]
		}
	}
	out := make([]float32, len(vec))
	if sumSq == 0 {
		return out
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		out[i] = float32(vec[i] / norm)
	}
	return out
}

// Scaler reproduces the standard-scaling transform applied to the URL
// feature vector before classification.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadScaler reads a scaler artifact from disk.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scaler: %w", err)
	}
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("scaler artifact %s malformed: %d means, %d scales",
			path, len(s.Mean), len(s.Scale))
	}
	return &s, nil
}

// Dims returns the feature dimensionality the scaler expects.
func (s *Scaler) Dims() int { return len(s.Mean) }

// Transform applies (x - mean) / scale per feature. A zero scale leaves the
// centered value untouched, mirroring the training transform's guard for
// constant features.
func (s *Scaler) Transform(features []float32) ([]float32, error) {
	if len(features) != len(s.Mean) {
		return nil, fmt.Errorf("feature vector has %d values, scaler expects %d",
			len(features), len(s.Mean))
	}
	out := make([]float32, len(features))
	for i, f := range features {
		centered := float64(f) - s.Mean[i]
		if s.Scale[i] != 0 {
			centered /= s.Scale[i]
		}
		out[i] = float32(centered)
	}
	return out, nil
}
