package scorer

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVectorizerTransform(t *testing.T) {
	path := writeArtifact(t, "vectorizer.json",
		`{"vocabulary":{"verifi":0,"account":1,"urgent":2},"idf":[1.0,2.0,3.0]}`)
	v, err := LoadVectorizer(path)
	if err != nil {
		t.Fatal(err)
	}
	if v.Dims() != 3 {
		t.Fatalf("Dims = %d, want 3", v.Dims())
	}

	vec := v.Transform("verifi account account unknown")
	// tf*idf before norm: [1*1, 2*2, 0] = [1, 4, 0], norm = sqrt(17)
	norm := math.Sqrt(17)
	want := []float64{1 / norm, 4 / norm, 0}
	for i, w := range want {
		if math.Abs(float64(vec[i])-w) > 1e-6 {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], w)
		}
	}
}

func TestVectorizerEmptyInput(t *testing.T) {
	path := writeArtifact(t, "vectorizer.json",
		`{"vocabulary":{"a":0},"idf":[1.5]}`)
	v, err := LoadVectorizer(path)
	if err != nil {
		t.Fatal(err)
	}
	vec := v.Transform("")
	if vec[0] != 0 {
		t.Errorf("empty input must produce a zero vector, got %v", vec)
	}
}

func TestVectorizerRejectsBadIndex(t *testing.T) {
	path := writeArtifact(t, "vectorizer.json",
		`{"vocabulary":{"a":5},"idf":[1.0]}`)
	if _, err := LoadVectorizer(path); err == nil {
		t.Fatal("expected error for out-of-range vocabulary index")
	}
}

func TestScalerTransform(t *testing.T) {
	path := writeArtifact(t, "scaler.json",
		`{"mean":[10,0,5],"scale":[2,0,1]}`)
	s, err := LoadScaler(path)
	if err != nil {
		t.Fatal(err)
	}

	out, err := s.Transform([]float32{14, 3, 5})
	if err != nil {
		t.Fatal(err)
	}
	// Zero scale leaves the centered value as-is.
	want := []float32{2, 3, 0}
	for i, w := range want {
		if out[i] != w {
			t.Errorf("out[%d] = %v, want %v", i, out[i], w)
		}
	}
}

func TestScalerDimensionMismatch(t *testing.T) {
	path := writeArtifact(t, "scaler.json", `{"mean":[1,2],"scale":[1,1]}`)
	s, err := LoadScaler(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transform([]float32{1}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestLoadLabelsArrayAndMapForms(t *testing.T) {
	arr := writeArtifact(t, "labels_arr.json", `["legitimate","phishing"]`)
	labels, err := loadLabels(arr)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != "legitimate" || labels[1] != "phishing" {
		t.Errorf("labels = %v", labels)
	}

	m := writeArtifact(t, "labels_map.json", `{"0":"legitimate","1":"phishing"}`)
	labels, err = loadLabels(m)
	if err != nil {
		t.Fatal(err)
	}
	if labels[0] != "legitimate" || labels[1] != "phishing" {
		t.Errorf("labels = %v", labels)
	}
}

func TestDecodeProbabilities(t *testing.T) {
	labels := []string{"legitimate", "phishing"}

	res, err := decodeProbabilities([]float32{0.2, 0.8}, labels)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsPhishing || res.Label != "phishing" {
		t.Errorf("result = %+v, want phishing", res)
	}
	if math.Abs(res.Confidence-0.8) > 1e-6 {
		t.Errorf("confidence = %v, want 0.8", res.Confidence)
	}

	res, err = decodeProbabilities([]float32{0.9, 0.1}, labels)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsPhishing || res.Label != "legitimate" {
		t.Errorf("result = %+v, want legitimate", res)
	}

	if _, err := decodeProbabilities(nil, labels); err == nil {
		t.Fatal("expected error for empty probability row")
	}
}

func TestClassifyOnNilModelsReturnsUnavailable(t *testing.T) {
	var tm *TextModel
	if _, err := tm.Classify("x"); err != ErrUnavailable {
		t.Errorf("TextModel err = %v, want ErrUnavailable", err)
	}
	var um *URLModel
	if _, err := um.Classify(nil); err != ErrUnavailable {
		t.Errorf("URLModel err = %v, want ErrUnavailable", err)
	}
}
