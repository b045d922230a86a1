package ml

// Classifier is trained on integer-encoded labels.
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	Predict(features []float64) (int, float64, error)
}

// Persistent classifiers can be written next to the search results.
type Persistent interface {
	Classifier
	Save(path string) error
	Load(path string) error
}
