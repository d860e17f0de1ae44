// Package storage provides access to a folder of labelled documents used for
// training and evaluation.
package storage

// LabelSchema maps the two class names of a data folder to binary labels.
type LabelSchema struct {
	Negative  string
	Positive  string
	SkipValue string
}

// Label returns 1 for the positive class name and 0 for the negative one.
func (s *LabelSchema) Label(name string) (int, bool) {
	switch name {
	case s.Positive:
		return 1, true
	case s.Negative:
		return 0, true
	default:
		return 0, false
	}
}

// Name returns the class name of a binary label.
func (s *LabelSchema) Name(label int) string {
	if label == 1 {
		return s.Positive
	}
	return s.Negative
}

// Document is a single labelled document read from storage.
type Document struct {
	Path      string
	URL       string
	LabelName string
	Label     int
	Text      string
	Tokens    []string
}
