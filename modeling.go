// Package modeling estimates the out-of-sample accuracy of candidate
// trainable models on a fixed tabular dataset using repeated k-fold
// cross-validation.
//
// Each repeat draws a fresh random partition of the sample indices into
// folds. Every candidate is trained on the complement of each fold and
// predicts the fold's held-out rows, so that across the folds of one
// repeat every sample receives exactly one out-of-fold prediction per
// candidate. The per-repeat mean squared error of those predictions is
// averaged over repeats and reported as R² relative to the variance of
// the response.
//
// The candidates themselves are opaque: anything satisfying Trainer can
// be evaluated. The nnet subpackage provides a single-hidden-layer
// neural network regressor; the fold subpackage provides the underlying
// partitioner.
package modeling

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidArgument is returned for a malformed cross-validation
	// request: mismatched dimensions, no candidates, or fold/repeat
	// counts out of range.
	ErrInvalidArgument = errors.New("modeling: invalid argument")

	// ErrDegenerateVariance is returned when the response is constant,
	// leaving R² undefined.
	ErrDegenerateVariance = errors.New("modeling: response variance is zero")
)

// A Trainer fits a model to the rows of x selected by inds. The seed
// drives any randomness in training, so that equal inputs and equal
// seeds produce identical models.
type Trainer interface {
	Train(x mat.Matrix, y []float64, inds []int, seed int64) (Model, error)
}

// A Model predicts the response at a single predictor row.
type Model interface {
	Predict(x []float64) float64
}

// A TrainingError reports a failed training call with the position in
// the cross-validation loop where it occurred. The first failure aborts
// the run; there is no partial-result recovery.
type TrainingError struct {
	Repeat    int // repeat index, 0-based
	Fold      int // fold index within the repeat, 0-based
	Candidate int // index into the candidate slice
	Err       error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("modeling: training failed on repeat %d, fold %d, candidate %d: %v",
		e.Repeat, e.Fold, e.Candidate, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }
