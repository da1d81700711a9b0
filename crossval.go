package modeling

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ifeomaozo/predictive-modeling/fold"
)

// Settings configures a cross-validation run.
type Settings struct {
	// Folds is the number of folds per repeat. Must be in [2, n]: with
	// a single fold there is no training complement to fit on.
	Folds int
	// Repeats is the number of times the fold assignment is
	// re-randomized and the full fold loop run. Must be positive.
	Repeats int
	// Seed drives every random choice in the run: the per-repeat fold
	// permutations and the seed handed to each training call. Equal
	// seeds reproduce the run exactly for deterministic trainers.
	Seed int64
	// Concurrent is the number of concurrent training jobs. If zero or
	// negative, defaults to GOMAXPROCS.
	Concurrent int
}

// Result holds the cross-validated accuracy of one candidate.
type Result struct {
	// MSE is the mean squared error of the out-of-fold predictions in
	// each repeat.
	MSE []float64
	// MeanMSE averages MSE over the repeats.
	MeanMSE float64
	// R2 is 1 - MeanMSE/Var(y). The population variance of y is used,
	// so a model that always predicts the response mean scores exactly
	// zero. R2 can be negative when a candidate predicts worse than
	// the mean.
	R2 float64
}

// CrossValidate evaluates every candidate trainer by repeated k-fold
// cross-validation over the rows of x and returns one Result per
// candidate, in candidate order.
//
// Training calls are issued R*k*C times for R repeats, k folds, and C
// candidates. Independent (fold, candidate) jobs within one repeat run
// concurrently; their predictions land in disjoint portions of the
// out-of-fold table, and each repeat joins before its error is computed.
// A training failure aborts the whole run with a *TrainingError.
func CrossValidate(x mat.Matrix, y []float64, trainers []Trainer, settings *Settings) ([]Result, error) {
	n, _ := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d responses for %d rows", ErrInvalidArgument, len(y), n)
	}
	if len(trainers) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrInvalidArgument)
	}
	if settings == nil {
		return nil, fmt.Errorf("%w: nil settings", ErrInvalidArgument)
	}
	if settings.Repeats < 1 {
		return nil, fmt.Errorf("%w: %d repeats", ErrInvalidArgument, settings.Repeats)
	}
	if settings.Folds < 2 || settings.Folds > n {
		return nil, fmt.Errorf("%w: %d folds for %d samples", ErrInvalidArgument, settings.Folds, n)
	}

	variance := populationVariance(y)
	if variance == 0 {
		return nil, ErrDegenerateVariance
	}

	rng := rand.New(rand.NewSource(settings.Seed))

	// One error column per candidate, one row per repeat.
	mses := make([][]float64, len(trainers))
	for c := range mses {
		mses[c] = make([]float64, 0, settings.Repeats)
	}

	for rep := 0; rep < settings.Repeats; rep++ {
		oof, err := repeatPredictions(x, y, trainers, settings, rep, rng)
		if err != nil {
			return nil, err
		}
		for c := range trainers {
			var sse float64
			for i, pred := range oof[c] {
				d := y[i] - pred
				sse += d * d
			}
			mses[c] = append(mses[c], sse/float64(n))
		}
	}

	results := make([]Result, len(trainers))
	for c := range results {
		mean := stat.Mean(mses[c], nil)
		results[c] = Result{
			MSE:     mses[c],
			MeanMSE: mean,
			R2:      1 - mean/variance,
		}
	}
	return results, nil
}

// repeatPredictions runs the fold loop of a single repeat and returns
// the assembled out-of-fold prediction vector per candidate. The folds
// are disjoint and exhaustive, so every (fold, candidate) job writes a
// disjoint set of cells and the workers need no locking beyond the
// final join.
func repeatPredictions(x mat.Matrix, y []float64, trainers []Trainer, settings *Settings, rep int, rng *rand.Rand) ([][]float64, error) {
	n, dim := x.Dims()
	training, heldout, err := fold.Split(n, settings.Folds, rng)
	if err != nil {
		return nil, err
	}

	oof := make([][]float64, len(trainers))
	for c := range oof {
		oof[c] = make([]float64, n)
	}

	// A non-positive worker count would start no workers and leak the
	// producer; fall back to GOMAXPROCS instead.
	concurrent := settings.Concurrent
	if concurrent <= 0 {
		concurrent = runtime.GOMAXPROCS(0)
	}

	type job struct {
		fold, cand int
		seed       int64
	}
	jobs := make(chan job)
	go func() {
		for k := range training {
			for c := range trainers {
				jobs <- job{fold: k, cand: c, seed: jobSeed(settings.Seed, rep, k, c)}
			}
		}
		close(jobs)
	}()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for w := 0; w < concurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			row := make([]float64, dim)
			for jb := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				m, err := trainers[jb.cand].Train(x, y, training[jb.fold], jb.seed)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = &TrainingError{Repeat: rep, Fold: jb.fold, Candidate: jb.cand, Err: err}
					}
					mu.Unlock()
					continue
				}
				for _, idx := range heldout[jb.fold] {
					mat.Row(row, idx, x)
					oof[jb.cand][idx] = m.Predict(row)
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return oof, nil
}

// jobSeed derives a distinct deterministic seed for each
// (repeat, fold, candidate) training call.
func jobSeed(base int64, rep, foldIdx, cand int) int64 {
	h := uint64(base)
	for _, v := range [...]uint64{uint64(rep), uint64(foldIdx), uint64(cand)} {
		h ^= v + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	}
	return int64(h)
}

// populationVariance is sum((y-mean)^2)/n. Using it rather than the
// sample variance keeps the MSE and variance denominators consistent in
// the R² ratio.
func populationVariance(y []float64) float64 {
	mean := stat.Mean(y, nil)
	var ss float64
	for _, v := range y {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(y))
}
