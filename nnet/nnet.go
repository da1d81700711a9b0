// Package nnet implements a single-hidden-layer neural network for
// regression on tabular data. The hidden layer uses tanh activations and
// the output is linear. Training is minibatch gradient descent with an
// L2 weight-decay penalty, the two hyperparameters the cross-validation
// driver tunes being the hidden width and the decay coefficient.
//
// Works best on standardized predictors; see the dataset package.
package nnet

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	modeling "github.com/ifeomaozo/predictive-modeling"
)

// ErrInvalidConfig is returned by Train for an unusable configuration.
var ErrInvalidConfig = errors.New("nnet: invalid config")

// errDiverged reports numerical blow-up during training, typically from
// a too-large learning rate.
var errDiverged = errors.New("nnet: training diverged")

const (
	defaultLearningRate = 0.01
	defaultEpochs       = 200
)

// Config identifies one candidate network and satisfies
// modeling.Trainer. The zero value of the optional fields picks
// defaults; Hidden must be set.
type Config struct {
	// Hidden is the hidden-layer width. Must be at least 1.
	Hidden int
	// WeightDecay is the L2 penalty coefficient on the weights. Biases
	// are not penalized.
	WeightDecay float64
	// LearningRate is the gradient step size. If 0, defaults to 0.01.
	LearningRate float64
	// Epochs is the number of passes over the training rows. If 0,
	// defaults to 200.
	Epochs int
	// Batch is the minibatch size. If 0 or larger than the training
	// set, each epoch is a single full-batch step.
	Batch int
}

// Network is a fitted single-hidden-layer regressor.
type Network struct {
	w1 [][]float64 // [hidden][in]
	b1 []float64
	w2 []float64 // [hidden]
	b2 float64
}

// Train fits a network to the rows of x selected by inds. The seed
// drives weight initialization and minibatch shuffling, so equal seeds
// reproduce the fit exactly.
func (c Config) Train(x mat.Matrix, y []float64, inds []int, seed int64) (modeling.Model, error) {
	if c.Hidden < 1 {
		return nil, fmt.Errorf("%w: hidden width %d", ErrInvalidConfig, c.Hidden)
	}
	if c.WeightDecay < 0 {
		return nil, fmt.Errorf("%w: negative weight decay %v", ErrInvalidConfig, c.WeightDecay)
	}
	if len(inds) == 0 {
		return nil, fmt.Errorf("%w: no training rows", ErrInvalidConfig)
	}
	n, dim := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d responses for %d rows", ErrInvalidConfig, len(y), n)
	}

	lr := c.LearningRate
	if lr == 0 {
		lr = defaultLearningRate
	}
	epochs := c.Epochs
	if epochs == 0 {
		epochs = defaultEpochs
	}
	batch := c.Batch
	if batch <= 0 || batch > len(inds) {
		batch = len(inds)
	}

	rng := rand.New(rand.NewSource(seed))
	net := newNetwork(dim, c.Hidden, rng)

	// Copy the training slice so shuffling never touches the caller's
	// fold indices.
	order := make([]int, len(inds))
	copy(order, inds)

	row := make([]float64, dim)
	hidden := make([]float64, c.Hidden)
	gw1 := newMatrix(c.Hidden, dim)
	gb1 := make([]float64, c.Hidden)
	gw2 := make([]float64, c.Hidden)

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for start := 0; start < len(order); start += batch {
			end := start + batch
			if end > len(order) {
				end = len(order)
			}
			if err := net.step(x, y, order[start:end], lr, c.WeightDecay, row, hidden, gw1, gb1, gw2); err != nil {
				return nil, err
			}
		}
	}
	return net, nil
}

func newNetwork(in, hidden int, rng *rand.Rand) *Network {
	net := &Network{
		w1: newMatrix(hidden, in),
		b1: make([]float64, hidden),
		w2: make([]float64, hidden),
	}
	// Xavier initialization, scaled by the fan-in and fan-out of each
	// layer.
	s1 := math.Sqrt(2.0 / float64(in+hidden))
	for j := range net.w1 {
		for k := range net.w1[j] {
			net.w1[j][k] = rng.NormFloat64() * s1
		}
	}
	s2 := math.Sqrt(2.0 / float64(hidden+1))
	for j := range net.w2 {
		net.w2[j] = rng.NormFloat64() * s2
	}
	return net
}

// step accumulates the mean gradient over one minibatch and applies a
// single decayed gradient-descent update. The scratch slices are owned
// by the caller to keep the epoch loop allocation-free.
func (n *Network) step(x mat.Matrix, y []float64, batch []int, lr, decay float64, row, hidden []float64, gw1 [][]float64, gb1, gw2 []float64) error {
	nh := len(n.w2)
	for j := 0; j < nh; j++ {
		zero(gw1[j])
	}
	zero(gb1)
	zero(gw2)
	var gb2 float64

	inv := 1 / float64(len(batch))
	for _, idx := range batch {
		mat.Row(row, idx, x)

		out := n.b2
		for j := 0; j < nh; j++ {
			z := n.b1[j]
			for k, v := range row {
				z += n.w1[j][k] * v
			}
			hidden[j] = math.Tanh(z)
			out += n.w2[j] * hidden[j]
		}

		// Squared-error gradient, backpropagated through the single
		// hidden layer.
		dOut := (out - y[idx]) * inv
		gb2 += dOut
		for j := 0; j < nh; j++ {
			gw2[j] += dOut * hidden[j]
			dHidden := dOut * n.w2[j] * (1 - hidden[j]*hidden[j])
			gb1[j] += dHidden
			for k, v := range row {
				gw1[j][k] += dHidden * v
			}
		}
	}

	for j := 0; j < nh; j++ {
		for k := range n.w1[j] {
			n.w1[j][k] -= lr * (gw1[j][k] + decay*n.w1[j][k])
		}
		n.b1[j] -= lr * gb1[j]
		n.w2[j] -= lr * (gw2[j] + decay*n.w2[j])
	}
	n.b2 -= lr * gb2

	if math.IsNaN(n.b2) || math.IsInf(n.b2, 0) {
		return errDiverged
	}
	return nil
}

// Predict returns the network output at a single predictor row.
func (n *Network) Predict(x []float64) float64 {
	out := n.b2
	for j, w := range n.w2 {
		z := n.b1[j]
		for k, v := range x {
			z += n.w1[j][k] * v
		}
		out += w * math.Tanh(z)
	}
	return out
}

func newMatrix(r, c int) [][]float64 {
	m := make([][]float64, r)
	for i := range m {
		m[i] = make([]float64, c)
	}
	return m
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
