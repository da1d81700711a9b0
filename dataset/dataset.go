// Package dataset loads tabular CSV data into the design matrix and
// response vector the cross-validation driver consumes. Numeric
// predictor columns are taken as-is; categorical columns are expanded
// into one indicator column per level. Row order follows the file, and
// index i of the response corresponds to row i of the matrix for the
// lifetime of the table.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrBadData is returned for input that does not match the schema:
// missing columns, non-numeric cells, or an empty file.
var ErrBadData = errors.New("dataset: bad data")

// Schema names the columns of interest in a CSV file. Any columns not
// named are ignored.
type Schema struct {
	// Response is the numeric column to predict.
	Response string
	// Numeric are predictor columns read as floating-point values.
	Numeric []string
	// Categorical are predictor columns expanded into one indicator
	// column per distinct level, named "col=level". Levels are ordered
	// lexically so the expansion is stable across loads.
	Categorical []string
}

// Table is an immutable-size design matrix with its response vector.
type Table struct {
	cols []string
	x    *mat.Dense
	y    []float64
}

// Load reads a CSV file with a header row and assembles the columns
// named by the schema.
func Load(r io.Reader, schema Schema) (*Table, error) {
	if schema.Response == "" {
		return nil, fmt.Errorf("%w: no response column named", ErrBadData)
	}
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrBadData)
	}
	header, rows := records[0], records[1:]

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	lookup := func(name string) (int, error) {
		idx, ok := colIdx[name]
		if !ok {
			return 0, fmt.Errorf("%w: column %q not in header", ErrBadData, name)
		}
		return idx, nil
	}

	respIdx, err := lookup(schema.Response)
	if err != nil {
		return nil, err
	}
	numIdx := make([]int, len(schema.Numeric))
	for i, name := range schema.Numeric {
		if numIdx[i], err = lookup(name); err != nil {
			return nil, err
		}
	}
	catIdx := make([]int, len(schema.Categorical))
	for i, name := range schema.Categorical {
		if catIdx[i], err = lookup(name); err != nil {
			return nil, err
		}
	}

	// First pass over the categorical columns fixes the level sets, so
	// the expanded width is known before the matrix is built.
	levels := make([]map[string]int, len(catIdx))
	levelNames := make([][]string, len(catIdx))
	for i, ci := range catIdx {
		seen := make(map[string]bool)
		for _, row := range rows {
			seen[row[ci]] = true
		}
		names := make([]string, 0, len(seen))
		for v := range seen {
			names = append(names, v)
		}
		sort.Strings(names)
		levels[i] = make(map[string]int, len(names))
		for j, v := range names {
			levels[i][v] = j
		}
		levelNames[i] = names
	}

	cols := make([]string, 0, len(numIdx))
	cols = append(cols, schema.Numeric...)
	for i, name := range schema.Categorical {
		for _, level := range levelNames[i] {
			cols = append(cols, name+"="+level)
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no predictor columns named", ErrBadData)
	}

	n := len(rows)
	x := mat.NewDense(n, len(cols), nil)
	y := make([]float64, n)
	for i, row := range rows {
		if y[i], err = parseCell(row, respIdx, schema.Response, i); err != nil {
			return nil, err
		}
		c := 0
		for j, ni := range numIdx {
			v, err := parseCell(row, ni, schema.Numeric[j], i)
			if err != nil {
				return nil, err
			}
			x.Set(i, c, v)
			c++
		}
		for j, ci := range catIdx {
			x.Set(i, c+levels[j][row[ci]], 1)
			c += len(levels[j])
		}
	}

	return &Table{cols: cols, x: x, y: y}, nil
}

func parseCell(row []string, idx int, name string, rowNum int) (float64, error) {
	v, err := strconv.ParseFloat(row[idx], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: column %q row %d: %q is not numeric", ErrBadData, name, rowNum, row[idx])
	}
	return v, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.y) }

// Columns returns the expanded predictor column names, in matrix order.
func (t *Table) Columns() []string { return t.cols }

// Matrix returns the design matrix. Rows correspond to Response indices.
func (t *Table) Matrix() *mat.Dense { return t.x }

// Response returns the response vector.
func (t *Table) Response() []float64 { return t.y }

// Column returns the matrix column index of the named predictor, or an
// error if the schema did not produce it.
func (t *Table) Column(name string) (int, error) {
	for i, c := range t.cols {
		if c == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no predictor column %q", ErrBadData, name)
}

// Standardize centers and scales each predictor column in place to zero
// mean and unit standard deviation, returning the per-column means and
// deviations. Constant columns are centered only, with a recorded
// deviation of 1.
func (t *Table) Standardize() (means, stds []float64) {
	n, d := t.x.Dims()
	means = make([]float64, d)
	stds = make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, t.x)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		means[j] = mean
		stds[j] = std
		for i := 0; i < n; i++ {
			t.x.Set(i, j, (col[i]-mean)/std)
		}
	}
	return means, stds
}
