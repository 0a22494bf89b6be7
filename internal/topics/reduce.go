package topics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Reduce projects the row vectors onto their top principal components. The
// projection is deterministic: components are sign-fixed so the largest
// absolute loading of each component is positive, which keeps repeated runs
// byte-identical regardless of SVD sign freedom.
func Reduce(vectors [][]float64, components int) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	dim := len(vectors[0])
	if components >= dim || components < 1 {
		return vectors, nil
	}

	// Center columns.
	mean := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("ragged embedding matrix: %d vs %d", len(v), dim)
		}
		for j, x := range v {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}
	data := make([]float64, 0, n*dim)
	for _, v := range vectors {
		for j, x := range v {
			data = append(data, x-mean[j])
		}
	}
	m := mat.NewDense(n, dim, data)

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)

	if components > n {
		components = n
	}
	basis := v.Slice(0, dim, 0, components).(*mat.Dense)
	fixComponentSigns(basis)

	var projected mat.Dense
	projected.Mul(m, basis)

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, components)
		for j := 0; j < components; j++ {
			row[j] = projected.At(i, j)
		}
		out[i] = row
	}
	return out, nil
}

func fixComponentSigns(basis *mat.Dense) {
	rows, cols := basis.Dims()
	for j := 0; j < cols; j++ {
		maxAbs, sign := 0.0, 1.0
		for i := 0; i < rows; i++ {
			x := basis.At(i, j)
			abs := x
			if abs < 0 {
				abs = -abs
			}
			if abs > maxAbs {
				maxAbs = abs
				if x < 0 {
					sign = -1.0
				} else {
					sign = 1.0
				}
			}
		}
		if sign < 0 {
			for i := 0; i < rows; i++ {
				basis.Set(i, j, -basis.At(i, j))
			}
		}
	}
}
