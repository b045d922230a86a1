package data

import (
	"errors"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCAComponents is the width of a projected feature table.
const PCAComponents = 10

// projectPCA standardizes t (missing cells take the column mean, constant
// columns become zero) and projects it on its first k principal components.
// The result always has k columns; components that do not exist are zero.
func projectPCA(t *FeatureTable, k int) (*FeatureTable, error) {
	n, d := len(t.Rows), len(t.Columns)
	out := &FeatureTable{Columns: make([]string, k), Rows: make([][]float64, n)}
	for j := range out.Columns {
		out.Columns[j] = "PC" + strconv.Itoa(j+1)
	}
	for i := range out.Rows {
		out.Rows[i] = make([]float64, k)
	}
	if n < 2 || d == 0 {
		return out, nil
	}

	x := mat.NewDense(n, d, nil)
	column := make([]float64, 0, n)
	for j := 0; j < d; j++ {
		column = column[:0]
		for i := 0; i < n; i++ {
			if v := t.Rows[i][j]; !math.IsNaN(v) {
				column = append(column, v)
			}
		}
		mean, std := 0.0, 0.0
		if len(column) > 0 {
			mean, std = stat.PopMeanStdDev(column, nil)
		}
		for i := 0; i < n; i++ {
			v := t.Rows[i][j]
			if math.IsNaN(v) {
				v = mean
			}
			if std > 0 {
				x.Set(i, j, (v-mean)/std)
			}
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("principal component decomposition failed")
	}
	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	_, available := vectors.Dims()
	if available > k {
		available = k
	}

	var proj mat.Dense
	proj.Mul(x, vectors.Slice(0, d, 0, available))
	for i := 0; i < n; i++ {
		for j := 0; j < available; j++ {
			out.Rows[i][j] = proj.At(i, j)
		}
	}
	return out, nil
}
