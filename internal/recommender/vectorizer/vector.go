package vectorizer

import "math"

// Entry is one non-zero weight of a sparse row.
type Entry struct {
	Col    int
	Weight float64
}

// Vector is a sparse row with entries sorted by ascending column.
type Vector []Entry

// Dot returns the inner product of two column-sorted sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].Col == o[j].Col:
			sum += v[i].Weight * o[j].Weight
			i++
			j++
		case v[i].Col < o[j].Col:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	var sq float64
	for _, e := range v {
		sq += e.Weight * e.Weight
	}
	return math.Sqrt(sq)
}

// normalize scales v in place to unit length. Zero vectors are left as is.
func (v Vector) normalize() {
	n := v.Norm()
	if n == 0 {
		return
	}
	for i := range v {
		v[i].Weight /= n
	}
}

// Matrix is the TF-IDF term-vector matrix. Row i corresponds to corpus
// position i; Cols is the vocabulary size.
type Matrix struct {
	Rows []Vector
	Cols int
}

// NumRows returns the number of corpus items represented.
func (m *Matrix) NumRows() int {
	return len(m.Rows)
}

// Row returns the sparse vector of corpus item i.
func (m *Matrix) Row(i int) Vector {
	return m.Rows[i]
}

// NonZeros returns the total number of stored weights.
func (m *Matrix) NonZeros() int {
	n := 0
	for _, r := range m.Rows {
		n += len(r)
	}
	return n
}
