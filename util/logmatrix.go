// Package util holds small generic helpers; package trellis uses it for its
// DP tables.
package util

import (
	"fmt"
	"math"
	"strings"
)

// LogMatrix is a dense, row-major matrix of log-probabilities. It backs the
// Viterbi and Forward DP tables in package trellis: row i is the HMM state
// with index i, column j is position j along the query.
//
// This type started life as the Levenshtein edit-distance matrix in
// grailbio/bio/util; the row-major float64 backing store and debug
// String() were kept, the edit-distance-specific traversal logic was not
// (there is no barcode-matching component in this domain).
type LogMatrix struct {
	nRow, nCol int
	data       []float64
}

// NewLogMatrix returns an n x m matrix with every cell set to negative
// infinity, the log-space identity for "unreachable".
func NewLogMatrix(n, m int) LogMatrix {
	data := make([]float64, n*m)
	for i := range data {
		data[i] = math.Inf(-1)
	}
	return LogMatrix{nRow: n, nCol: m, data: data}
}

// NRow returns the number of rows.
func (m LogMatrix) NRow() int { return m.nRow }

// NCol returns the number of columns.
func (m LogMatrix) NCol() int { return m.nCol }

// At returns the value at (row, col).
func (m LogMatrix) At(row, col int) float64 {
	return m.data[row*m.nCol+col]
}

// Set stores v at (row, col).
func (m LogMatrix) Set(row, col int, v float64) {
	m.data[row*m.nCol+col] = v
}

// Column returns the values of column col across every row, in row order.
// The returned slice aliases the matrix's backing store only conceptually;
// callers get a fresh copy so they may hold onto it across further Set calls.
func (m LogMatrix) Column(col int) []float64 {
	out := make([]float64, m.nRow)
	for i := 0; i < m.nRow; i++ {
		out[i] = m.data[i*m.nCol+col]
	}
	return out
}

// ExtendColumns returns a new LogMatrix with extraCols additional columns
// appended, copying over every existing cell. This is the backbone of the
// chunk-cache's "seed from a compatible previously computed table" behavior
// (spec.md §3, Trellis).
func (m LogMatrix) ExtendColumns(extraCols int) LogMatrix {
	out := NewLogMatrix(m.nRow, m.nCol+extraCols)
	for i := 0; i < m.nRow; i++ {
		for j := 0; j < m.nCol; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// String renders the matrix for debug logging, with every column
// right-aligned to the widest value's printed width.
func (m LogMatrix) String() string {
	maxLength := 0
	cells := make([]string, len(m.data))
	for i, v := range m.data {
		s := fmt.Sprintf("%.2f", v)
		cells[i] = s
		if l := len(s); l > maxLength {
			maxLength = l
		}
	}

	lines := make([]string, 0, m.nRow+1)
	lines = append(lines, "")
	for i := 0; i < m.nRow; i++ {
		parts := make([]string, m.nCol)
		for j := 0; j < m.nCol; j++ {
			parts[j] = fmt.Sprintf("%*s", maxLength, cells[i*m.nCol+j])
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}
