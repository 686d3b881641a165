package domain

import (
	"math"
	"time"
)

// Field is a 2-D raster on a rectilinear lat/lon grid. Values are stored
// row-major: Data[i*len(Lons)+j] is the value at (Lats[i], Lons[j]).
// Axes are ascending. NaN marks a missing cell.
type Field struct {
	Lats []float64
	Lons []float64
	Data []float64
	Time time.Time
}

// NewField allocates a field of NaNs on the given axes.
func NewField(lats, lons []float64) *Field {
	data := make([]float64, len(lats)*len(lons))
	for i := range data {
		data[i] = math.NaN()
	}
	return &Field{Lats: lats, Lons: lons, Data: data}
}

// ZeroField allocates an all-zero field on the given axes.
func ZeroField(lats, lons []float64) *Field {
	return &Field{Lats: lats, Lons: lons, Data: make([]float64, len(lats)*len(lons))}
}

func (f *Field) Rows() int { return len(f.Lats) }
func (f *Field) Cols() int { return len(f.Lons) }

// Index returns the flat offset of cell (i, j).
func (f *Field) Index(i, j int) int { return i*len(f.Lons) + j }

// At returns the value at cell (i, j).
func (f *Field) At(i, j int) float64 { return f.Data[i*len(f.Lons)+j] }

// Set stores v at cell (i, j).
func (f *Field) Set(i, j int, v float64) { f.Data[i*len(f.Lons)+j] = v }

// Clone returns a deep copy sharing no storage with f.
func (f *Field) Clone() *Field {
	c := &Field{
		Lats: append([]float64(nil), f.Lats...),
		Lons: append([]float64(nil), f.Lons...),
		Data: append([]float64(nil), f.Data...),
		Time: f.Time,
	}
	return c
}

// SameAxes reports whether f and o are defined on identical axes.
func (f *Field) SameAxes(o *Field) bool {
	if len(f.Lats) != len(o.Lats) || len(f.Lons) != len(o.Lons) {
		return false
	}
	for i := range f.Lats {
		if f.Lats[i] != o.Lats[i] {
			return false
		}
	}
	for j := range f.Lons {
		if f.Lons[j] != o.Lons[j] {
			return false
		}
	}
	return true
}
