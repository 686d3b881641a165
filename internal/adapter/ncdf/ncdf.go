// Package ncdf wraps the low-level NetCDF reads shared by the DEM, radar,
// reanalysis, and interferogram adapters.
package ncdf

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Open opens a NetCDF file for reading. The caller closes the returned
// *os.File when done.
func Open(path string) (*os.File, *cdf.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	return f, ff, nil
}

// ReadVar reads a whole variable into a dense array, converting the on-disk
// element type to float64.
func ReadVar(ff *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("read netcdf: variable %q not in file", name)
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read netcdf variable %q: %w", name, err)
	}
	data := sparse.ZerosDense(dims...)
	switch vals := buf.(type) {
	case []float64:
		copy(data.Elements, vals)
	case []float32:
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []int32:
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []int16:
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("read netcdf variable %q: unsupported element type %T", name, buf)
	}
	return data, nil
}

// ReadAxis reads a 1-D coordinate variable.
func ReadAxis(ff *cdf.File, name string) ([]float64, error) {
	arr, err := ReadVar(ff, name)
	if err != nil {
		return nil, err
	}
	if len(arr.Shape) != 1 {
		return nil, fmt.Errorf("read netcdf: axis %q has %d dimensions, want 1", name, len(arr.Shape))
	}
	return arr.Elements, nil
}

// FirstVar returns the first of the candidate names present in the file.
func FirstVar(ff *cdf.File, candidates ...string) (string, error) {
	for _, name := range candidates {
		if len(ff.Header.Lengths(name)) > 0 {
			return name, nil
		}
	}
	return "", fmt.Errorf("read netcdf: none of %v present", candidates)
}

// Descending reports whether a coordinate axis is stored high-to-low.
// ERA-style files order latitude north-to-south; the resamplers need
// ascending axes.
func Descending(axis []float64) bool {
	return len(axis) > 1 && axis[0] > axis[len(axis)-1]
}

// Reverse flips an axis in place.
func Reverse(axis []float64) {
	for i, j := 0, len(axis)-1; i < j; i, j = i+1, j-1 {
		axis[i], axis[j] = axis[j], axis[i]
	}
}

// FlipDim returns a copy of arr mirrored along dimension dim.
func FlipDim(arr *sparse.DenseArray, dim int) *sparse.DenseArray {
	out := sparse.ZerosDense(arr.Shape...)
	index := make([]int, len(arr.Shape))
	for i, v := range arr.Elements {
		rem := i
		for d := len(arr.Shape) - 1; d >= 0; d-- {
			index[d] = rem % arr.Shape[d]
			rem /= arr.Shape[d]
		}
		index[dim] = arr.Shape[dim] - 1 - index[dim]
		out.Set(v, index...)
	}
	return out
}

// EnsureAscending normalizes one axis of a variable: a descending axis is
// reversed in place and the variable mirrored along dim to match. Ascending
// axes pass through untouched.
func EnsureAscending(axis []float64, arr *sparse.DenseArray, dim int) *sparse.DenseArray {
	if !Descending(axis) {
		return arr
	}
	Reverse(axis)
	return FlipDim(arr, dim)
}
