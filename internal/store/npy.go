package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/sbinet/npyio/npy"
)

// ErrFormat is returned when reading something that is not a C-ordered
// float64 .npy array.
var ErrFormat = errors.New("store: unsupported npy data")

// WriteNPY writes data as a C-ordered float64 .npy array of the given shape.
func WriteNPY(w io.Writer, shape []int, data []float64) error {
	n := 1
	for _, s := range shape {
		if s < 0 {
			return fmt.Errorf("store: negative dimension %d in shape %v", s, shape)
		}
		n *= s
	}
	if n != len(data) {
		return fmt.Errorf("store: shape %v holds %d values, got %d", shape, n, len(data))
	}

	enc, err := npy.NewWriter(w)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	enc.Header.Descr.Shape = append([]int(nil), shape...)
	if err := enc.Write(data); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// ReadNPY reads a float64 array and its shape.
func ReadNPY(r io.Reader) (shape []int, data []float64, err error) {
	dec, err := npy.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if dec.Header.Descr.Fortran {
		return nil, nil, fmt.Errorf("%w: fortran order", ErrFormat)
	}
	if err := dec.Read(&data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return dec.Header.Descr.Shape, data, nil
}
