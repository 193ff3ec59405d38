package circular

import (
	"github.com/peter-kozarec/parity/pkg/utility/fixed"
)

// Window keeps the last capacity points and their running sums.
type Window struct {
	data []fixed.Point
	head int
	size int

	sum        fixed.Point
	sumSquares fixed.Point
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		panic("capacity must > 0")
	}
	return &Window{data: make([]fixed.Point, capacity)}
}

func (w *Window) Cap() int { return len(w.data) }
func (w *Window) Len() int { return w.size }

func (w *Window) IsFull() bool { return w.size == len(w.data) }

func (w *Window) Push(v fixed.Point) {
	if w.IsFull() {
		evicted := w.data[w.head]
		w.sum = w.sum.Sub(evicted)
		w.sumSquares = w.sumSquares.Sub(evicted.Mul(evicted))
	} else {
		w.size++
	}
	w.data[w.head] = v
	w.head = (w.head + 1) % len(w.data)
	w.sum = w.sum.Add(v)
	w.sumSquares = w.sumSquares.Add(v.Mul(v))
}

// Get returns the idx-th newest point, Get(0) being the latest push.
func (w *Window) Get(idx int) fixed.Point {
	if idx < 0 || idx >= w.size {
		panic("index out of range")
	}
	return w.data[(w.head-1-idx+len(w.data))%len(w.data)]
}

func (w *Window) Sum() fixed.Point { return w.sum }

func (w *Window) Mean() fixed.Point {
	if w.size == 0 {
		return fixed.Zero
	}
	return w.sum.DivInt(w.size)
}

// Variance is the population variance of the points in the window.
func (w *Window) Variance() fixed.Point {
	if w.size == 0 {
		return fixed.Zero
	}
	mean := w.Mean()
	v := w.sumSquares.DivInt(w.size).Sub(mean.Mul(mean))
	if v.IsNeg() {
		return fixed.Zero
	}
	return v
}

func (w *Window) StdDev() fixed.Point {
	v := w.Variance()
	if v.IsZero() {
		return fixed.Zero
	}
	return v.Sqrt()
}

// SampleVariance divides by n-1 and is zero for fewer than two points.
func (w *Window) SampleVariance() fixed.Point {
	if w.size < 2 {
		return fixed.Zero
	}
	mean := w.Mean()
	v := w.sumSquares.Sub(mean.Mul(w.sum)).DivInt(w.size - 1)
	if v.IsNeg() {
		return fixed.Zero
	}
	return v
}

func (w *Window) SampleStdDev() fixed.Point {
	v := w.SampleVariance()
	if v.IsZero() {
		return fixed.Zero
	}
	return v.Sqrt()
}
