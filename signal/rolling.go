package signal

import (
	"fmt"
	"math"
)

// Rolling keeps the sample mean and standard deviation of the last
// capacity values in a fixed ring buffer. Updates are O(1); the running
// sums are rebuilt from the buffer once per full lap to bound float drift.
//
// Sums are kept relative to a shift near the window mean, so a constant
// window reports exactly zero variance.
type Rolling struct {
	capacity int
	buf      []float64
	head     int
	count    int
	missing  int
	since    int

	shift    float64
	hasShift bool
	sum      float64
	sumSq    float64
}

// NewRolling creates a rolling window of the given capacity.
func NewRolling(capacity int) *Rolling {
	return &Rolling{
		capacity: capacity,
		buf:      make([]float64, capacity),
	}
}

func (r *Rolling) Name() string {
	return fmt.Sprintf("Rolling(%d)", r.capacity)
}

// Warmup is the number of updates before Ready can be true.
func (r *Rolling) Warmup() int {
	return r.capacity
}

func (r *Rolling) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.head, r.count, r.missing, r.since = 0, 0, 0, 0
	r.sum, r.sumSq = 0, 0
	r.shift, r.hasShift = 0, false
}

// Update pushes v, evicting the oldest value once full. NaN marks a missing
// observation; the window is not Ready while one is inside it.
func (r *Rolling) Update(v float64) {
	if r.count == r.capacity {
		old := r.buf[r.head]
		if math.IsNaN(old) {
			r.missing--
		} else {
			d := old - r.shift
			r.sum -= d
			r.sumSq -= d * d
		}
	} else {
		r.count++
	}

	r.buf[r.head] = v
	r.head = (r.head + 1) % r.capacity

	if math.IsNaN(v) {
		r.missing++
	} else {
		if !r.hasShift {
			r.shift, r.hasShift = v, true
		}
		d := v - r.shift
		r.sum += d
		r.sumSq += d * d
	}

	r.since++
	if r.since >= r.capacity {
		r.rebuild()
	}
}

// rebuild re-centers the shift on the current window mean and recomputes
// the sums from the buffer contents.
func (r *Rolling) rebuild() {
	r.since = 0
	total, n := 0.0, 0
	for i := 0; i < r.count; i++ {
		if v := r.buf[i]; !math.IsNaN(v) {
			total += v
			n++
		}
	}
	if n > 0 {
		r.shift = total / float64(n)
	}
	r.sum, r.sumSq = 0, 0
	for i := 0; i < r.count; i++ {
		v := r.buf[i]
		if math.IsNaN(v) {
			continue
		}
		d := v - r.shift
		r.sum += d
		r.sumSq += d * d
	}
}

// Ready reports whether the window is full and has no missing values.
func (r *Rolling) Ready() bool {
	return r.count == r.capacity && r.missing == 0
}

// Mean of the window, or NaN when not Ready.
func (r *Rolling) Mean() float64 {
	if !r.Ready() {
		return math.NaN()
	}
	return r.shift + r.sum/float64(r.count)
}

// StdDev is the sample standard deviation (n-1 denominator), or NaN when
// not Ready or the capacity is 1.
func (r *Rolling) StdDev() float64 {
	if !r.Ready() || r.count < 2 {
		return math.NaN()
	}
	n := float64(r.count)
	v := (r.sumSq - r.sum*r.sum/n) / (n - 1)
	if v <= 1e-12*r.sumSq/n {
		v = 0
	}
	return math.Sqrt(v)
}
